package sheetnet

import (
	"context"
	"sort"
	"sync"
)

// Session joins one spreadsheet on a collaboration server and applies the editor's
// policy on top of a Connection:
//   - edits, undo and register are refused until the server confirmed the join
//   - "error 4" (invalid username) while waiting for the join closes the connection
//   - a crash drops the joined state and closes the connection
//
// Every event is forwarded to the handler given to NewSession afterwards.
type Session struct {
	handler       Handler
	configuration []ClientConfiguration

	mu                  sync.RWMutex
	connection          *Connection
	builder             *MessageBuilder
	userName            string
	spreadsheetName     string
	waitingForConnected bool
	joined              bool
	cellCount           int
	cells               map[string]string
}

func NewSession(handler Handler, configuration ...ClientConfiguration) *Session {
	if handler == nil {
		handler = HandlerFuncs{}
	}
	session := &Session{
		handler:       handler,
		configuration: configuration,
		cells:         make(map[string]string),
	}
	session.connection = CreateNewTCPClient(session, configuration...)
	session.builder = NewMessageBuilder(session.connection)
	return session
}

// reopen replaces a closed connection, a closed Connection can not connect again
func (s *Session) reopen() *Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connection.State() == Closed {
		s.connection = CreateNewTCPClient(s, s.configuration...)
		s.builder = NewMessageBuilder(s.connection)
		s.cells = make(map[string]string)
		s.cellCount = 0
	}
	return s.connection
}

func (s *Session) currentBuilder() *MessageBuilder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.builder
}

// Open connects and asks to join spreadsheetName as userName. The outcome of the join
// arrives asynchronously as OnConnected or OnError.
func (s *Session) Open(ctx context.Context, userName, spreadsheetName, hostName, ipLiteral string, port int) error {
	connection := s.reopen()
	if err := connection.Connect(ctx, hostName, ipLiteral, port); err != nil {
		return err
	}

	s.mu.Lock()
	s.userName = userName
	s.spreadsheetName = spreadsheetName
	s.waitingForConnected = true
	s.joined = false
	s.mu.Unlock()

	if err := s.currentBuilder().Connect(userName, spreadsheetName); err != nil {
		s.mu.Lock()
		s.waitingForConnected = false
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Session) Edit(cellName, contents string) error {
	if !s.Joined() {
		return ErrNotJoined
	}
	return s.currentBuilder().CellEdit(cellName, contents)
}

func (s *Session) Undo() error {
	if !s.Joined() {
		return ErrNotJoined
	}
	return s.currentBuilder().Undo()
}

func (s *Session) Register(userName string) error {
	if !s.Joined() {
		return ErrNotJoined
	}
	return s.currentBuilder().Register(userName)
}

// Inject dispatches line as if the server had sent it
func (s *Session) Inject(line string) {
	DispatchLine(line, s)
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.joined = false
	s.waitingForConnected = false
	connection := s.connection
	s.mu.Unlock()
	return connection.Close()
}

func (s *Session) Connection() *Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connection
}

func (s *Session) Joined() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joined
}

func (s *Session) WaitingForConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.waitingForConnected
}

func (s *Session) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName
}

func (s *Session) SpreadsheetName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spreadsheetName
}

// CellCount is the number of cells the server announced on join
func (s *Session) CellCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cellCount
}

func (s *Session) Cell(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contents, ok := s.cells[name]
	return contents, ok
}

// Cells returns a copy of all cells seen so far
func (s *Session) Cells() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cells := make(map[string]string, len(s.cells))
	for name, contents := range s.cells {
		cells[name] = contents
	}
	return cells
}

// CellNames returns the names of all cells seen so far, sorted
func (s *Session) CellNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.cells))
	for name := range s.cells {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Session) OnConnected(cellCount int) {
	s.mu.Lock()
	s.waitingForConnected = false
	s.joined = true
	s.cellCount = cellCount
	s.mu.Unlock()

	s.handler.OnConnected(cellCount)
}

func (s *Session) OnCellUpdate(name string, contents string) {
	s.mu.Lock()
	s.cells[name] = contents
	s.mu.Unlock()

	s.handler.OnCellUpdate(name, contents)
}

func (s *Session) OnError(code int, message string) {
	s.mu.Lock()
	rejected := code == ErrorCodeInvalidUsername && s.waitingForConnected
	if rejected {
		s.waitingForConnected = false
		s.joined = false
	}
	connection := s.connection
	s.mu.Unlock()

	s.handler.OnError(code, message)

	if rejected {
		connection.Close()
	}
}

func (s *Session) OnInvalid(rawLine string, reason string) {
	s.handler.OnInvalid(rawLine, reason)
}

func (s *Session) OnCrash() {
	s.mu.Lock()
	s.joined = false
	s.waitingForConnected = false
	connection := s.connection
	s.mu.Unlock()

	s.handler.OnCrash()
	connection.Close()
}
