// Package sheettest provides an in-memory collaboration server that speaks the server
// side of the spreadsheet line protocol. It is meant for tests and local trials; its
// listener accepts PROXY protocol headers so clients behind a balancer can be tested too.
package sheettest

import (
	"bufio"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pires/go-proxyproto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/blutspende/go-sheetnet/protocol"
)

const DefaultUser = "sysadmin"

type Server struct {
	listener net.Listener
	log      zerolog.Logger
	wg       sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
	users     map[string]bool
	sheets    map[string]*sheet
	sessions  []*session
	received  []string
	remotes   []string
}

type sheet struct {
	cells map[string]string
	undo  []edit
}

type edit struct {
	name     string
	previous string
}

type session struct {
	conn            net.Conn
	writeMu         sync.Mutex
	userName        string
	spreadsheetName string
}

// Start listens on address ("127.0.0.1:0" picks a free port) and serves until Close.
// users are the registered user names, DefaultUser when none are given.
func Start(address string, users ...string) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("can not start sheet server: %w", err)
	}

	if len(users) == 0 {
		users = []string{DefaultUser}
	}

	server := &Server{
		listener:  &proxyproto.Listener{Listener: listener},
		log:       log.Logger.With().Str("component", "sheettest").Logger(),
		isRunning: true,
		users:     make(map[string]bool),
		sheets:    make(map[string]*sheet),
		sessions:  make([]*session, 0),
		received:  make([]string, 0),
		remotes:   make([]string, 0),
	}
	for _, user := range users {
		server.users[user] = true
	}

	server.wg.Add(1)
	go server.run()

	return server, nil
}

func (s *Server) Addr() *net.TCPAddr {
	return s.listener.Addr().(*net.TCPAddr)
}

func (s *Server) Port() int {
	return s.Addr().Port
}

func (s *Server) SetLogger(logger zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = logger
}

func (s *Server) logger() *zerolog.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	logger := s.log
	return &logger
}

func (s *Server) run() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.isRunning
			s.mu.Unlock()
			if !running {
				return
			}
			s.logger().Error().Err(err).Msg("Accept")
			continue
		}

		sess := &session{conn: conn}
		s.mu.Lock()
		s.sessions = append(s.sessions, sess)
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(sess)
	}
}

func (s *Server) serve(sess *session) {
	defer s.wg.Done()
	defer s.removeSession(sess)
	defer sess.conn.Close()

	reader := bufio.NewReader(sess.conn)
	first := true

	for {
		line, err := reader.ReadString(protocol.LF)
		if err != nil {
			return
		}
		if first {
			// the proxy header (if any) has been consumed by now
			s.mu.Lock()
			s.remotes = append(s.remotes, sess.conn.RemoteAddr().String())
			s.mu.Unlock()
			first = false
		}
		line = strings.TrimSuffix(line, "\n")

		s.mu.Lock()
		s.received = append(s.received, line)
		s.mu.Unlock()

		s.handleLine(sess, line)
	}
}

func (s *Server) handleLine(sess *session, line string) {
	tokens := strings.SplitN(line, " ", 3)

	switch {
	case tokens[0] == protocol.KeywordConnect && len(tokens) == 3:
		s.join(sess, tokens[1], tokens[2])
	case tokens[0] == protocol.KeywordRegister && len(tokens) == 2:
		s.register(sess, tokens[1])
	case tokens[0] == protocol.KeywordCell && len(tokens) == 3:
		s.setCell(sess, tokens[1], tokens[2])
	case tokens[0] == protocol.KeywordUndo && len(tokens) == 1:
		s.undo(sess)
	default:
		s.send(sess, errorLine(2, line))
	}
}

func (s *Server) join(sess *session, userName, spreadsheetName string) {
	s.mu.Lock()
	if !s.users[userName] {
		s.mu.Unlock()
		s.send(sess, errorLine(4, userName))
		return
	}

	sess.userName = userName
	sess.spreadsheetName = spreadsheetName
	sh := s.sheet(spreadsheetName)

	names := make([]string, 0, len(sh.cells))
	for name := range sh.cells {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names)+1)
	lines = append(lines, protocol.KeywordConnected+" "+strconv.Itoa(len(names)))
	for _, name := range names {
		lines = append(lines, protocol.CellMessage(name, sh.cells[name]))
	}
	s.mu.Unlock()

	s.send(sess, lines...)
}

func (s *Server) register(sess *session, userName string) {
	s.mu.Lock()
	joined := sess.spreadsheetName != ""
	exists := s.users[userName]
	if joined && !exists {
		s.users[userName] = true
	}
	s.mu.Unlock()

	switch {
	case !joined:
		s.send(sess, errorLine(3, "register"))
	case exists:
		s.send(sess, errorLine(4, userName))
	}
}

func (s *Server) setCell(sess *session, name, contents string) {
	s.mu.Lock()
	if sess.spreadsheetName == "" {
		s.mu.Unlock()
		s.send(sess, errorLine(3, "cell"))
		return
	}
	sh := s.sheet(sess.spreadsheetName)
	sh.undo = append(sh.undo, edit{name: name, previous: sh.cells[name]})
	setOrClear(sh, name, contents)
	spreadsheetName := sess.spreadsheetName
	s.mu.Unlock()

	s.broadcast(spreadsheetName, protocol.CellMessage(name, contents))
}

func (s *Server) undo(sess *session) {
	s.mu.Lock()
	if sess.spreadsheetName == "" {
		s.mu.Unlock()
		s.send(sess, errorLine(3, "undo"))
		return
	}
	sh := s.sheet(sess.spreadsheetName)
	if len(sh.undo) == 0 {
		s.mu.Unlock()
		return
	}
	last := sh.undo[len(sh.undo)-1]
	sh.undo = sh.undo[:len(sh.undo)-1]
	setOrClear(sh, last.name, last.previous)
	spreadsheetName := sess.spreadsheetName
	s.mu.Unlock()

	s.broadcast(spreadsheetName, protocol.CellMessage(last.name, last.previous))
}

func setOrClear(sh *sheet, name, contents string) {
	if contents == "" {
		delete(sh.cells, name)
		return
	}
	sh.cells[name] = contents
}

// sheet must be called with s.mu held
func (s *Server) sheet(name string) *sheet {
	sh, ok := s.sheets[name]
	if !ok {
		sh = &sheet{cells: make(map[string]string)}
		s.sheets[name] = sh
	}
	return sh
}

func errorLine(code int, text string) string {
	return protocol.KeywordError + " " + strconv.Itoa(code) + " " + text
}

func (s *Server) broadcast(spreadsheetName string, line string) {
	s.mu.Lock()
	targets := make([]*session, 0)
	for _, sess := range s.sessions {
		if sess.spreadsheetName == spreadsheetName {
			targets = append(targets, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range targets {
		s.send(sess, line)
	}
}

func (s *Server) send(sess *session, lines ...string) {
	data := make([]byte, 0)
	for _, line := range lines {
		data = append(data, line...)
		data = append(data, protocol.LF)
	}
	s.write(sess, data)
}

func (s *Server) write(sess *session, data []byte) {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if _, err := sess.conn.Write(data); err != nil {
		s.logger().Debug().Err(err).Msg("Write")
	}
}

// Push sends line to every connected client
func (s *Server) Push(line string) {
	s.PushRaw([]byte(line + "\n"))
}

// PushRaw writes data unchanged to every connected client
func (s *Server) PushRaw(data []byte) {
	for _, sess := range s.snapshotSessions() {
		s.write(sess, data)
	}
}

// SetCell seeds a cell without notifying anybody
func (s *Server) SetCell(spreadsheetName, name, contents string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setOrClear(s.sheet(spreadsheetName), name, contents)
}

// Cell reads the server's copy of a cell
func (s *Server) Cell(spreadsheetName, name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contents, ok := s.sheet(spreadsheetName).cells[name]
	return contents, ok
}

// DropAll resets every client connection
func (s *Server) DropAll() {
	for _, sess := range s.snapshotSessions() {
		if tcpConn, ok := underlyingTCPConn(sess.conn); ok {
			tcpConn.SetLinger(0)
		}
		sess.conn.Close()
	}
}

func underlyingTCPConn(conn net.Conn) (*net.TCPConn, bool) {
	if proxyConn, ok := conn.(*proxyproto.Conn); ok {
		conn = proxyConn.Raw()
	}
	tcpConn, ok := conn.(*net.TCPConn)
	return tcpConn, ok
}

// Received returns every line received from any client, in arrival order
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]string, len(s.received))
	copy(result, s.received)
	return result
}

// RemoteAddresses returns the client address of each connection that sent at least
// one line. For clients sending a PROXY header this is the address from the header.
func (s *Server) RemoteAddresses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]string, len(s.remotes))
	copy(result, s.remotes)
	return result
}

func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// WaitForReceived waits until at least n lines were received
func (s *Server) WaitForReceived(n int, timeout time.Duration) bool {
	return waitFor(timeout, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.received) >= n
	})
}

// WaitForClients waits until exactly n clients are connected
func (s *Server) WaitForClients(n int, timeout time.Duration) bool {
	return waitFor(timeout, func() bool {
		return s.Clients() == n
	})
}

func waitFor(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}

func (s *Server) snapshotSessions() []*session {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*session, len(s.sessions))
	copy(result, s.sessions)
	return result
}

func (s *Server) removeSession(which *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]*session, 0, len(s.sessions))
	for _, x := range s.sessions {
		if x != which {
			ret = append(ret, x)
		}
	}
	s.sessions = ret
}

// Close stops listening, disconnects all clients and waits for them to finish
func (s *Server) Close() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	err := s.listener.Close()
	for _, sess := range s.snapshotSessions() {
		sess.conn.Close()
	}
	s.wg.Wait()
	return err
}
