package sheetnet

import "context"

// Handler is the set of events a Connection reports. All methods are called from the
// connection's receive goroutine, one at a time, in the order the lines arrived.
type Handler interface {
	// OnConnected - the server accepted the join, cellCount cell updates follow
	OnConnected(cellCount int)
	// OnCellUpdate - a cell changed (by anyone, including this client)
	OnCellUpdate(name string, contents string)
	// OnError - the server explicitly reported an error. The connection stays open
	OnError(code int, message string)
	// OnInvalid - a line that could not be parsed. The connection stays open
	OnInvalid(rawLine string, reason string)
	// OnCrash is called at most once per established socket, when it failed
	// unexpectedly. No other event follows it.
	OnCrash()
}

// Sender writes one line to the peer, the terminator is added
type Sender interface {
	Send(line string) error
}

type Transport interface {
	Sender
	Connect(ctx context.Context, hostName, ipLiteral string, port int) error
	Close() error
	State() ConnectionState
	RemoteAddress() (string, error)
}
