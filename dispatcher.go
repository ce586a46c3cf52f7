package sheetnet

import (
	"github.com/blutspende/go-sheetnet/protocol"
)

// Dispatch invokes the handler method matching cmd
func Dispatch(cmd protocol.Command, handler Handler) {
	switch c := cmd.(type) {
	case protocol.Connected:
		handler.OnConnected(c.CellCount)
	case protocol.CellUpdate:
		handler.OnCellUpdate(c.Name, c.Contents)
	case protocol.Error:
		handler.OnError(c.Code, c.Text)
	case protocol.Invalid:
		handler.OnInvalid(c.Line, c.Reason)
	}
}

// DispatchLine parses one framed line and dispatches it
func DispatchLine(line string, handler Handler) {
	Dispatch(protocol.Parse(line), handler)
}
