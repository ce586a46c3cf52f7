package sheetnet

import (
	"github.com/blutspende/go-sheetnet/protocol"
)

// MessageBuilder turns intents into protocol lines and sends them
type MessageBuilder struct {
	sender Sender
}

func NewMessageBuilder(sender Sender) *MessageBuilder {
	return &MessageBuilder{sender: sender}
}

func (b *MessageBuilder) Connect(userName, spreadsheetName string) error {
	return b.sender.Send(protocol.ConnectMessage(userName, spreadsheetName))
}

func (b *MessageBuilder) Register(userName string) error {
	return b.sender.Send(protocol.RegisterMessage(userName))
}

func (b *MessageBuilder) CellEdit(cellName, contents string) error {
	return b.sender.Send(protocol.CellMessage(cellName, contents))
}

func (b *MessageBuilder) Undo() error {
	return b.sender.Send(protocol.UndoMessage())
}
