package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutgoingMessages(t *testing.T) {
	assert.Equal(t, "connect sysadmin budget", ConnectMessage("sysadmin", "budget"))
	assert.Equal(t, "register alice", RegisterMessage("alice"))
	assert.Equal(t, "cell A1 =1 + 1", CellMessage("A1", "=1 + 1"))
	assert.Equal(t, "undo", UndoMessage())
}

func TestOutgoingMessagesDoNotValidate(t *testing.T) {
	assert.Equal(t, "connect  ", ConnectMessage("", ""))
	assert.Equal(t, "cell A1 ", CellMessage("A1", ""))
}

// Whatever the client sends as a cell edit, the server echoes back as the same line
func TestCellMessageParsesBack(t *testing.T) {
	assert.Equal(t, CellUpdate{Name: "D4", Contents: "=SUM(A1, B2) * 2"}, Parse(CellMessage("D4", "=SUM(A1, B2) * 2")))
}
