package commands

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sheetnet "github.com/blutspende/go-sheetnet"
	"github.com/blutspende/go-sheetnet/sheettest"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTerminalSession(t *testing.T) {
	server, err := sheettest.Start("127.0.0.1:0")
	require.Nil(t, err)
	server.SetLogger(zerolog.Nop())
	defer server.Close()
	server.SetCell("budget", "A1", "1")

	out := &syncBuffer{}
	terminal := newTerminal(out)
	configuration := sheetnet.DefaultClientConfiguration()
	configuration.Logger = zerolog.Nop()
	sheet := sheetnet.NewSession(terminal, configuration)
	defer sheet.Close()

	require.Nil(t, sheet.Open(context.Background(), "sysadmin", "budget", "", "127.0.0.1", server.Port()))
	require.Eventually(t, sheet.Joined, 2*time.Second, 10*time.Millisecond)

	input := strings.Join([]string{
		"cell B1 hello world",
		"bogus",
		"register sysadmin",
		"inject cell Z9 local",
		"cells",
		"quit",
		"cell C1 never sent",
	}, "\n")

	require.Nil(t, runTerminal(context.Background(), sheet, strings.NewReader(input), terminal))

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "invalid user name: sysadmin")
	}, 2*time.Second, 10*time.Millisecond)

	output := out.String()
	assert.Contains(t, output, "joined, 1 cells")
	assert.Contains(t, output, "A1 = 1")
	assert.Contains(t, output, "unknown command 'bogus'")
	assert.Contains(t, output, "Z9 = local")

	contents, ok := server.Cell("budget", "B1")
	assert.True(t, ok)
	assert.Equal(t, "hello world", contents)
	_, ok = server.Cell("budget", "C1")
	assert.False(t, ok)
}

func TestTerminalBeforeJoin(t *testing.T) {
	out := &syncBuffer{}
	terminal := newTerminal(out)
	sheet := sheetnet.NewSession(terminal)

	require.Nil(t, runTerminal(context.Background(), sheet, strings.NewReader("undo\ncell\nregister\n"), terminal))

	output := out.String()
	assert.Contains(t, output, sheetnet.ErrNotJoined.Error())
	assert.Contains(t, output, "usage: cell <name> <contents>")
	assert.Contains(t, output, "usage: register <user>")
}

func TestTerminalErrorCodes(t *testing.T) {
	out := &syncBuffer{}
	terminal := newTerminal(out)

	terminal.OnError(sheetnet.ErrorCodeBadCellChange, "circular")
	terminal.OnError(sheetnet.ErrorCodeInvalidState, "later")
	terminal.OnError(42, "strange")
	terminal.OnInvalid("xyz", "Bad Keyword")
	terminal.OnCrash()

	assert.Equal(t, "change refused: circular\n"+
		"not possible now: later\n"+
		"error 42: strange\n"+
		"unreadable line 'xyz': Bad Keyword\n"+
		"connection lost\n", out.String())
}

func TestVersionCommand(t *testing.T) {
	Version = "1.2.3"
	BuildTime = "today"

	out := &bytes.Buffer{}
	versionCmd.SetOut(out)
	versionCmd.Run(versionCmd, nil)

	assert.Equal(t, "Version: 1.2.3, BuildTime: today\n", out.String())
}
