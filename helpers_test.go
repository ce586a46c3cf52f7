package sheetnet

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/blutspende/go-sheetnet/sheettest"
)

const eventTimeout = 2 * time.Second

// recordingHandler turns every event into a line on a channel
type recordingHandler struct {
	events chan string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{events: make(chan string, 1000)}
}

func (h *recordingHandler) OnConnected(cellCount int) {
	h.events <- fmt.Sprintf("connected %d", cellCount)
}

func (h *recordingHandler) OnCellUpdate(name string, contents string) {
	h.events <- fmt.Sprintf("cell %s %s", name, contents)
}

func (h *recordingHandler) OnError(code int, message string) {
	h.events <- fmt.Sprintf("error %d %s", code, message)
}

func (h *recordingHandler) OnInvalid(rawLine string, reason string) {
	h.events <- fmt.Sprintf("invalid %s|%s", rawLine, reason)
}

func (h *recordingHandler) OnCrash() {
	h.events <- "crash"
}

func (h *recordingHandler) next(t *testing.T) string {
	t.Helper()
	select {
	case event := <-h.events:
		return event
	case <-time.After(eventTimeout):
		t.Fatal("no event within timeout")
		return ""
	}
}

// quiet asserts that nothing arrives for the given time
func (h *recordingHandler) quiet(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case event := <-h.events:
		t.Fatalf("unexpected event '%s'", event)
	case <-time.After(wait):
	}
}

func testConfiguration() ClientConfiguration {
	config := DefaultClientConfiguration()
	config.Timing.ConnectTimeout = time.Second
	config.Timing.WriteTimeout = time.Second
	config.Logger = zerolog.Nop()
	return config
}

func startSheetServer(t *testing.T, users ...string) *sheettest.Server {
	server, err := sheettest.Start("127.0.0.1:0", users...)
	require.Nil(t, err)
	server.SetLogger(zerolog.Nop())
	t.Cleanup(func() { server.Close() })
	return server
}
