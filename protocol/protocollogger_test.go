package protocol

import (
	"bytes"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMakeBytesReadable(t *testing.T) {
	assert.Equal(t, "cell A1 x<LF>", MakeBytesReadable([]byte("cell A1 x\n")))
	assert.Equal(t, "<STX>a<ETX><CR>", MakeBytesReadable([]byte{2, 'a', 3, 13}))
}

func TestSubstr(t *testing.T) {
	assert.Equal(t, "ell", substr("cell", 1, 3))
	assert.Equal(t, "ll", substr("cell", 2, 10))
	assert.Equal(t, "", substr("cell", 10, 1))
}

func TestWrapConnWithLoggerDisabledReturnsConn(t *testing.T) {
	host, peer := net.Pipe()
	defer host.Close()
	defer peer.Close()

	assert.Equal(t, host, WrapConnWithLogger(host, zerolog.Nop(), false))
}

func TestWrapConnWithLoggerTracesTraffic(t *testing.T) {
	host, peer := net.Pipe()
	defer peer.Close()

	var logOutput bytes.Buffer
	logger := zerolog.New(&logOutput).Level(zerolog.DebugLevel)
	conn := WrapConnWithLogger(host, logger, true)

	go func() {
		buffer := make([]byte, 64)
		n, _ := peer.Read(buffer)
		peer.Write(buffer[:n])
	}()

	_, err := conn.Write([]byte("undo\n"))
	assert.Nil(t, err)

	buffer := make([]byte, 64)
	n, err := conn.Read(buffer)
	assert.Nil(t, err)
	assert.Equal(t, "undo\n", string(buffer[:n]))
	assert.Nil(t, conn.Close())

	assert.Contains(t, logOutput.String(), "send - 'undo<LF>'")
	assert.Contains(t, logOutput.String(), "recv - 'undo<LF>'")
	assert.Contains(t, logOutput.String(), `"message":"close"`)
}
