package protocol

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineProtocolFrameSingleLine(t *testing.T) {
	instance := Line()
	messages, rest, err := instance.Frame([]byte("connected 5\n"))
	assert.Nil(t, err)
	assert.Equal(t, []string{"connected 5"}, messages)
	assert.Empty(t, rest)
}

func TestLineProtocolFrameKeepsPartialLine(t *testing.T) {
	instance := Line()
	messages, rest, err := instance.Frame([]byte("connected 5\ncell A1 1"))
	assert.Nil(t, err)
	assert.Equal(t, []string{"connected 5"}, messages)
	assert.Equal(t, "cell A1 1", string(rest))

	messages, rest, err = instance.Frame(append(rest, []byte("0\n")...))
	assert.Nil(t, err)
	assert.Equal(t, []string{"cell A1 10"}, messages)
	assert.Empty(t, rest)
}

func TestLineProtocolFrameNoDelimiter(t *testing.T) {
	instance := Line()
	messages, rest, err := instance.Frame([]byte("cell A1"))
	assert.Nil(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, "cell A1", string(rest))
}

func TestLineProtocolFrameEmptyLines(t *testing.T) {
	instance := Line()
	messages, rest, err := instance.Frame([]byte("\n\nundo\n"))
	assert.Nil(t, err)
	assert.Equal(t, []string{"", "", "undo"}, messages)
	assert.Empty(t, rest)
}

func TestLineProtocolFrameRestIsDetached(t *testing.T) {
	instance := Line()
	buffer := []byte("a\nbc")
	_, rest, err := instance.Frame(buffer)
	require.Nil(t, err)
	rest[0] = 'X'
	assert.Equal(t, "a\nbc", string(buffer))
}

// Any list of lines joined with '\n' must come back identical no matter
// where the stream is cut
func TestLineProtocolRoundTripArbitraryChunks(t *testing.T) {
	lines := []string{
		"connected 3",
		"cell A1 =1 + 1",
		"",
		"error 4 bad username",
		"cell B2  two  spaces ",
		"ünïcödé cell Z9 ✓",
	}
	stream := []byte(strings.Join(lines, "\n") + "\n")

	rnd := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		instance := Line()
		received := make([]string, 0)
		buffer := make([]byte, 0)

		for pos := 0; pos < len(stream); {
			chunk := 1 + rnd.Intn(8)
			if pos+chunk > len(stream) {
				chunk = len(stream) - pos
			}
			buffer = append(buffer, stream[pos:pos+chunk]...)
			pos += chunk

			messages, rest, err := instance.Frame(buffer)
			require.Nil(t, err)
			received = append(received, messages...)
			buffer = rest
		}

		assert.Equal(t, lines, received)
		assert.Empty(t, buffer)
	}
}

func TestLineProtocolFrameMaxLineLength(t *testing.T) {
	instance := Line(DefaultLineProtocolSettings().SetMaxLineLength(8))

	messages, _, err := instance.Frame([]byte("undo\n12345678"))
	assert.Nil(t, err)
	assert.Equal(t, []string{"undo"}, messages)

	messages, _, err = instance.Frame([]byte("undo\n123456789"))
	assert.True(t, errors.Is(err, ErrLineTooLong))
	assert.Equal(t, []string{"undo"}, messages)
}

func TestLineProtocolCustomDelimiter(t *testing.T) {
	instance := Line(DefaultLineProtocolSettings().SetDelimiter(CR))
	messages, rest, err := instance.Frame([]byte("undo\x0Dcell"))
	assert.Nil(t, err)
	assert.Equal(t, []string{"undo"}, messages)
	assert.Equal(t, "cell", string(rest))
	assert.Equal(t, []byte("undo\x0D"), instance.Encode("undo"))
}

func TestLineProtocolEncode(t *testing.T) {
	instance := Line()
	assert.Equal(t, []byte("cell A1 =1 + 1\n"), instance.Encode("cell A1 =1 + 1"))
	assert.Equal(t, []byte("\n"), instance.Encode(""))
}
