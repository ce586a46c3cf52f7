package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	LF = 0x0A
	CR = 0x0D
)

var ErrLineTooLong = errors.New("line exceeds maximum length")

type LineProtocolSettings struct {
	delimiter     byte
	maxLineLength int
}

type lineprotocol struct {
	settings *LineProtocolSettings
}

func DefaultLineProtocolSettings() *LineProtocolSettings {
	return &LineProtocolSettings{
		delimiter:     LF,
		maxLineLength: 1024 * 1024,
	}
}

func (set *LineProtocolSettings) SetDelimiter(delimiter byte) *LineProtocolSettings {
	set.delimiter = delimiter
	return set
}

// SetMaxLineLength limits how many bytes of a not yet terminated line may pile up.
// 0 disables the limit.
func (set *LineProtocolSettings) SetMaxLineLength(maxLineLength int) *LineProtocolSettings {
	set.maxLineLength = maxLineLength
	return set
}

/* Line - newline delimited text messages, the delimiter is stripped on receive and
   appended exactly once on send. No other escaping takes place.
*/
func Line(settings ...*LineProtocolSettings) Implementation {

	var thesettings *LineProtocolSettings
	if len(settings) >= 1 && settings[0] != nil {
		thesettings = settings[0]
	} else {
		thesettings = DefaultLineProtocolSettings()
	}

	return &lineprotocol{
		settings: thesettings,
	}
}

func (proto *lineprotocol) Frame(buffer []byte) ([]string, []byte, error) {
	messages := make([]string, 0)

	for {
		index := bytes.IndexByte(buffer, proto.settings.delimiter)
		if index < 0 {
			break
		}
		messages = append(messages, string(buffer[:index]))
		buffer = buffer[index+1:]
	}

	if proto.settings.maxLineLength > 0 && len(buffer) > proto.settings.maxLineLength {
		return messages, buffer, fmt.Errorf("%w : %d bytes pending, limit %d", ErrLineTooLong, len(buffer), proto.settings.maxLineLength)
	}

	// detach the remainder so the caller can keep appending without
	// growing the array behind already emitted messages
	rest := make([]byte, len(buffer))
	copy(rest, buffer)

	return messages, rest, nil
}

func (proto *lineprotocol) Encode(message string) []byte {
	sendbytes := make([]byte, len(message)+1)
	copy(sendbytes, message)
	sendbytes[len(message)] = proto.settings.delimiter
	return sendbytes
}
