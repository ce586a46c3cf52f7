package protocol

import (
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const peekLength = 30

type protocolLogger struct {
	enableLog bool
	log       zerolog.Logger
}

// TraceEnabledByEnvironment reports whether PROTOLOG_ENABLE is set
func TraceEnabledByEnvironment() bool {
	return os.Getenv("PROTOLOG_ENABLE") != ""
}

func (pl *protocolLogger) logRead(n int, err error, datafull []byte) {

	if err != nil {
		if opErr, ok := err.(*net.OpError); ok && opErr.Timeout() {
			// Dont log timouts
			return
		}

		pl.log.Debug().Err(err).Msg("recv - (error)")
		return
	}

	peek := substr(makeBytesReadable(datafull[:n]), 0, peekLength)
	if n > peekLength {
		peek = peek + "..."
	}

	pl.log.Debug().Int("bytes", n).Msgf("recv - '%s'", peek)
}

func (pl *protocolLogger) logWrite(n int, err error, datafull []byte) {

	if err != nil {
		pl.log.Debug().Err(err).Msg("send - (error)")
		return
	}

	peek := substr(makeBytesReadable(datafull), 0, peekLength)
	if len(datafull) > peekLength {
		peek = peek + "..."
	}
	pl.log.Debug().Int("bytes", n).Msgf("send - '%s'", peek)
}

func (pl *protocolLogger) logClose(peer string) {
	pl.log.Debug().Str("peer", peer).Msg("close")
}

var ASCIIMap = map[byte]string{
	0:  "<NUL>",
	1:  "<SOH>",
	2:  "<STX>",
	3:  "<ETX>",
	4:  "<EOT>",
	5:  "<ENQ>",
	6:  "<ACK>",
	7:  "<BEL>",
	8:  "<BS>",
	9:  "<HT>",
	10: "<LF>",
	11: "<VT>",
	12: "<FF>",
	13: "<CR>",
	14: "<SO>",
	15: "<SI>",
	16: "<DLE>",
	17: "<DC1>",
	18: "<DC2>",
	19: "<DC3>",
	20: "<DC4>",
	21: "<NAK>",
	22: "<SYN>",
	23: "<ETB>",
	24: "<CAN>",
	25: "<EM>",
	26: "<SUB>",
	27: "<ESC>",
	28: "<FS>",
	29: "<GS>",
	30: "<RS>",
	31: "<US>",
}

// MakeBytesReadable replaces control characters with their ASCII mnemonic
func MakeBytesReadable(in []byte) string {
	return makeBytesReadable(in)
}

func makeBytesReadable(in []byte) string {
	ret := ""
	for i := 0; i < len(in); i++ {
		if in[i] < 32 {
			ret = ret + ASCIIMap[in[i]]
		} else {
			ret = ret + string(in[i])
		}
	}
	return ret
}

func substr(input string, start int, length int) string {
	asRunes := []rune(input)

	if start >= len(asRunes) {
		return ""
	}

	if start+length > len(asRunes) {
		length = len(asRunes) - start
	}

	return string(asRunes[start : start+length])
}

/* Implement net.Conn as a wrapper */
type netConnLoggerSpy struct {
	conn           net.Conn
	protocolLogger *protocolLogger
}

func (ls *netConnLoggerSpy) Read(b []byte) (n int, err error) {
	n, err = ls.conn.Read(b)
	if ls.protocolLogger.enableLog {
		ls.protocolLogger.logRead(n, err, b)
	}
	return n, err
}
func (ls *netConnLoggerSpy) Write(b []byte) (n int, err error) {
	n, err = ls.conn.Write(b)
	if ls.protocolLogger.enableLog {
		ls.protocolLogger.logWrite(n, err, b)
	}
	return n, err
}
func (ls *netConnLoggerSpy) Close() error {
	if ls.protocolLogger.enableLog {
		ls.protocolLogger.logClose(ls.conn.RemoteAddr().String())
	}
	return ls.conn.Close()
}
func (ls *netConnLoggerSpy) LocalAddr() net.Addr {
	return ls.conn.LocalAddr()
}
func (ls *netConnLoggerSpy) RemoteAddr() net.Addr {
	return ls.conn.RemoteAddr()
}
func (ls *netConnLoggerSpy) SetDeadline(t time.Time) error {
	return ls.conn.SetDeadline(t)
}
func (ls *netConnLoggerSpy) SetReadDeadline(t time.Time) error {
	return ls.conn.SetReadDeadline(t)
}
func (ls *netConnLoggerSpy) SetWriteDeadline(t time.Time) error {
	return ls.conn.SetWriteDeadline(t)
}

// WrapConnWithLogger returns conn unchanged unless enable is set, in which case every
// read, write and close is traced on logger.
func WrapConnWithLogger(conn net.Conn, logger zerolog.Logger, enable bool) net.Conn {
	if !enable {
		return conn
	}
	return &netConnLoggerSpy{
		conn: conn,
		protocolLogger: &protocolLogger{
			enableLog: enable,
			log:       logger.With().Str("component", "protocol").Logger(),
		},
	}
}
