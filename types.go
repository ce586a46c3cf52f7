package sheetnet

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/blutspende/go-sheetnet/protocol"
)

type TimingConfiguration struct {
	// ConnectTimeout bounds address resolution plus the TCP handshake. 0 = no timeout
	ConnectTimeout time.Duration
	// WriteTimeout bounds every single Send. 0 = no timeout
	WriteTimeout time.Duration
	// ReadChunkSize is the size of one read from the socket
	ReadChunkSize int
}

var DefaultTimingConfiguration = TimingConfiguration{
	ConnectTimeout: time.Second * 5,
	WriteTimeout:   time.Second * 5,
	ReadChunkSize:  4096,
}

type ClientConfiguration struct {
	Timing TimingConfiguration
	Proxy  ProxyType
	// SocksProxy is the host:port of a SOCKS5 gateway to dial through. Empty = dial directly
	SocksProxy string
	// LowLevelProtocol frames the stream, nil selects protocol.Line()
	LowLevelProtocol protocol.Implementation
	// ProtocolTrace logs every read and write of the socket on debug level
	ProtocolTrace bool
	Logger        zerolog.Logger
}

func DefaultClientConfiguration() ClientConfiguration {
	return ClientConfiguration{
		Timing:           DefaultTimingConfiguration,
		Proxy:            NoLoadBalancer,
		LowLevelProtocol: protocol.Line(),
		ProtocolTrace:    protocol.TraceEnabledByEnvironment(),
		Logger:           log.Logger,
	}
}

type ProxyType int

const (
	NoLoadBalancer     ProxyType = 1
	HAProxySendProxyV2 ProxyType = 2
)

type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Failed
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Failed:
		return "Failed"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

type ErrorType int

const (
	ErrorConnect    ErrorType = 1
	ErrorSend       ErrorType = 2
	ErrorReceive    ErrorType = 3
	ErrorDisconnect ErrorType = 4
	ErrorProtocol   ErrorType = 5
	ErrorInternal   ErrorType = 6
)

func (e ErrorType) String() string {
	switch e {
	case ErrorConnect:
		return "connect"
	case ErrorSend:
		return "send"
	case ErrorReceive:
		return "receive"
	case ErrorDisconnect:
		return "disconnect"
	case ErrorProtocol:
		return "protocol"
	case ErrorInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error codes a collaboration server reports with "error <code> <text>"
const (
	ErrorCodeBadCellChange   = 1
	ErrorCodeInvalidCommand  = 2
	ErrorCodeInvalidState    = 3
	ErrorCodeInvalidUsername = 4
)
