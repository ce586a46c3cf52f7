package sheetnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pires/go-proxyproto"
	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"

	"github.com/blutspende/go-sheetnet/protocol"
)

/* One socket per connect. A Connection that failed may be connected again,
   a closed one may not.
*/
type link struct {
	conn net.Conn
	// receive buffer, only ever touched by the receive loop of this link
	buffer    []byte
	crashOnce sync.Once
	done      chan struct{}
}

type Connection struct {
	id      string
	config  ClientConfiguration
	handler Handler
	log     zerolog.Logger

	mu            sync.Mutex
	state         ConnectionState
	current       *link
	cancelConnect context.CancelFunc

	writeMu sync.Mutex

	callbackMu sync.Mutex
	inCallback atomic.Bool
	closed     atomic.Bool
}

func CreateNewTCPClient(handler Handler, configuration ...ClientConfiguration) *Connection {
	var theconfig ClientConfiguration
	if len(configuration) == 0 {
		theconfig = DefaultClientConfiguration()
	} else {
		theconfig = configuration[0]
	}

	if theconfig.LowLevelProtocol == nil {
		theconfig.LowLevelProtocol = protocol.Line()
	}
	if theconfig.Timing.ReadChunkSize <= 0 {
		theconfig.Timing.ReadChunkSize = DefaultTimingConfiguration.ReadChunkSize
	}
	if theconfig.Proxy == 0 {
		theconfig.Proxy = NoLoadBalancer
	}
	if handler == nil {
		handler = HandlerFuncs{}
	}

	id := uuid.NewString()

	return &Connection{
		id:      id,
		config:  theconfig,
		handler: handler,
		log:     theconfig.Logger.With().Str("connection", id).Logger(),
		state:   Disconnected,
	}
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect resolves the server, opens the socket and starts receiving. An ip literal
// takes precedence over hostName. Blocks until the connection is established, it
// failed, the connect timeout passed or ctx is done.
func (c *Connection) Connect(ctx context.Context, hostName, ipLiteral string, port int) error {
	c.mu.Lock()
	switch c.state {
	case Closed:
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrConnect, ErrClosed)
	case Connecting, Connected:
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.state = Connecting
	c.cancelConnect = cancel
	c.mu.Unlock()

	conn, err := c.dial(ctx, hostName, ipLiteral, port)

	c.mu.Lock()
	c.cancelConnect = nil
	if err != nil {
		if c.state == Connecting {
			c.state = Failed
		}
		c.mu.Unlock()
		c.log.Error().Err(err).Str("type", ErrorConnect.String()).Msg("Connect")
		return err
	}
	if c.state != Connecting {
		// closed while the handshake was in flight
		c.mu.Unlock()
		conn.Close()
		return fmt.Errorf("%w: %w", ErrConnect, ErrClosed)
	}
	l := &link{
		conn:   conn,
		buffer: make([]byte, 0),
		done:   make(chan struct{}),
	}
	c.current = l
	c.state = Connected
	c.mu.Unlock()

	c.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Connected")

	go c.receiveLoop(l)

	return nil
}

// ConnectAsync runs Connect in the background and delivers its result
func (c *Connection) ConnectAsync(ctx context.Context, hostName, ipLiteral string, port int) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- c.Connect(ctx, hostName, ipLiteral, port)
	}()
	return result
}

func (c *Connection) dial(ctx context.Context, hostName, ipLiteral string, port int) (net.Conn, error) {
	if c.config.Timing.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timing.ConnectTimeout)
		defer cancel()
	}

	ip, err := resolveAddress(ctx, hostName, ipLiteral)
	if err != nil {
		return nil, classifyConnectError(ctx, err)
	}

	dialer, err := c.dialer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	address := net.JoinHostPort(ip.String(), strconv.Itoa(port))
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, classifyConnectError(ctx, err)
	}

	if c.config.Proxy == HAProxySendProxyV2 {
		header := proxyproto.HeaderProxyFromAddrs(2, conn.LocalAddr(), conn.RemoteAddr())
		if _, err := header.WriteTo(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w - proxy header: %w", ErrConnect, err)
		}
	}

	return protocol.WrapConnWithLogger(conn, c.log, c.config.ProtocolTrace), nil
}

func (c *Connection) dialer() (proxy.ContextDialer, error) {
	direct := &net.Dialer{}
	if c.config.SocksProxy == "" {
		return direct, nil
	}

	socksDialer, err := proxy.SOCKS5("tcp", c.config.SocksProxy, nil, direct)
	if err != nil {
		return nil, err
	}
	contextDialer, ok := socksDialer.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("socks5 dialer does not support contexts")
	}
	return contextDialer, nil
}

func resolveAddress(ctx context.Context, hostName, ipLiteral string) (net.IP, error) {
	if ip := net.ParseIP(strings.TrimSpace(ipLiteral)); ip != nil {
		return ip, nil
	}

	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return nil, ErrAddress
	}

	addresses, err := net.DefaultResolver.LookupIPAddr(ctx, hostName)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w - %s: %w", ErrAddress, hostName, err)
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("%w - %s has no addresses", ErrAddress, hostName)
	}

	for _, address := range addresses {
		if address.IP.To4() != nil {
			return address.IP, nil
		}
	}
	return addresses[0].IP, nil
}

func classifyConnectError(ctx context.Context, err error) error {
	if errors.Is(err, ErrAddress) {
		return err
	}
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrConnectTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrConnect, err)
}

func (c *Connection) receiveLoop(l *link) {
	defer close(l.done)

	tcpReceiveBuffer := make([]byte, c.config.Timing.ReadChunkSize)

	for {
		n, err := l.conn.Read(tcpReceiveBuffer)

		if n > 0 {
			l.buffer = append(l.buffer, tcpReceiveBuffer[:n]...)
			messages, rest, frameErr := c.config.LowLevelProtocol.Frame(l.buffer)
			l.buffer = rest

			for _, message := range messages {
				if !c.dispatch(l, message) {
					return
				}
			}

			if frameErr != nil {
				c.crash(l, ErrorProtocol, frameErr)
				return
			}
		}

		if err != nil {
			if err == io.EOF {
				err = errors.New("connection closed by peer")
			}
			c.crash(l, ErrorReceive, err)
			return
		}
	}
}

// dispatch hands one line to the handler. Returns false once the loop has to stop.
func (c *Connection) dispatch(l *link, message string) bool {
	var panicked error

	alive := c.invoke(func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = fmt.Errorf("handler panicked on '%s': %v", message, r)
			}
		}()

		cmd := protocol.Parse(message)
		if invalid, ok := cmd.(protocol.Invalid); ok {
			c.log.Warn().Str("type", ErrorProtocol.String()).Str("line", invalid.Line).Msg(invalid.Reason)
		}
		Dispatch(cmd, c.handler)
	})

	if panicked != nil {
		c.crash(l, ErrorInternal, panicked)
		return false
	}
	return alive
}

// invoke serializes callbacks against Close. fn is skipped (and false returned) once
// the connection is closed.
func (c *Connection) invoke(fn func()) bool {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()

	c.inCallback.Store(true)
	defer c.inCallback.Store(false)

	if c.closed.Load() {
		return false
	}
	fn()
	return true
}

func (c *Connection) crash(l *link, errorType ErrorType, err error) {
	if c.closed.Load() {
		c.log.Debug().Err(err).Msg("receive loop stopped after close")
		return
	}

	l.crashOnce.Do(func() {
		c.log.Error().Err(err).Str("type", errorType.String()).Msg("connection crashed")

		c.mu.Lock()
		if c.current == l {
			c.current = nil
			c.state = Failed
		}
		c.mu.Unlock()
		l.conn.Close()

		c.invoke(func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error().Msgf("crash handler panicked: %v", r)
				}
			}()
			c.handler.OnCrash()
		})
	})
}

// Send writes line plus the terminator. Safe for concurrent use, lines never interleave.
func (c *Connection) Send(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("%w: %w", ErrSend, ErrClosed)
	}

	c.mu.Lock()
	l := c.current
	c.mu.Unlock()
	if l == nil {
		return fmt.Errorf("%w: %w", ErrSend, ErrNotConnected)
	}

	if c.config.Timing.WriteTimeout > 0 {
		if err := l.conn.SetWriteDeadline(time.Now().Add(c.config.Timing.WriteTimeout)); err != nil {
			return fmt.Errorf("%w: %w", ErrSend, err)
		}
	}

	data := c.config.LowLevelProtocol.Encode(line)
	n, err := l.conn.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		c.log.Error().Err(err).Str("type", ErrorSend.String()).Msg("Send")
		return fmt.Errorf("%w: %w", ErrSend, err)
	}

	return nil
}

// Close releases the socket. Idempotent. No callback starts after Close returned;
// calling it from within a callback is fine.
func (c *Connection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.mu.Lock()
	l := c.current
	c.current = nil
	c.state = Closed
	cancel := c.cancelConnect
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if l != nil {
		err = l.conn.Close()
		if err != nil {
			c.log.Error().Err(err).Str("type", ErrorDisconnect.String()).Msg("Close")
		}
	}

	if !c.inCallback.Load() {
		// wait for a callback that might just be starting
		c.callbackMu.Lock()
		c.callbackMu.Unlock()
		if l != nil {
			<-l.done
		}
	}

	c.log.Info().Msg("Closed")
	return err
}

func (c *Connection) RemoteAddress() (string, error) {
	c.mu.Lock()
	l := c.current
	c.mu.Unlock()

	if l == nil {
		return "", ErrNotConnected
	}
	host, _, err := net.SplitHostPort(l.conn.RemoteAddr().String())
	return host, err
}
