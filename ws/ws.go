package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a single websocket connection. A Client is not reusable: once
// closed, a fresh one has to be built for the next attempt.
type Client interface {
	Connect(context.Context) error
	ReadMessage() ([]byte, error)
	WriteMessage([]byte) error
	Close() error
}

// Conn is the subset of *websocket.Conn the client relies on.
type Conn interface {
	Close() error
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
}

// DialFunc opens the underlying connection.
type DialFunc func(ctx context.Context, url string, header http.Header) (Conn, error)

// Option is a function type for client options.
type Option func(*clientImp)

// Logger is the logging surface used across the SDK.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type clientImp struct {
	dial   DialFunc
	header http.Header
	logger Logger
	url    string

	mu     sync.Mutex
	conn   Conn
	closed bool

	writeMu      sync.Mutex
	writeTimeout time.Duration

	outCh chan msgResult
	done  chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewClient creates a new websocket client for the given URL.
//
// By default:
//   - Inbound frames are buffered in a channel of size 256.
//   - The write timeout is 300 milliseconds.
//   - Dialing uses websocket.DefaultDialer.
//
// Panics if the URL is empty.
func NewClient(url string, opts ...Option) Client {
	if url == "" {
		panic("ws.NewClient: url must not be empty")
	}

	c := &clientImp{
		url:          url,
		dial:         defaultDial,
		writeTimeout: 300 * time.Millisecond,
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.outCh == nil {
		c.outCh = make(chan msgResult, 256)
	}
	return c
}

func defaultDial(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// WithLogger sets the logger for the client.
func WithLogger(l Logger) Option {
	return func(c *clientImp) {
		c.logger = l
	}
}

// WithWriteTimeout sets the per-frame write deadline. The default is 300ms.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *clientImp) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithBufferedOutCh sets the inbound buffer size.
// If n is not positive, it defaults to 256.
func WithBufferedOutCh(n int) Option {
	return func(c *clientImp) {
		if n <= 0 {
			n = 256
		}
		c.outCh = make(chan msgResult, n)
	}
}

// WithHeader adds handshake headers, typically the session cookie.
func WithHeader(h http.Header) Option {
	return func(c *clientImp) {
		c.header = h
	}
}

// WithDialFunc replaces the dialer.
func WithDialFunc(f DialFunc) Option {
	return func(c *clientImp) {
		if f != nil {
			c.dial = f
		}
	}
}
