// Package channel manages one real-time feed of the hotel backend: a single
// socket per channel path, authenticated with a user id, kept alive with
// heartbeats, reconnected with exponential backoff after unclean closes, and
// shared between any number of consumers through reference-counted leases.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/events"
	isync "github.com/azurea-hotel/azurea-sdk-go/internal/sync"
	"github.com/azurea-hotel/azurea-sdk-go/internal/wsutil"
	"github.com/azurea-hotel/azurea-sdk-go/sdkerr"
	"github.com/azurea-hotel/azurea-sdk-go/ws"
)

const subsys = "channel"

// State is the connection state of a Channel.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Handler receives decoded events of the tag it was registered for.
type Handler func(events.Event)

// Option configures a Channel.
type Option func(*Channel)

type registration struct {
	owner string
	fn    Handler
}

// Stats is a point-in-time snapshot of a Channel.
type Stats struct {
	State     State
	UserID    string
	Attempts  uint64
	Frames    uint64
	Retries   int
	Consumers int
}

// Channel owns the socket of one endpoint path.
type Channel struct {
	path    string
	url     string
	cfg     Config
	header  http.Header
	factory func(url string) ws.Client
	logger  ws.Logger
	sched   scheduler
	now     func() time.Time

	attempts isync.Counter
	frames   isync.Counter

	mu          sync.Mutex
	state       State
	client      ws.Client
	cancel      context.CancelFunc
	gen         uint64
	userID      string
	lastAttempt time.Time
	retries     int
	reconnectT  timer
	heartbeat   chan struct{}
	handlers    map[events.Type]registration
	waiters     []wsutil.Promise[frame]
	consumers   map[string]*Lease
	liveness    chan struct{}
}

// New creates a Channel for path, resolving the socket URL from origin
// (e.g. "https://hotel.example.com").
//
// Panics if path is empty or origin cannot be turned into a socket URL.
func New(origin, path string, opts ...Option) *Channel {
	if path == "" {
		panic("channel.New: path is required")
	}

	c := &Channel{
		path:      path,
		cfg:       DefaultConfig(),
		sched:     realScheduler{},
		now:       time.Now,
		attempts:  isync.NewCounter(),
		frames:    isync.NewCounter(),
		handlers:  make(map[events.Type]registration),
		consumers: make(map[string]*Lease),
	}

	for _, opt := range opts {
		opt(c)
	}
	c.cfg = c.cfg.normalized()

	u, err := BuildURL(origin, path, c.cfg.LocalBackendAddr)
	if err != nil {
		panic(fmt.Sprintf("channel.New: %v", err))
	}
	c.url = u

	if c.factory == nil {
		c.factory = func(url string) ws.Client {
			return ws.NewClient(url,
				ws.WithLogger(c.logger),
				ws.WithWriteTimeout(c.cfg.WriteTimeout),
				ws.WithHeader(c.header),
			)
		}
	}
	return c
}

// WithConfig replaces the timing configuration.
func WithConfig(cfg Config) Option {
	return func(c *Channel) {
		c.cfg = cfg
	}
}

// WithLogger sets the logger used for every state transition.
func WithLogger(l ws.Logger) Option {
	return func(c *Channel) {
		c.logger = l
	}
}

// WithHeader sets handshake headers, usually the session cookie.
func WithHeader(h http.Header) Option {
	return func(c *Channel) {
		c.header = h
	}
}

// WithClientFactory replaces how sockets are built. Useful for tests and
// custom dialers.
func WithClientFactory(f func(url string) ws.Client) Option {
	return func(c *Channel) {
		c.factory = f
	}
}

func (c *Channel) Path() string { return c.path }

func (c *Channel) URL() string { return c.url }

// Connect opens the socket for userID and returns immediately; the outcome
// surfaces through events and logs. It is a no-op for an empty userID, while
// the socket is open or connecting for the same user, and for same-user calls
// inside the debounce window. A different user replaces the current socket.
func (c *Channel) Connect(userID string) {
	if userID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked(userID, false)
}

func (c *Channel) connectLocked(userID string, retry bool) {
	now := c.now()

	if userID == c.userID {
		switch c.state {
		case StateOpen, StateConnecting:
			c.debugf("connect as %s ignored: already %s", userID, c.state)
			return
		}
		if !retry && !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < c.cfg.DebounceWindow {
			c.debugf("connect as %s debounced", userID)
			return
		}
	} else {
		if c.client != nil {
			c.infof("switching user %s -> %s, closing current socket", c.userID, userID)
			c.teardownSocketLocked()
		}
		c.retries = 0
	}

	c.stopReconnectLocked()
	c.userID = userID
	c.lastAttempt = now
	c.gen++
	gen := c.gen

	ctx, cancel := context.WithCancel(context.Background())
	client := c.factory(c.url)
	c.client = client
	c.cancel = cancel
	c.setStateLocked(StateConnecting)

	attempt := c.attempts.Inc()
	c.infof("dialing %s as user %s (attempt %d, retry %d)", c.url, userID, attempt, c.retries)

	go c.run(ctx, gen, client)
}

// Disconnect cancels any pending reconnect, closes the socket, stops the
// heartbeat, clears every handler and waiter, and resets retry state. The
// last user id is kept so a later Send can reconnect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectLocked()
}

func (c *Channel) disconnectLocked() {
	c.infof("disconnecting")
	c.stopReconnectLocked()
	c.teardownSocketLocked()

	c.handlers = make(map[events.Type]registration)
	for _, w := range c.waiters {
		w.Cancel(sdkerr.ErrNotConnected)
	}
	c.waiters = nil

	c.retries = 0
	c.lastAttempt = time.Time{}
}

// Send encodes payload as JSON and writes it when the socket is open. When
// it is not, the payload is dropped with ErrNotConnected and, if a user is
// known and no dial is in flight, a connection attempt is started.
func (c *Channel) Send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return c.errFactory("Send", sdkerr.ErrValidation, err)
	}

	c.mu.Lock()
	if c.state != StateOpen || c.client == nil {
		if c.state != StateConnecting && c.userID != "" {
			c.debugf("send while %s, reconnecting as %s", c.state, c.userID)
			c.connectLocked(c.userID, false)
		}
		c.mu.Unlock()
		return c.errFactory("Send", sdkerr.ErrNotConnected, nil).
			WithMessage("payload dropped")
	}
	client := c.client
	c.mu.Unlock()

	if err := client.WriteMessage(data); err != nil {
		return c.errFactory("Send", sdkerr.ErrWSWrite, err)
	}
	return nil
}

// On registers h for tag t, replacing any previous handler for t.
func (c *Channel) On(t events.Type, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registerLocked(t, "", h)
}

// Off removes the handler for tag t.
func (c *Channel) Off(t events.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, t)
}

func (c *Channel) registerLocked(t events.Type, owner string, h Handler) {
	if h == nil {
		delete(c.handlers, t)
		return
	}
	if _, ok := c.handlers[t]; ok {
		c.debugf("handler for %s replaced", t)
	}
	c.handlers[t] = registration{owner: owner, fn: h}
}

func (c *Channel) unregisterOwnedLocked(t events.Type, owner string) {
	if reg, ok := c.handlers[t]; ok && reg.owner == owner {
		delete(c.handlers, t)
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) IsConnected() bool {
	return c.State() == StateOpen
}

// UserID is the identity of the last connect; empty if never connected.
func (c *Channel) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Channel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		State:     c.state,
		UserID:    c.userID,
		Attempts:  c.attempts.Get(),
		Frames:    c.frames.Get(),
		Retries:   c.retries,
		Consumers: len(c.consumers),
	}
}

func (c *Channel) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.debugf("state %s -> %s", c.state, s)
	c.state = s
}

// teardownSocketLocked closes the current socket and bumps the generation so
// late callbacks from it are ignored.
func (c *Channel) teardownSocketLocked() {
	c.gen++
	c.stopHeartbeatLocked()

	if c.client != nil {
		c.setStateLocked(StateClosing)
		if err := c.client.Close(); err != nil {
			c.errorf("close socket: %v", err)
		}
		c.client = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.setStateLocked(StateIdle)
}

func (c *Channel) errFactory(op string, kind error, cause error) *sdkerr.SDKError {
	return sdkerr.New(subsys, fmt.Sprintf("Channel.%s", op)).
		WithKind(kind).
		WithCause(cause)
}

func (c *Channel) debugf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Debugf("[%s] "+format, append([]any{c.path}, args...)...)
	}
}

func (c *Channel) infof(format string, args ...any) {
	if c.logger != nil {
		c.logger.Infof("[%s] "+format, append([]any{c.path}, args...)...)
	}
}

func (c *Channel) errorf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Errorf("[%s] "+format, append([]any{c.path}, args...)...)
	}
}
