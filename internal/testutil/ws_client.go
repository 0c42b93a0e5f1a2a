package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/ws"
)

type mockFrame struct {
	data []byte
	err  error
}

// MockClient is an in-memory ws.Client. Frames are fed with Push, a terminal
// read error with Fail; writes are recorded.
type MockClient struct {
	URL        string
	ConnectErr error

	mu        sync.Mutex
	connected bool
	closed    bool
	written   [][]byte

	inbound   chan mockFrame
	closeCh   chan struct{}
	closeOnce sync.Once
}

func NewMockClient(url string) *MockClient {
	return &MockClient{
		URL:     url,
		inbound: make(chan mockFrame, 64),
		closeCh: make(chan struct{}),
	}
}

func (m *MockClient) Connect(ctx context.Context) error {
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ws.ErrClientClosed
	}
	m.connected = true
	return nil
}

func (m *MockClient) ReadMessage() ([]byte, error) {
	select {
	case f := <-m.inbound:
		return f.data, f.err
	case <-m.closeCh:
		return nil, ws.ErrClientClosed
	}
}

func (m *MockClient) WriteMessage(msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected || m.closed {
		return ws.ErrClientClosed
	}
	cp := make([]byte, len(msg))
	copy(cp, msg)
	m.written = append(m.written, cp)
	return nil
}

func (m *MockClient) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.closeCh)
	})
	return nil
}

// Push delivers an inbound frame.
func (m *MockClient) Push(data string) {
	m.inbound <- mockFrame{data: []byte(data)}
}

// Fail ends the read side with err, as a dropped or closed socket would.
func (m *MockClient) Fail(err error) {
	m.inbound <- mockFrame{err: err}
}

// Written returns the frames written so far as strings.
func (m *MockClient) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.written))
	for i, w := range m.written {
		out[i] = string(w)
	}
	return out
}

// Open reports whether Connect succeeded and Close has not been called.
func (m *MockClient) Open() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected && !m.closed
}

func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockFactory builds MockClients and remembers them in creation order.
type MockFactory struct {
	// ConnectErr, when set, decides the Connect result of the n-th client (1-based).
	ConnectErr func(n int) error

	mu      sync.Mutex
	clients []*MockClient
	created chan *MockClient
}

func NewMockFactory() *MockFactory {
	return &MockFactory{created: make(chan *MockClient, 256)}
}

func (f *MockFactory) New(url string) ws.Client {
	c := NewMockClient(url)

	f.mu.Lock()
	f.clients = append(f.clients, c)
	n := len(f.clients)
	f.mu.Unlock()

	if f.ConnectErr != nil {
		c.ConnectErr = f.ConnectErr(n)
	}
	f.created <- c
	return c
}

func (f *MockFactory) Clients() []*MockClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockClient(nil), f.clients...)
}

func (f *MockFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Next waits for the next client to be built. It returns nil on timeout.
func (f *MockFactory) Next(timeout time.Duration) *MockClient {
	select {
	case c := <-f.created:
		return c
	case <-time.After(timeout):
		return nil
	}
}

var _ ws.Client = (*MockClient)(nil)
