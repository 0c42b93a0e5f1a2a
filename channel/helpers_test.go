package channel

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/internal/testutil"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeTimer struct {
	s       *fakeScheduler
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, f: f}
	s.delays = append(s.delays, d)
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func (s *fakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// FireNext runs the oldest live timer and reports whether there was one.
func (s *fakeScheduler) FireNext() bool {
	s.mu.Lock()
	var next *fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			next = t
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	s.mu.Unlock()

	if next == nil {
		return false
	}
	next.f()
	return true
}

// recordLogger keeps every line as "LEVEL message".
type recordLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recordLogger) Debugf(format string, args ...any) { l.record("DEBUG", format, args...) }
func (l *recordLogger) Infof(format string, args ...any)  { l.record("INFO", format, args...) }
func (l *recordLogger) Errorf(format string, args ...any) { l.record("ERROR", format, args...) }

func (l *recordLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// Count returns how many lines contain substr.
func (l *recordLogger) Count(substr string) int {
	n := 0
	for _, line := range l.Lines() {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

type harness struct {
	ch      *Channel
	factory *testutil.MockFactory
	sched   *fakeScheduler
	clock   *fakeClock
	log     *recordLogger
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HeartbeatInterval = 0
	cfg.LivenessInterval = 0
	return cfg
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		factory: testutil.NewMockFactory(),
		sched:   &fakeScheduler{},
		clock:   newFakeClock(),
		log:     &recordLogger{},
	}

	all := append([]Option{
		WithConfig(cfg),
		WithLogger(h.log),
		WithClientFactory(h.factory.New),
		func(c *Channel) {
			c.sched = h.sched
			c.now = h.clock.Now
		},
	}, opts...)

	h.ch = New("https://azurea.example.com", "ws/notifications/", all...)
	t.Cleanup(h.ch.Disconnect)
	return h
}

// open connects as userID and waits for the socket to be authenticated.
func (h *harness) open(t *testing.T, userID string) *testutil.MockClient {
	t.Helper()
	h.ch.Connect(userID)
	return h.awaitOpen(t, userID)
}

func (h *harness) awaitOpen(t *testing.T, userID string) *testutil.MockClient {
	t.Helper()
	client := h.factory.Next(waitFor)
	require.NotNil(t, client, "no socket was dialed")
	require.Eventually(t, func() bool {
		return h.ch.IsConnected() && containsFrame(client, `{"type":"authenticate","userId":"`+userID+`"}`)
	}, waitFor, tick)
	return client
}

func containsFrame(c *testutil.MockClient, frame string) bool {
	for _, w := range c.Written() {
		if w == frame {
			return true
		}
	}
	return false
}

func countFrames(c *testutil.MockClient, frame string) int {
	n := 0
	for _, w := range c.Written() {
		if w == frame {
			n++
		}
	}
	return n
}
