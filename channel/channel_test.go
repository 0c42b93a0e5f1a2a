package channel

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/events"
	"github.com/azurea-hotel/azurea-sdk-go/sdkerr"
	"github.com/azurea-hotel/azurea-sdk-go/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDialRefused = errors.New("dial refused")

func uncleanClose() error {
	return fmt.Errorf("%w: going away", ws.ErrWSAbnormalClosure)
}

func cleanClose() error {
	return fmt.Errorf("%w: bye", ws.ErrWSNormalClosure)
}

func TestNew(t *testing.T) {
	t.Run("builds socket url from origin", func(t *testing.T) {
		ch := New("https://azurea.example.com", "ws/admin_dashboard/active-bookings/")
		assert.Equal(t, "wss://azurea.example.com/ws/admin_dashboard/active-bookings/", ch.URL())
		assert.Equal(t, StateIdle, ch.State())
	})
	t.Run("panics without path", func(t *testing.T) {
		assert.Panics(t, func() { New("https://azurea.example.com", "") })
	})
	t.Run("panics on bad origin", func(t *testing.T) {
		assert.Panics(t, func() { New("ftp://azurea.example.com", "ws/notifications/") })
	})
}

func TestConnect_EmptyUserIsNoop(t *testing.T) {
	h := newHarness(t, testConfig())

	h.ch.Connect("")

	assert.Equal(t, 0, h.factory.Count())
	assert.Equal(t, StateIdle, h.ch.State())
	assert.Empty(t, h.ch.UserID())
}

func TestConnect_AuthenticatesOnOpen(t *testing.T) {
	h := newHarness(t, testConfig())

	client := h.open(t, "u1")

	assert.Equal(t, "wss://azurea.example.com/ws/notifications/", client.URL)
	assert.Equal(t, "u1", h.ch.UserID())
	stats := h.ch.Stats()
	assert.Equal(t, uint64(1), stats.Attempts)
	assert.Equal(t, 0, stats.Retries)

	assert.Equal(t, 1, h.log.Count("DEBUG [ws/notifications/] state idle -> connecting"))
	assert.Equal(t, 1, h.log.Count("DEBUG [ws/notifications/] state connecting -> open"))
	assert.Equal(t, 1, h.log.Count("INFO [ws/notifications/] open, authenticating as u1"))
}

func TestStateTransitionsAreLogged(t *testing.T) {
	h := newHarness(t, testConfig())

	client := h.open(t, "u1")
	client.Fail(uncleanClose())
	require.Eventually(t, func() bool { return h.sched.Pending() == 1 }, waitFor, tick)

	assert.Equal(t, 1, h.log.Count("state open -> idle"))
	assert.Equal(t, 1, h.log.Count("ERROR [ws/notifications/] closed uncleanly"))
	assert.Equal(t, 1, h.log.Count("INFO [ws/notifications/] reconnecting in 3s (retry 1/5)"))

	require.True(t, h.sched.FireNext())
	fresh := h.awaitOpen(t, "u1")
	h.ch.Connect("u2")

	assert.True(t, fresh.Closed())
	assert.Equal(t, 1, h.log.Count("switching user u1 -> u2"))
	assert.Equal(t, 1, h.log.Count("state open -> closing"))
	assert.Equal(t, 1, h.log.Count("state closing -> idle"))
	assert.Equal(t, 3, h.log.Count("state idle -> connecting"), "first dial, reconnect and switch")

	h.ch.Disconnect()
	assert.Equal(t, 1, h.log.Count("INFO [ws/notifications/] disconnecting"))
}

func TestConnect_SameUserTwiceIsNoop(t *testing.T) {
	h := newHarness(t, testConfig())

	h.open(t, "u1")
	h.clock.Advance(500 * time.Millisecond)
	h.ch.Connect("u1")

	assert.Equal(t, 1, h.factory.Count())
	assert.True(t, h.ch.IsConnected())
}

func TestConnect_Debounce(t *testing.T) {
	h := newHarness(t, testConfig())
	h.factory.ConnectErr = func(n int) error {
		if n == 1 {
			return errDialRefused
		}
		return nil
	}

	h.ch.Connect("u1")
	require.Eventually(t, func() bool { return len(h.sched.Delays()) == 1 }, waitFor, tick)
	require.Equal(t, StateIdle, h.ch.State())

	h.clock.Advance(time.Second)
	h.ch.Connect("u1")
	assert.Equal(t, 1, h.factory.Count(), "second connect inside the window must not dial")

	h.clock.Advance(1500 * time.Millisecond)
	h.ch.Connect("u1")
	assert.Equal(t, 2, h.factory.Count())
	assert.Equal(t, 0, h.sched.Pending(), "manual connect supersedes the pending reconnect")
}

func TestConnect_SwitchUser(t *testing.T) {
	h := newHarness(t, testConfig())

	old := h.open(t, "u1")
	h.ch.Connect("u2")

	assert.True(t, old.Closed())
	fresh := h.awaitOpen(t, "u2")
	assert.False(t, containsFrame(fresh, `{"type":"authenticate","userId":"u1"}`))
	assert.Equal(t, "u2", h.ch.UserID())

	// Late events from the replaced socket are ignored.
	old.Fail(uncleanClose())
	time.Sleep(20 * time.Millisecond)
	assert.True(t, h.ch.IsConnected())
	assert.Empty(t, h.sched.Delays())
}

func TestReconnect_BackoffUntilExhausted(t *testing.T) {
	h := newHarness(t, testConfig())
	h.factory.ConnectErr = func(int) error { return errDialRefused }

	h.ch.Connect("u1")

	want := []time.Duration{
		3 * time.Second,
		4500 * time.Millisecond,
		6750 * time.Millisecond,
		10125 * time.Millisecond,
		15187500 * time.Microsecond,
	}
	for i := range want {
		require.Eventually(t, func() bool { return len(h.sched.Delays()) == i+1 }, waitFor, tick)
		require.True(t, h.sched.FireNext())
	}

	require.Eventually(t, func() bool { return h.ch.Stats().Attempts == 6 }, waitFor, tick)
	require.Eventually(t, func() bool { return h.ch.State() == StateIdle }, waitFor, tick)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, want, h.sched.Delays())
	assert.False(t, h.sched.FireNext(), "no reconnect after the cap")
	assert.Equal(t, 6, h.factory.Count())
	assert.Equal(t, 5, h.ch.Stats().Retries)

	require.Eventually(t, func() bool {
		return h.log.Count("max reconnection attempts reached") == 1
	}, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.log.Count("max reconnection attempts reached"), "terminal failure is logged once")
	assert.Equal(t, 1, h.log.Count("ERROR [ws/notifications/] subsys: channel | op: Channel.reconnect | kind: reconnection attempts exhausted"))
	assert.Equal(t, 5, h.log.Count("reconnecting in "))
	assert.Equal(t, 6, h.log.Count("connect failed: "))
}

func TestReconnect_UncleanCloseUsesBaseDelay(t *testing.T) {
	h := newHarness(t, testConfig())

	client := h.open(t, "u1")
	client.Fail(uncleanClose())

	require.Eventually(t, func() bool { return len(h.sched.Delays()) == 1 }, waitFor, tick)
	assert.Equal(t, 3*time.Second, h.sched.Delays()[0])
	assert.False(t, h.ch.IsConnected())

	require.True(t, h.sched.FireNext())
	h.awaitOpen(t, "u1")
	assert.Equal(t, 0, h.ch.Stats().Retries, "open resets the retry count")

	h.factory.Clients()[1].Fail(uncleanClose())
	require.Eventually(t, func() bool { return len(h.sched.Delays()) == 2 }, waitFor, tick)
	assert.Equal(t, 3*time.Second, h.sched.Delays()[1])
}

func TestReconnect_CleanCloseSkipsBackoff(t *testing.T) {
	h := newHarness(t, testConfig())

	client := h.open(t, "u1")
	client.Fail(cleanClose())

	require.Eventually(t, func() bool { return h.ch.State() == StateIdle }, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, h.sched.Delays())
	assert.Equal(t, 1, h.factory.Count())
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t, testConfig())

	client := h.open(t, "u1")
	h.ch.On(events.TypeInitialCount, func(events.Event) {})
	client.Fail(uncleanClose())
	require.Eventually(t, func() bool { return h.sched.Pending() == 1 }, waitFor, tick)

	h.ch.Disconnect()

	assert.Equal(t, 0, h.sched.Pending(), "pending reconnect cancelled")
	assert.False(t, h.sched.FireNext())
	assert.Equal(t, StateIdle, h.ch.State())
	assert.Equal(t, "u1", h.ch.UserID(), "identity survives for later sends")
	h.ch.mu.Lock()
	assert.Empty(t, h.ch.handlers)
	h.ch.mu.Unlock()
	assert.Equal(t, 0, h.ch.Stats().Retries)

	// The debounce clock is reset too.
	h.ch.Connect("u1")
	assert.Equal(t, 2, h.factory.Count())
}

func TestDisconnect_ClosesOpenSocket(t *testing.T) {
	h := newHarness(t, testConfig())

	client := h.open(t, "u1")
	h.ch.Disconnect()

	assert.True(t, client.Closed())
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, h.sched.Delays(), "explicit disconnect never backs off")
}

func TestSend(t *testing.T) {
	t.Run("writes when open", func(t *testing.T) {
		h := newHarness(t, testConfig())
		client := h.open(t, "u1")

		require.NoError(t, h.ch.Send(events.MarkRead()))
		assert.True(t, containsFrame(client, `{"type":"mark_read"}`))

		require.NoError(t, h.ch.Send(map[string]any{"type": "custom", "n": 1}))
		assert.True(t, containsFrame(client, `{"n":1,"type":"custom"}`))
	})

	t.Run("dropped without identity", func(t *testing.T) {
		h := newHarness(t, testConfig())

		err := h.ch.Send(events.MarkRead())

		assert.ErrorIs(t, err, sdkerr.ErrNotConnected)
		assert.Equal(t, 0, h.factory.Count())
	})

	t.Run("closed with identity reconnects", func(t *testing.T) {
		h := newHarness(t, testConfig())
		client := h.open(t, "u1")
		client.Fail(cleanClose())
		require.Eventually(t, func() bool { return h.ch.State() == StateIdle }, waitFor, tick)

		h.clock.Advance(3 * time.Second)
		err := h.ch.Send(events.MarkRead())

		assert.ErrorIs(t, err, sdkerr.ErrNotConnected)
		fresh := h.awaitOpen(t, "u1")
		assert.False(t, containsFrame(fresh, `{"type":"mark_read"}`), "payload is not replayed")
	})

	t.Run("unencodable payload", func(t *testing.T) {
		h := newHarness(t, testConfig())
		err := h.ch.Send(make(chan int))
		assert.ErrorIs(t, err, sdkerr.ErrValidation)
	})
}

func TestOn_ReplacesHandler(t *testing.T) {
	h := newHarness(t, testConfig())
	client := h.open(t, "u1")

	var mu sync.Mutex
	var calls []string
	h.ch.On(events.TypeUnreadUpdate, func(events.Event) {
		mu.Lock()
		calls = append(calls, "first")
		mu.Unlock()
	})
	h.ch.On(events.TypeUnreadUpdate, func(events.Event) {
		mu.Lock()
		calls = append(calls, "second")
		mu.Unlock()
	})

	client.Push(`{"type":"unread_update","count":2}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, waitFor, tick)
	mu.Lock()
	assert.Equal(t, []string{"second"}, calls)
	mu.Unlock()

	h.ch.Off(events.TypeUnreadUpdate)
	client.Push(`{"type":"unread_update","count":3}`)
	require.Eventually(t, func() bool { return h.ch.Stats().Frames == 2 }, waitFor, tick)
	mu.Lock()
	assert.Len(t, calls, 1)
	mu.Unlock()
}

func TestDispatch_FaultIsolationAndOrder(t *testing.T) {
	h := newHarness(t, testConfig())
	client := h.open(t, "u1")

	got := make(chan int, 16)
	h.ch.On(events.TypeInitialCount, func(events.Event) { panic("boom") })
	h.ch.On(events.TypeUnreadUpdate, func(ev events.Event) {
		got <- ev.(*events.UnreadUpdate).Count
	})

	client.Push(`{not json`)
	client.Push(`{"type":"initial_count","count":1}`)
	for i := 0; i < 10; i++ {
		client.Push(fmt.Sprintf(`{"type":"unread_update","count":%d}`, i))
	}

	for i := 0; i < 10; i++ {
		select {
		case n := <-got:
			assert.Equal(t, i, n)
		case <-time.After(waitFor):
			t.Fatalf("handler not called for frame %d", i)
		}
	}
	assert.True(t, h.ch.IsConnected())
	assert.Empty(t, h.sched.Delays())
}

func TestHeartbeat(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatInterval = 10 * time.Millisecond
	h := newHarness(t, cfg)

	client := h.open(t, "u1")
	require.Eventually(t, func() bool {
		return countFrames(client, `{"type":"heartbeat"}`) >= 2
	}, waitFor, tick)

	client.Fail(cleanClose())
	require.Eventually(t, func() bool { return h.ch.State() == StateIdle }, waitFor, tick)
	h.ch.mu.Lock()
	assert.Nil(t, h.ch.heartbeat)
	h.ch.mu.Unlock()
}

func TestAtMostOneOpenSocket(t *testing.T) {
	h := newHarness(t, testConfig())
	rng := rand.New(rand.NewSource(7))
	users := []string{"u1", "u2", "u3"}

	for i := 0; i < 60; i++ {
		switch rng.Intn(3) {
		case 0, 1:
			h.ch.Connect(users[rng.Intn(len(users))])
		case 2:
			h.ch.Disconnect()
		}
		h.clock.Advance(time.Duration(rng.Intn(3000)) * time.Millisecond)

		open := 0
		for _, c := range h.factory.Clients() {
			if c.Open() {
				open++
			}
		}
		require.LessOrEqual(t, open, 1, "step %d", i)
	}
}

func TestConfig_Backoff(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3*time.Second, cfg.Backoff(0))
	assert.Equal(t, 4500*time.Millisecond, cfg.Backoff(1))
	assert.Equal(t, 3*time.Second, cfg.Backoff(-1))

	cfg.Multiplier = 0
	assert.Equal(t, 1.5, cfg.normalized().Multiplier)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "State(9)", State(9).String())
}
