package channel

import (
	"context"
	"errors"

	"github.com/azurea-hotel/azurea-sdk-go/events"
	"github.com/azurea-hotel/azurea-sdk-go/internal/wsutil"
	"github.com/azurea-hotel/azurea-sdk-go/sdkerr"
)

type frame struct {
	ev events.Event
}

// dispatch decodes one inbound frame and hands it to waiters and to the
// handler of its tag. Bad frames and panicking handlers are logged and
// skipped; the connection is left alone.
func (c *Channel) dispatch(gen uint64, data []byte) {
	ev, err := events.Decode(data)
	if err != nil {
		c.errorf("dropping malformed frame: %v", err)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	reg, ok := c.handlers[ev.Type()]
	c.settleWaitersLocked(ev)
	c.mu.Unlock()

	c.frames.Inc()

	if !ok {
		c.debugf("no handler for %s", ev.Type())
		return
	}
	c.invoke(ev, reg.fn)
}

func (c *Channel) invoke(ev events.Event, fn Handler) {
	defer func() {
		if r := recover(); r != nil {
			c.errorf("handler for %s panicked: %v", ev.Type(), r)
		}
	}()
	fn(ev)
}

func (c *Channel) settleWaitersLocked(ev events.Event) {
	if len(c.waiters) == 0 {
		return
	}
	f := &frame{ev: ev}
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		ok, err := w.Match(f)
		if err != nil {
			w.Reject(err)
			continue
		}
		if ok {
			w.Resolve(f)
			continue
		}
		if !w.Settled() {
			kept = append(kept, w)
		}
	}
	c.waiters = kept
}

// Waiter is a registered interest in the next event of one tag.
type Waiter struct {
	c *Channel
	t events.Type
	p wsutil.Promise[frame]
}

// Expect registers interest in the next event tagged t. Events that arrive
// after Expect returns and before Wait is called are not missed.
func (c *Channel) Expect(t events.Type) *Waiter {
	return c.ExpectFunc(t, nil)
}

// ExpectFunc is Expect with a check run on the matching event. A non-nil
// error from check settles the waiter with that error instead of the event.
func (c *Channel) ExpectFunc(t events.Type, check func(events.Event) error) *Waiter {
	p := wsutil.NewPromise(func(f *frame) (bool, error) {
		if f.ev.Type() != t {
			return false, nil
		}
		if check != nil {
			if err := check(f.ev); err != nil {
				return false, err
			}
		}
		return true, nil
	})

	c.mu.Lock()
	c.waiters = append(c.waiters, p)
	c.mu.Unlock()

	return &Waiter{c: c, t: t, p: p}
}

// Wait blocks until the expected event arrives, ctx ends, or the channel
// disconnects. The event still reaches its registered handler. A rejection
// from the ExpectFunc check is returned as is.
func (w *Waiter) Wait(ctx context.Context) (events.Event, error) {
	f, err := w.p.Await(ctx)
	if err == nil {
		return f.ev, nil
	}

	w.c.removeWaiter(w.p)

	var perr *wsutil.PromiseError
	if errors.As(err, &perr) {
		switch perr.Source {
		case wsutil.FromServer:
			return nil, perr.Err
		case wsutil.FromContext:
			return nil, w.c.errFactory("Await", sdkerr.ErrAwaitTimeout, perr.Err).
				WithMessage(string(w.t))
		}
	}
	return nil, w.c.errFactory("Await", sdkerr.ErrNotConnected, err).
		WithMessage(string(w.t))
}

// Await is Expect followed by Wait.
func (c *Channel) Await(ctx context.Context, t events.Type) (events.Event, error) {
	return c.Expect(t).Wait(ctx)
}

func (c *Channel) removeWaiter(p wsutil.Promise[frame]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == p {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}
