package channel

import (
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/events"
	"github.com/google/uuid"
)

// Handlers maps event tags to the handlers a consumer wants registered.
type Handlers map[events.Type]Handler

// Lease is one consumer's hold on a shared Channel. The channel stays
// connected while at least one lease is held.
type Lease struct {
	ch    *Channel
	id    string
	types []events.Type
	inert bool
}

// Mount registers a new consumer under a fresh id. See MountAs.
func (c *Channel) Mount(userID string, handlers Handlers) *Lease {
	return c.MountAs(uuid.NewString(), userID, handlers)
}

// MountAs registers consumer id for userID with its handlers. The first
// consumer connects the channel; a consumer whose userID differs from the
// channel's current identity reconnects it under the new identity. Mounting
// an id that is already mounted replaces its handlers without counting it
// twice. An empty userID yields an inert lease that holds nothing.
func (c *Channel) MountAs(id, userID string, handlers Handlers) *Lease {
	if userID == "" {
		return &Lease{ch: c, id: id, inert: true}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	l, mounted := c.consumers[id]
	if mounted {
		for _, t := range l.types {
			c.unregisterOwnedLocked(t, id)
		}
	} else {
		l = &Lease{ch: c, id: id}
		c.consumers[id] = l
	}

	l.types = l.types[:0]
	for t, h := range handlers {
		c.registerLocked(t, id, h)
		l.types = append(l.types, t)
	}

	first := len(c.consumers) == 1 && !mounted
	switchUser := c.userID != "" && c.userID != userID
	c.infof("consumer %s mounted (%d active)", id, len(c.consumers))

	if first {
		c.startLivenessLocked()
	}
	if first || switchUser {
		c.connectLocked(userID, false)
	}
	return l
}

func (l *Lease) ID() string { return l.id }

// Release drops the consumer's handlers that are still its own and, when it
// was the last consumer, disconnects the channel. Safe to call repeatedly.
func (l *Lease) Release() {
	if l.inert {
		return
	}
	c := l.ch

	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.consumers[l.id]; !ok || cur != l {
		return
	}
	delete(c.consumers, l.id)
	for _, t := range l.types {
		c.unregisterOwnedLocked(t, l.id)
	}
	c.infof("consumer %s released (%d active)", l.id, len(c.consumers))

	if len(c.consumers) == 0 {
		c.stopLivenessLocked()
		c.disconnectLocked()
	}
}

func (l *Lease) Send(payload any) error {
	return l.ch.Send(payload)
}

func (l *Lease) IsConnected() bool {
	return l.ch.IsConnected()
}

func (c *Channel) startLivenessLocked() {
	if c.cfg.LivenessInterval <= 0 || c.liveness != nil {
		return
	}

	stop := make(chan struct{})
	c.liveness = stop
	interval := c.cfg.LivenessInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.checkLiveness()
			}
		}
	}()
}

func (c *Channel) stopLivenessLocked() {
	if c.liveness != nil {
		close(c.liveness)
		c.liveness = nil
	}
}

// checkLiveness reconnects a channel that has an identity but no socket and
// no reconnect already scheduled.
func (c *Channel) checkLiveness() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.consumers) == 0 || c.userID == "" || c.reconnectT != nil {
		return
	}
	if c.state == StateOpen || c.state == StateConnecting {
		return
	}
	c.debugf("liveness check: %s, reconnecting as %s", c.state, c.userID)
	c.connectLocked(c.userID, false)
}
