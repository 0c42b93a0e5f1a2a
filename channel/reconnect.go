package channel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/events"
	"github.com/azurea-hotel/azurea-sdk-go/sdkerr"
	"github.com/azurea-hotel/azurea-sdk-go/ws"
)

// run drives one socket from dial to close. gen identifies the socket; any
// callback whose gen no longer matches the channel's is discarded.
func (c *Channel) run(ctx context.Context, gen uint64, client ws.Client) {
	if err := client.Connect(ctx); err != nil {
		c.handleFailure(gen, c.errFactory("Connect", sdkerr.ErrWSConnection, err))
		return
	}

	if !c.handleOpen(gen, client) {
		_ = client.Close()
		return
	}

	for {
		data, err := client.ReadMessage()
		if err != nil {
			c.handleClose(gen, client, err)
			return
		}
		c.dispatch(gen, data)
	}
}

func (c *Channel) handleOpen(gen uint64, client ws.Client) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.setStateLocked(StateOpen)
	c.retries = 0
	c.startHeartbeatLocked(client)
	userID := c.userID
	c.mu.Unlock()

	c.infof("open, authenticating as %s", userID)
	if err := writeJSON(client, events.Authenticate(userID)); err != nil {
		c.errorf("send authenticate: %v", err)
	}
	return true
}

func (c *Channel) handleFailure(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}

	c.errorf("connect failed: %v", err)
	c.client = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.setStateLocked(StateIdle)
	c.scheduleReconnectLocked()
}

func (c *Channel) handleClose(gen uint64, client ws.Client, err error) {
	_ = client.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}

	c.stopHeartbeatLocked()
	c.client = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.setStateLocked(StateIdle)

	if ws.IsCleanClose(err) {
		c.infof("closed cleanly")
		return
	}
	c.errorf("closed uncleanly: %v", err)
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the backoff timer, or logs the terminal
// failure once MaxRetries consecutive attempts have failed.
func (c *Channel) scheduleReconnectLocked() {
	if c.retries >= c.cfg.MaxRetries {
		err := c.errFactory("reconnect", sdkerr.ErrRetriesExhausted, nil).
			WithMessage("max reconnection attempts reached")
		c.errorf("%v (%d)", err, c.cfg.MaxRetries)
		return
	}

	delay := c.cfg.Backoff(c.retries)
	gen := c.gen
	c.stopReconnectLocked()
	c.infof("reconnecting in %s (retry %d/%d)", delay, c.retries+1, c.cfg.MaxRetries)
	c.reconnectT = c.sched.AfterFunc(delay, func() {
		c.reconnect(gen)
	})
}

func (c *Channel) reconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.userID == "" {
		return
	}

	c.reconnectT = nil
	c.retries++
	if c.retries > c.cfg.MaxRetries {
		return
	}
	c.connectLocked(c.userID, true)
}

func (c *Channel) stopReconnectLocked() {
	if c.reconnectT != nil {
		c.reconnectT.Stop()
		c.reconnectT = nil
	}
}

func (c *Channel) startHeartbeatLocked(client ws.Client) {
	c.stopHeartbeatLocked()
	if c.cfg.HeartbeatInterval <= 0 {
		return
	}

	stop := make(chan struct{})
	c.heartbeat = stop
	interval := c.cfg.HeartbeatInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := writeJSON(client, events.Heartbeat()); err != nil {
					c.debugf("heartbeat: %v", err)
				}
			}
		}
	}()
}

func (c *Channel) stopHeartbeatLocked() {
	if c.heartbeat != nil {
		close(c.heartbeat)
		c.heartbeat = nil
	}
}

func writeJSON(client ws.Client, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.WriteMessage(data)
}
