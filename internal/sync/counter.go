// Package sync holds small lock-free helpers shared by the channel internals.
package sync

import "sync/atomic"

// Counter is a monotonically increasing statistic that can be read from any
// goroutine.
type Counter interface {
	Get() uint64
	Inc() uint64
}

type counter struct {
	value atomic.Uint64
}

func NewCounter() Counter {
	return &counter{}
}

func (c *counter) Get() uint64 {
	return c.value.Load()
}

func (c *counter) Inc() uint64 {
	return c.value.Add(1)
}
