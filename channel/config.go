package channel

import (
	"math"
	"time"
)

// Config holds the timing knobs of a Channel. Start from DefaultConfig and
// override what is needed.
type Config struct {
	// DebounceWindow ignores a same-user Connect arriving this soon after the
	// previous attempt.
	DebounceWindow time.Duration
	// LivenessInterval is how often mounted consumers re-check the socket.
	LivenessInterval time.Duration
	// HeartbeatInterval is the keep-alive period while open. Zero disables it.
	HeartbeatInterval time.Duration
	// BaseDelay is the first reconnect delay after an unclean close.
	BaseDelay time.Duration
	// Multiplier grows the delay per consecutive failure.
	Multiplier float64
	// MaxRetries caps consecutive reconnect attempts.
	MaxRetries int
	// WriteTimeout bounds every frame write.
	WriteTimeout time.Duration
	// LocalBackendAddr replaces a "localhost" origin host, since the dev
	// frontend and backend listen on different ports.
	LocalBackendAddr string
}

func DefaultConfig() Config {
	return Config{
		DebounceWindow:    2 * time.Second,
		LivenessInterval:  5 * time.Second,
		HeartbeatInterval: 25 * time.Second,
		BaseDelay:         3 * time.Second,
		Multiplier:        1.5,
		MaxRetries:        5,
		WriteTimeout:      300 * time.Millisecond,
		LocalBackendAddr:  "localhost:8000",
	}
}

// Backoff returns the delay before the reconnect that follows retry
// consecutive failures: BaseDelay * Multiplier^retry.
func (c Config) Backoff(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	return time.Duration(float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(retry)))
}

func (c Config) normalized() Config {
	if c.Multiplier < 1 {
		c.Multiplier = DefaultConfig().Multiplier
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}
