package channel

import "time"

type timer interface {
	Stop() bool
}

// scheduler runs delayed callbacks. Tests swap it to observe backoff delays.
type scheduler interface {
	AfterFunc(d time.Duration, f func()) timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}
