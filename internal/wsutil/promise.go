// Package wsutil provides the one-shot promise used to wait for a specific
// inbound frame while the read loop keeps running.
package wsutil

import (
	"context"
	"fmt"
	"sync"
)

type PromiseErrSource uint8

const (
	FromUnknown PromiseErrSource = iota
	// FromServer means a matching frame arrived but reported a failure.
	FromServer
	// FromContext means the waiter's context ended first.
	FromContext
	// FromCancel means the promise was abandoned, e.g. on disconnect.
	FromCancel
)

func (s PromiseErrSource) String() string {
	switch s {
	case FromServer:
		return "server"
	case FromContext:
		return "context"
	case FromCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

type PromiseError struct {
	Source PromiseErrSource
	Err    error
}

func (e *PromiseError) Error() string {
	return fmt.Sprintf("promise failed [%s]: %v", e.Source, e.Err)
}

func (e *PromiseError) Unwrap() error {
	return e.Err
}

// Promise settles exactly once, with the first frame its match function
// accepts or with a rejection.
type Promise[T any] interface {
	Match(msg *T) (bool, error)
	Resolve(msg *T)
	Reject(err error)
	Cancel(err error)
	Settled() bool
	Await(ctx context.Context) (*T, error)
}

func NewPromise[T any](matchFn func(*T) (bool, error)) Promise[T] {
	return &promiseImp[T]{
		matchFn: matchFn,
		resCh:   make(chan *T, 1),
		errCh:   make(chan *PromiseError, 1),
	}
}

type promiseImp[T any] struct {
	matchFn func(*T) (bool, error)
	resCh   chan *T
	errCh   chan *PromiseError

	mu      sync.Mutex
	settled bool
}

func (p *promiseImp[T]) Match(msg *T) (bool, error) {
	return p.matchFn(msg)
}

func (p *promiseImp[T]) Resolve(msg *T) {
	if p.settle() {
		p.resCh <- msg
	}
}

func (p *promiseImp[T]) Reject(err error) {
	if p.settle() {
		p.errCh <- &PromiseError{Source: FromServer, Err: err}
	}
}

func (p *promiseImp[T]) Cancel(err error) {
	if p.settle() {
		p.errCh <- &PromiseError{Source: FromCancel, Err: err}
	}
}

func (p *promiseImp[T]) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

func (p *promiseImp[T]) settle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return false
	}
	p.settled = true
	return true
}

func (p *promiseImp[T]) Await(ctx context.Context) (*T, error) {
	select {
	case msg := <-p.resCh:
		return msg, nil
	case err := <-p.errCh:
		return nil, err
	case <-ctx.Done():
		return nil, &PromiseError{Source: FromContext, Err: ctx.Err()}
	}
}
