package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/sdkerr"
)

// Listing and marking a single notification read are retried twice, one
// second apart, before the error reaches the caller.
const (
	DefaultRetries    = 2
	DefaultRetryDelay = time.Second
)

type retryPolicy struct {
	retries int
	delay   time.Duration
}

func defaultRetry() retryPolicy {
	return retryPolicy{retries: DefaultRetries, delay: DefaultRetryDelay}
}

func (p retryPolicy) validate() error {
	if p.retries < 0 {
		return errInvalid("retries must not be negative")
	}
	if p.delay < 0 {
		return errInvalid("retry delay must not be negative")
	}
	return nil
}

// do runs call until it succeeds, fails permanently, runs out of retries or
// ctx ends during a pause.
func (p retryPolicy) do(ctx context.Context, call func() error) error {
	for attempt := 0; ; attempt++ {
		err := call()
		if err == nil || attempt >= p.retries || !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}

		t := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}
	}
}

// retryable reports whether a later attempt can succeed: transport failures,
// server side errors, throttling and malformed bodies. Other 4xx answers and
// validation errors are final.
func retryable(err error) bool {
	if errors.Is(err, sdkerr.ErrRequestFailed) || errors.Is(err, sdkerr.ErrDecodeError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError || apiErr.Status == http.StatusTooManyRequests
	}
	return false
}
