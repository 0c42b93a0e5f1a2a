package sdkerr

import (
	"errors"
	"fmt"
	"strings"
)

// rest
var (
	// ErrValidation indicates invalid caller input.
	ErrValidation = errors.New("validation error")
	// ErrRequestFailed indicates the HTTP round trip failed.
	ErrRequestFailed = errors.New("request failed")
	// ErrAPIError indicates the backend answered with a non-2xx status.
	ErrAPIError = errors.New("api error")
	// ErrDecodeError indicates a response or frame could not be decoded.
	ErrDecodeError = errors.New("decode error")
)

// ws
var (
	// ErrWSConnection indicates the socket could not be established.
	ErrWSConnection = errors.New("websocket connection error")
	// ErrWSWrite indicates a frame could not be written.
	ErrWSWrite = errors.New("websocket write failed")
	// ErrWSRead indicates the read side of the socket failed.
	ErrWSRead = errors.New("websocket read failed")
	// ErrWSClose indicates the socket failed to close.
	ErrWSClose = errors.New("websocket close failed")
	// ErrNotConnected indicates a send on a channel without an open socket.
	ErrNotConnected = errors.New("channel not connected")
	// ErrRetriesExhausted indicates the reconnection budget ran out.
	ErrRetriesExhausted = errors.New("reconnection attempts exhausted")
	// ErrAuthRejected indicates the backend refused the authentication frame.
	ErrAuthRejected = errors.New("authentication rejected")
	// ErrAwaitTimeout indicates a waiter gave up before the event arrived.
	ErrAwaitTimeout = errors.New("event wait timed out")
)

// SDKError carries the failing subsystem and operation next to the error kind
// and its underlying cause.
type SDKError struct {
	kind    error
	message string
	cause   error
	op      string
	subsys  string
}

// Error renders the non-empty parts as "key: value" pairs joined by " | ".
func (e *SDKError) Error() string {
	var parts []string

	if e.subsys != "" {
		parts = append(parts, fmt.Sprintf("subsys: %s", e.subsys))
	}
	if e.op != "" {
		parts = append(parts, fmt.Sprintf("op: %s", e.op))
	}
	if e.kind != nil {
		parts = append(parts, fmt.Sprintf("kind: %s", e.kind))
	}
	if e.message != "" {
		parts = append(parts, fmt.Sprintf("msg: %s", e.message))
	}
	if e.cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %s", e.cause))
	}

	return strings.Join(parts, " | ")
}

// Is matches target against the kind first, then the cause chain.
func (e *SDKError) Is(target error) bool {
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// As looks for target in the kind, then in the cause chain.
func (e *SDKError) As(target any) bool {
	if e.kind != nil && errors.As(e.kind, target) {
		return true
	}
	return e.cause != nil && errors.As(e.cause, target)
}

func (e *SDKError) Unwrap() error { return e.cause }

func (e *SDKError) Kind() error { return e.kind }

func (e *SDKError) Message() string { return e.message }

func (e *SDKError) Cause() error { return e.cause }

func (e *SDKError) Op() string { return e.op }

func (e *SDKError) Subsys() string { return e.subsys }

// New starts an empty error for subsys and op; the remaining fields are
// filled through the With* setters.
func New(subsys, op string) *SDKError {
	return &SDKError{subsys: subsys, op: op}
}

func (e *SDKError) WithKind(kind error) *SDKError {
	e.kind = kind
	return e
}

func (e *SDKError) WithMessage(msg string) *SDKError {
	e.message = msg
	return e
}

func (e *SDKError) WithCause(err error) *SDKError {
	e.cause = err
	return e
}
