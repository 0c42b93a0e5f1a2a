// Package transport defines the HTTP abstraction the REST services are
// written against, so callers can inject their own client or a fake.
package transport

import (
	"context"
	"io"
	"net/http"
)

// HTTPClient executes a Request and buffers the whole response. Implementations
// must honor ctx.
type HTTPClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

type Request struct {
	Method  string
	FullURL string
	Headers http.Header
	Cookies []*http.Cookie
	Body    io.Reader
}

type Response struct {
	Body       []byte
	StatusCode int
	Headers    http.Header
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
