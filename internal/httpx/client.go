package httpx

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/transport"
)

const defaultTimeout = 15 * time.Second

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient is the transport.HTTPClient used when a service is not
// given one.
type DefaultHTTPClient struct {
	client httpDoer
}

func NewDefaultHTTPClient() *DefaultHTTPClient {
	return &DefaultHTTPClient{
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// NewHTTPClient wraps c. A nil c gets the default timeout.
func NewHTTPClient(c *http.Client) *DefaultHTTPClient {
	if c == nil {
		return NewDefaultHTTPClient()
	}
	return &DefaultHTTPClient{client: c}
}

func (d *DefaultHTTPClient) Do(ctx context.Context, r *transport.Request) (*transport.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.FullURL, r.Body)
	if err != nil {
		return nil, err
	}

	for k, vs := range r.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for _, c := range r.Cookies {
		req.AddCookie(c)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &transport.Response{
		Body:       body,
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
	}, nil
}

var _ transport.HTTPClient = (*DefaultHTTPClient)(nil)
