package rest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/events"
	"github.com/azurea-hotel/azurea-sdk-go/internal/httpx"
	"github.com/azurea-hotel/azurea-sdk-go/sdkerr"
	"github.com/azurea-hotel/azurea-sdk-go/transport"
)

// MarkReadService marks a single notification read. The backend follows up
// with unread_update on the notification channel.
type MarkReadService struct {
	client     transport.HTTPClient
	reqBuilder *httpx.RequestBuilder
	id         events.ID
	retry      retryPolicy
}

// NewMarkReadService creates a new MarkReadService for notification id.
func NewMarkReadService(baseURL, accessToken string, id events.ID) *MarkReadService {
	return &MarkReadService{
		client:     httpx.NewDefaultHTTPClient(),
		reqBuilder: newRequestBuilder(baseURL, accessToken),
		id:         id,
		retry:      defaultRetry(),
	}
}

// WithClient sets the HTTP client for the service.
func (s *MarkReadService) WithClient(client transport.HTTPClient) *MarkReadService {
	s.client = client
	return s
}

// Retries sets how many times a failed attempt is repeated. Zero disables
// retrying.
func (s *MarkReadService) Retries(n int) *MarkReadService {
	s.retry.retries = n
	return s
}

func (s *MarkReadService) RetryDelay(d time.Duration) *MarkReadService {
	s.retry.delay = d
	return s
}

// Do executes the service.
func (s *MarkReadService) Do(ctx context.Context) (*Ack, error) {
	op := "MarkReadService.Do"
	if s.id == "" {
		return nil, sdkerr.New(subsys, op).
			WithKind(sdkerr.ErrValidation).
			WithMessage("notification id is required")
	}
	if err := s.retry.validate(); err != nil {
		return nil, sdkerr.New(subsys, op).
			WithKind(sdkerr.ErrValidation).
			WithCause(err)
	}

	path := "/notifications/" + url.PathEscape(string(s.id)) + "/read"
	var ack *Ack
	err := s.retry.do(ctx, func() error {
		var err error
		ack, err = patch(ctx, s.client, s.reqBuilder, path, op)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ack, nil
}

// MarkAllReadService marks every notification of the user read. It is sent
// once; callers decide whether to repeat it.
type MarkAllReadService struct {
	client     transport.HTTPClient
	reqBuilder *httpx.RequestBuilder
}

// NewMarkAllReadService creates a new MarkAllReadService.
func NewMarkAllReadService(baseURL, accessToken string) *MarkAllReadService {
	return &MarkAllReadService{
		client:     httpx.NewDefaultHTTPClient(),
		reqBuilder: newRequestBuilder(baseURL, accessToken),
	}
}

// WithClient sets the HTTP client for the service.
func (s *MarkAllReadService) WithClient(client transport.HTTPClient) *MarkAllReadService {
	s.client = client
	return s
}

// Do executes the service.
func (s *MarkAllReadService) Do(ctx context.Context) (*Ack, error) {
	return patch(ctx, s.client, s.reqBuilder, "/notifications/read-all", "MarkAllReadService.Do")
}

func patch(ctx context.Context, client transport.HTTPClient, b *httpx.RequestBuilder, path, op string) (*Ack, error) {
	req := b.
		WithMethod(http.MethodPatch).
		WithPath(path).
		WithQuery(nil).
		Build()

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, sdkerr.New(subsys, op).
			WithKind(sdkerr.ErrRequestFailed).
			WithCause(err)
	}

	if err := checkResponseError(resp.StatusCode, resp.Body); err != nil {
		return nil, sdkerr.New(subsys, op).
			WithKind(sdkerr.ErrAPIError).
			WithCause(err)
	}

	return decodeResponse[Ack](resp.Body, op)
}
