package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/internal/httpx"
	"github.com/azurea-hotel/azurea-sdk-go/sdkerr"
	"github.com/azurea-hotel/azurea-sdk-go/transport"
)

// ListNotificationsService fetches a page of notifications.
type ListNotificationsService struct {
	client     transport.HTTPClient
	reqBuilder *httpx.RequestBuilder
	limit      *int
	offset     *int
	retry      retryPolicy
}

// NewListNotificationsService creates a new ListNotificationsService.
// The backend defaults to limit 10, offset 0.
func NewListNotificationsService(baseURL, accessToken string) *ListNotificationsService {
	return &ListNotificationsService{
		client:     httpx.NewDefaultHTTPClient(),
		reqBuilder: newRequestBuilder(baseURL, accessToken),
		retry:      defaultRetry(),
	}
}

// WithClient sets the HTTP client for the service.
func (s *ListNotificationsService) WithClient(client transport.HTTPClient) *ListNotificationsService {
	s.client = client
	return s
}

func (s *ListNotificationsService) Limit(n int) *ListNotificationsService {
	s.limit = &n
	return s
}

func (s *ListNotificationsService) Offset(n int) *ListNotificationsService {
	s.offset = &n
	return s
}

// Retries sets how many times a failed attempt is repeated. Zero disables
// retrying.
func (s *ListNotificationsService) Retries(n int) *ListNotificationsService {
	s.retry.retries = n
	return s
}

func (s *ListNotificationsService) RetryDelay(d time.Duration) *ListNotificationsService {
	s.retry.delay = d
	return s
}

// Do executes the service.
func (s *ListNotificationsService) Do(ctx context.Context) (*NotificationPage, error) {
	op := "ListNotificationsService.Do"

	if err := s.validate(); err != nil {
		return nil, sdkerr.New(subsys, op).
			WithKind(sdkerr.ErrValidation).
			WithCause(err)
	}

	req := s.reqBuilder.
		WithMethod(http.MethodGet).
		WithPath("/notifications").
		WithQuery(s.buildQuery()).
		Build()

	var page *NotificationPage
	err := s.retry.do(ctx, func() error {
		resp, err := s.client.Do(ctx, req)
		if err != nil {
			return sdkerr.New(subsys, op).
				WithKind(sdkerr.ErrRequestFailed).
				WithCause(err)
		}

		if err := checkResponseError(resp.StatusCode, resp.Body); err != nil {
			return sdkerr.New(subsys, op).
				WithKind(sdkerr.ErrAPIError).
				WithCause(err)
		}

		page, err = decodePage(resp.Body, op)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// decodePage rejects bodies without a notifications list, which the backend
// only omits when something upstream went wrong.
func decodePage(data []byte, op string) (*NotificationPage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, sdkerr.New(subsys, op).
			WithKind(sdkerr.ErrDecodeError).
			WithCause(err)
	}
	if _, ok := fields["notifications"]; !ok {
		return nil, sdkerr.New(subsys, op).
			WithKind(sdkerr.ErrDecodeError).
			WithMessage("invalid response format: no notifications field")
	}
	return decodeResponse[NotificationPage](data, op)
}

func (s *ListNotificationsService) validate() error {
	if s.limit != nil && *s.limit <= 0 {
		return errInvalid("limit must be positive")
	}
	if s.offset != nil && *s.offset < 0 {
		return errInvalid("offset must not be negative")
	}
	return s.retry.validate()
}

func (s *ListNotificationsService) buildQuery() url.Values {
	q := make(url.Values)
	if s.limit != nil {
		q.Set("limit", strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		q.Set("offset", strconv.Itoa(*s.offset))
	}
	return q
}
