package rest

import (
	"context"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/events"
	"github.com/azurea-hotel/azurea-sdk-go/internal/httpx"
	"github.com/azurea-hotel/azurea-sdk-go/transport"
)

// NotificationService groups the notification endpoints behind one set of
// credentials.
type NotificationService struct {
	baseURL     string
	accessToken string
	client      transport.HTTPClient
	retry       retryPolicy
}

// NewNotificationService creates a NotificationService for the API at
// baseURL (e.g. "https://api.hotel.example.com").
func NewNotificationService(baseURL, accessToken string) *NotificationService {
	return &NotificationService{
		baseURL:     baseURL,
		accessToken: accessToken,
		client:      httpx.NewDefaultHTTPClient(),
		retry:       defaultRetry(),
	}
}

// WithClient sets the HTTP client used by every call.
func (s *NotificationService) WithClient(client transport.HTTPClient) *NotificationService {
	s.client = client
	return s
}

// WithRetry sets the retry count and pause used by List and MarkRead.
func (s *NotificationService) WithRetry(retries int, delay time.Duration) *NotificationService {
	s.retry = retryPolicy{retries: retries, delay: delay}
	return s
}

// List fetches limit notifications starting at offset.
func (s *NotificationService) List(ctx context.Context, limit, offset int) (*NotificationPage, error) {
	return NewListNotificationsService(s.baseURL, s.accessToken).
		WithClient(s.client).
		Limit(limit).
		Offset(offset).
		Retries(s.retry.retries).
		RetryDelay(s.retry.delay).
		Do(ctx)
}

func (s *NotificationService) MarkRead(ctx context.Context, id events.ID) error {
	_, err := NewMarkReadService(s.baseURL, s.accessToken, id).
		WithClient(s.client).
		Retries(s.retry.retries).
		RetryDelay(s.retry.delay).
		Do(ctx)
	return err
}

func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	_, err := NewMarkAllReadService(s.baseURL, s.accessToken).
		WithClient(s.client).
		Do(ctx)
	return err
}
