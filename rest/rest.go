// Package rest is the HTTP side of the guest notification bell: listing
// notifications and marking them read. Requests authenticate with the
// backend's access_token cookie.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/azurea-hotel/azurea-sdk-go/internal/httpx"
	"github.com/azurea-hotel/azurea-sdk-go/sdkerr"
)

const (
	subsys = "rest"

	// GuestPrefix is appended to the API base URL for every guest endpoint.
	GuestPrefix = "/api/guest"

	// AccessTokenCookie carries the session credentials.
	AccessTokenCookie = "access_token"
)

func newRequestBuilder(baseURL, accessToken string) *httpx.RequestBuilder {
	b := httpx.NewRequestBuilder(baseURL + GuestPrefix)
	b.Headers.Set("Content-Type", "application/json")
	b.Headers.Set("Accept", "application/json")
	if accessToken != "" {
		b.WithCookies(&http.Cookie{Name: AccessTokenCookie, Value: accessToken})
	}
	return b
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d", e.Status)
	}
	return fmt.Sprintf("http status %d: %s", e.Status, e.Message)
}

type responseErr struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func checkResponseError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var respErr responseErr
	if err := json.Unmarshal(body, &respErr); err != nil {
		return &APIError{Status: status, Message: string(body)}
	}
	msg := respErr.Error
	if msg == "" {
		msg = respErr.Detail
	}
	return &APIError{Status: status, Message: msg}
}

func decodeResponse[T any](data []byte, op string) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, sdkerr.New(subsys, op).
			WithKind(sdkerr.ErrDecodeError).
			WithCause(err)
	}
	return &result, nil
}

func errInvalid(msg string) error { return errors.New(msg) }
