// Package feeds wires the two real-time channels the hotel backend exposes
// and adds typed helpers on top of the generic channel API.
package feeds

import (
	"context"

	"github.com/azurea-hotel/azurea-sdk-go/channel"
	"github.com/azurea-hotel/azurea-sdk-go/events"
	"github.com/azurea-hotel/azurea-sdk-go/sdkerr"
)

// Channel paths relative to the backend origin.
const (
	NotificationsPath  = "ws/notifications/"
	ActiveBookingsPath = "ws/admin_dashboard/active-bookings/"
)

// Sender is satisfied by *channel.Channel and *channel.Lease.
type Sender interface {
	Send(payload any) error
}

// NewNotifications creates the guest notification channel.
func NewNotifications(origin string, opts ...channel.Option) *channel.Channel {
	return channel.New(origin, NotificationsPath, opts...)
}

// NewActiveBookings creates the admin active-bookings channel.
func NewActiveBookings(origin string, opts ...channel.Option) *channel.Channel {
	return channel.New(origin, ActiveBookingsPath, opts...)
}

// MarkRead marks every unread notification of the authenticated user read.
// The server answers with unread_update.
func MarkRead(s Sender) error {
	return s.Send(events.MarkRead())
}

// RequestActiveBookings asks for a bookings_update snapshot.
func RequestActiveBookings(s Sender) error {
	return s.Send(events.GetActiveBookings())
}


// AuthWaiter waits for the auth_response of the next authentication.
type AuthWaiter struct {
	w *channel.Waiter
}

// ExpectAuthenticated registers for the next auth_response. Call it before
// connecting or mounting so the response cannot be missed. Only the
// notification feed authenticates; the admin feed never answers.
func ExpectAuthenticated(ch *channel.Channel) *AuthWaiter {
	return &AuthWaiter{w: ch.ExpectFunc(events.TypeAuthResponse, checkAuth)}
}

func checkAuth(ev events.Event) error {
	resp, ok := ev.(*events.AuthResponse)
	if !ok {
		return sdkerr.New("feeds", "WaitAuthenticated").
			WithKind(sdkerr.ErrDecodeError).
			WithMessage("unexpected event " + string(ev.Type()))
	}
	if !resp.Success {
		return sdkerr.New("feeds", "WaitAuthenticated").
			WithKind(sdkerr.ErrAuthRejected).
			WithMessage(resp.Message)
	}
	return nil
}

// Wait blocks until auth_response arrives. A rejected authentication is
// reported with kind sdkerr.ErrAuthRejected.
func (a *AuthWaiter) Wait(ctx context.Context) error {
	_, err := a.w.Wait(ctx)
	return err
}

// WaitAuthenticated is ExpectAuthenticated followed by Wait, for channels
// whose authentication is still ahead.
func WaitAuthenticated(ctx context.Context, ch *channel.Channel) error {
	return ExpectAuthenticated(ch).Wait(ctx)
}
