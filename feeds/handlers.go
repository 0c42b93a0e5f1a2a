package feeds

import (
	"fmt"

	"github.com/azurea-hotel/azurea-sdk-go/channel"
	"github.com/azurea-hotel/azurea-sdk-go/events"
)

// typed adapts fn to a channel.Handler. Events of another concrete type are
// ignored.
//
// Panics:
//   - fn is nil
func typed[T events.Event](name string, fn func(T)) channel.Handler {
	if fn == nil {
		panic(fmt.Sprintf("feeds.%s: handler function is nil", name))
	}
	return func(ev events.Event) {
		if v, ok := ev.(T); ok {
			fn(v)
		}
	}
}

func OnInitialCount(fn func(*events.InitialCount)) channel.Handler {
	return typed("OnInitialCount", fn)
}

func OnUnreadUpdate(fn func(*events.UnreadUpdate)) channel.Handler {
	return typed("OnUnreadUpdate", fn)
}

// OnNewNotification receives each pushed notification together with the
// unread total after it.
func OnNewNotification(fn func(*events.NewNotification)) channel.Handler {
	return typed("OnNewNotification", fn)
}

func OnAuthResponse(fn func(*events.AuthResponse)) channel.Handler {
	return typed("OnAuthResponse", fn)
}

func OnActiveCount(fn func(*events.ActiveCount)) channel.Handler {
	return typed("OnActiveCount", fn)
}

// OnBookingsUpdate receives full snapshots of active bookings.
func OnBookingsUpdate(fn func(*events.BookingsUpdate)) channel.Handler {
	return typed("OnBookingsUpdate", fn)
}

func OnHeartbeatAck(fn func(*events.HeartbeatAck)) channel.Handler {
	return typed("OnHeartbeatAck", fn)
}

// NotificationHandlers bundles the usual notification bell wiring: unread
// totals from initial_count and unread_update go to onCount, pushed
// notifications to onNew. Either may be nil.
func NotificationHandlers(onCount func(int), onNew func(events.Notification, int)) channel.Handlers {
	h := channel.Handlers{}
	if onCount != nil {
		h[events.TypeInitialCount] = OnInitialCount(func(e *events.InitialCount) { onCount(e.Count) })
		h[events.TypeUnreadUpdate] = OnUnreadUpdate(func(e *events.UnreadUpdate) { onCount(e.Count) })
	}
	if onNew != nil {
		h[events.TypeNewNotification] = OnNewNotification(func(e *events.NewNotification) {
			onNew(e.Notification, e.UnreadCount)
		})
	}
	return h
}

// BookingHandlers bundles the admin dashboard wiring. Either may be nil.
func BookingHandlers(onCount func(int), onSnapshot func([]events.Booking)) channel.Handlers {
	h := channel.Handlers{}
	if onCount != nil {
		h[events.TypeActiveCount] = OnActiveCount(func(e *events.ActiveCount) { onCount(e.Count) })
	}
	if onSnapshot != nil {
		h[events.TypeBookingsUpdate] = OnBookingsUpdate(func(e *events.BookingsUpdate) { onSnapshot(e.Bookings) })
	}
	return h
}
