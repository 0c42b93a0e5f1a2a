package rest

import "github.com/azurea-hotel/azurea-sdk-go/events"

// NotificationPage is one page of the guest's notifications, newest first.
type NotificationPage struct {
	Notifications []events.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
	HasMore       bool                  `json:"has_more"`
}

// Ack is the body of the mark-read endpoints.
type Ack struct {
	Message string `json:"message"`
}
