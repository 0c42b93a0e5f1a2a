// Package events defines the frames exchanged over the hotel real-time
// channels. Inbound frames are a tagged union keyed by the "type" field;
// Decode turns raw bytes into one of the concrete Event kinds.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type is the discriminant carried in every frame's "type" field.
type Type string

// Inbound event tags.
const (
	TypeInitialCount    Type = "initial_count"
	TypeUnreadUpdate    Type = "unread_update"
	TypeNewNotification Type = "new_notification"
	TypeAuthResponse    Type = "auth_response"
	TypeActiveCount     Type = "active_count"
	TypeBookingsUpdate  Type = "bookings_update"
	TypeHeartbeatAck    Type = "heartbeat_ack"
)

// ErrMissingType is returned for frames without a "type" field.
var ErrMissingType = errors.New("frame has no type tag")

// Event is implemented by every inbound frame kind.
type Event interface {
	Type() Type
	isEvent()
}

// InitialCount is sent once after authentication with the unread total.
type InitialCount struct {
	Count int `json:"count"`
}

// UnreadUpdate carries a new unread total, e.g. after mark_read.
type UnreadUpdate struct {
	Count int `json:"count"`
}

// NewNotification pushes a freshly created notification.
type NewNotification struct {
	Notification Notification `json:"notification"`
	UnreadCount  int          `json:"unread_count"`
}

// AuthResponse acknowledges the authenticate frame.
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ActiveCount is the number of active bookings on the admin feed.
type ActiveCount struct {
	Count int `json:"count"`
}

// BookingsUpdate is a full snapshot of active bookings on the admin feed.
type BookingsUpdate struct {
	Count    int       `json:"count"`
	Bookings []Booking `json:"bookings"`
}

// HeartbeatAck answers a heartbeat.
type HeartbeatAck struct{}

// Unknown holds a frame whose tag this package does not model.
type Unknown struct {
	Tag Type
	Raw json.RawMessage
}

func (*InitialCount) Type() Type    { return TypeInitialCount }
func (*UnreadUpdate) Type() Type    { return TypeUnreadUpdate }
func (*NewNotification) Type() Type { return TypeNewNotification }
func (*AuthResponse) Type() Type    { return TypeAuthResponse }
func (*ActiveCount) Type() Type     { return TypeActiveCount }
func (*BookingsUpdate) Type() Type  { return TypeBookingsUpdate }
func (*HeartbeatAck) Type() Type    { return TypeHeartbeatAck }
func (u *Unknown) Type() Type       { return u.Tag }

func (*InitialCount) isEvent()    {}
func (*UnreadUpdate) isEvent()    {}
func (*NewNotification) isEvent() {}
func (*AuthResponse) isEvent()    {}
func (*ActiveCount) isEvent()     {}
func (*BookingsUpdate) isEvent()  {}
func (*HeartbeatAck) isEvent()    {}
func (*Unknown) isEvent()         {}

type envelope struct {
	Type Type `json:"type"`
}

// Decode parses a raw frame. Frames with an unrecognised tag decode to
// *Unknown; a payload that does not fit its tag's shape is an error.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}

	var ev Event
	switch env.Type {
	case TypeInitialCount:
		ev = &InitialCount{}
	case TypeUnreadUpdate:
		ev = &UnreadUpdate{}
	case TypeNewNotification:
		ev = &NewNotification{}
	case TypeAuthResponse:
		ev = &AuthResponse{}
	case TypeActiveCount:
		ev = &ActiveCount{}
	case TypeBookingsUpdate:
		ev = &BookingsUpdate{}
	case TypeHeartbeatAck:
		return &HeartbeatAck{}, nil
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return &Unknown{Tag: env.Type, Raw: raw}, nil
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", env.Type, err)
	}
	return ev, nil
}
