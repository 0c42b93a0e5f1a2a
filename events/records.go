package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ID is a backend primary key. The backend sends it as a number in some
// payloads and as a string in others; both decode to the same value.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %s", string(data))
	}
	*id = ID(n.String())
	return nil
}

// Int returns the id as an integer when it is numeric.
func (id ID) Int() (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

// NotificationType is the reason a notification was created.
type NotificationType string

const (
	NotificationReserved        NotificationType = "reserved"
	NotificationNoShow          NotificationType = "no_show"
	NotificationRejected        NotificationType = "rejected"
	NotificationCheckinReminder NotificationType = "checkin_reminder"
	NotificationCheckedIn       NotificationType = "checked_in"
	NotificationCheckedOut      NotificationType = "checked_out"
	NotificationCancelled       NotificationType = "cancelled"
)

// Notification is a guest-facing notification record.
type Notification struct {
	ID        ID               `json:"id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"notification_type"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
	BookingID *ID              `json:"booking_id,omitempty"`
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingReserved   BookingStatus = "reserved"
	BookingCheckedIn  BookingStatus = "checked_in"
	BookingCheckedOut BookingStatus = "checked_out"
	BookingCancelled  BookingStatus = "cancelled"
	BookingRejected   BookingStatus = "rejected"
	BookingNoShow     BookingStatus = "no_show"
)

// IsActive reports whether the admin dashboard counts the booking as active.
func (s BookingStatus) IsActive() bool {
	switch s {
	case BookingRejected, BookingCancelled, BookingNoShow, BookingCheckedOut:
		return false
	default:
		return true
	}
}

const dateLayout = "2006-01-02"

// Date is a calendar date without a time of day.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// BookingUser summarises the guest who made a booking.
type BookingUser struct {
	ID          ID     `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// RoomDetails describes a booked room.
type RoomDetails struct {
	ID        ID              `json:"id"`
	RoomName  string          `json:"room_name"`
	RoomType  string          `json:"room_type"`
	RoomPrice decimal.Decimal `json:"room_price"`
	Capacity  int             `json:"capacity,omitempty"`
}

// AreaDetails describes a booked venue area.
type AreaDetails struct {
	ID           ID              `json:"id"`
	AreaName     string          `json:"area_name"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	Capacity     int             `json:"capacity,omitempty"`
	Status       string          `json:"status,omitempty"`
}

// Booking is one entry of a bookings_update snapshot.
type Booking struct {
	ID                 ID              `json:"id"`
	User               BookingUser     `json:"user"`
	RoomDetails        *RoomDetails    `json:"room_details,omitempty"`
	AreaDetails        *AreaDetails    `json:"area_details,omitempty"`
	CheckInDate        Date            `json:"check_in_date"`
	CheckOutDate       Date            `json:"check_out_date"`
	Status             BookingStatus   `json:"status"`
	SpecialRequest     string          `json:"special_request,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	IsVenueBooking     bool            `json:"is_venue_booking"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	NumberOfGuests     int             `json:"number_of_guests"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// PropertyName is the booked room or area name, whichever is present.
func (b *Booking) PropertyName() string {
	switch {
	case b.RoomDetails != nil:
		return b.RoomDetails.RoomName
	case b.AreaDetails != nil:
		return b.AreaDetails.AreaName
	default:
		return ""
	}
}

// Nights is the number of nights between check-in and check-out.
func (b *Booking) Nights() int {
	if b.CheckInDate.IsZero() || b.CheckOutDate.IsZero() {
		return 0
	}
	return int(b.CheckOutDate.Sub(b.CheckInDate.Time).Hours() / 24)
}
