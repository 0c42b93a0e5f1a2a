package events

// Outbound command tags.
const (
	CommandAuthenticate      Type = "authenticate"
	CommandHeartbeat         Type = "heartbeat"
	CommandMarkRead          Type = "mark_read"
	CommandGetActiveBookings Type = "get_active_bookings"
)

// Command is an outbound frame. Only authenticate carries a user id.
type Command struct {
	Type   Type   `json:"type"`
	UserID string `json:"userId,omitempty"`
}

// Authenticate binds the socket to a user; sent right after every open.
func Authenticate(userID string) Command {
	return Command{Type: CommandAuthenticate, UserID: userID}
}

func Heartbeat() Command {
	return Command{Type: CommandHeartbeat}
}

// MarkRead asks the notification feed to mark every unread notification read.
func MarkRead() Command {
	return Command{Type: CommandMarkRead}
}

// GetActiveBookings asks the admin feed for a fresh bookings_update snapshot.
func GetActiveBookings() Command {
	return Command{Type: CommandGetActiveBookings}
}
