package domain

import "time"

// EventType identifies an audit event. Values match the seeded events table.
type EventType int

const (
	EventNewUserAccount EventType = 1
	EventDeactivated    EventType = 2
	EventActivated      EventType = 3
	EventLogIn          EventType = 4
	EventLoginFailed    EventType = 5
	EventPasswordChange EventType = 6
	EventUserEdit       EventType = 7
	EventConfirmEmail   EventType = 9
	EventLogOut         EventType = 10
)

var eventNames = map[EventType]string{
	EventNewUserAccount: "new_user_account",
	EventDeactivated:    "deactivated",
	EventActivated:      "activated",
	EventLogIn:          "log_in",
	EventLoginFailed:    "login_failed",
	EventPasswordChange: "password_change",
	EventUserEdit:       "user_edit",
	EventConfirmEmail:   "confirm_email",
	EventLogOut:         "log_out",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

// EventLogRecord is an append-only audit fact.
type EventLogRecord struct {
	Type      EventType
	UserID    string
	Body      string
	Origin    string // optional client origin
	CreatedAt time.Time
}
