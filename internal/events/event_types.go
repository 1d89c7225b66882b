package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/student-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventTokenRefreshed EventType = "token_refreshed"
	EventLoggedOut      EventType = "logged_out"
)

// AuthEventTypes lists every event the auth service emits.
var AuthEventTypes = []EventType{
	EventUserRegistered,
	EventLoginSucceeded,
	EventLoginFailed,
	EventTokenRefreshed,
	EventLoggedOut,
}

// Event represents an authentication state transition.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Username  string      `json:"username,omitempty"`
	UserID    *int64      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New builds an event with a fresh id.
func New(eventType EventType, username string, userID *int64, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  username,
		UserID:    userID,
		Timestamp: at,
		Payload:   payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Role   domain.Role `json:"role"`
	RollNo int         `json:"roll_no"`
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	RevokedSessions bool `json:"revoked_sessions"`
}

// LoginFailedPayload payload. Reason is internal and never returned to clients.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// LoggedOutPayload payload.
type LoggedOutPayload struct {
	Revoked bool `json:"revoked"`
}
