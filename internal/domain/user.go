package domain

import "time"

// User is the authenticatable principal.
type User struct {
	ID                 int64
	Username           string
	Email              *string
	RollNo             int
	PasswordHash       string
	Role               Role
	Enabled            bool
	Locked             bool
	CredentialsExpired bool
	AccountExpired     bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CanAuthenticate reports whether the account flags allow a login.
func (u *User) CanAuthenticate() bool {
	return u.Enabled && !u.Locked && !u.CredentialsExpired && !u.AccountExpired
}

// Identity returns the claims-relevant view of the user.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role, RollNo: u.RollNo}
}
