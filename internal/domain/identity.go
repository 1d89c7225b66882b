package domain

// Identity is the authenticated caller as carried by an access token.
type Identity struct {
	UserID   int64
	Username string
	Role     Role
	RollNo   int
}

// HasRollNo reports whether the identity carries a usable roll number.
func (i Identity) HasRollNo() bool {
	return i.RollNo > 0
}
