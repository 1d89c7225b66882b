package dto

import "github.com/spec-kit/student-auth/internal/service"

// RegisterRequest payload for new principals.
type RegisterRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
	RollNo   int     `json:"rollNo"`
	Role     string  `json:"role"`
}

// ToInput converts the payload for the auth service.
func (r RegisterRequest) ToInput() service.RegisterInput {
	return service.RegisterInput{
		Username: r.Username,
		Password: r.Password,
		Email:    r.Email,
		RollNo:   r.RollNo,
		Role:     r.Role,
	}
}

// LoginRequest payload for login. Username may hold an email address.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshTokenRequest carries a refresh token for refresh and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// StatusResponse is the JSON shape of the auth module health probe.
type StatusResponse struct {
	Status    string `json:"status"`
	Module    string `json:"module"`
	Service   string `json:"service"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
