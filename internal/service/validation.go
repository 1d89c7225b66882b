package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/student-auth/internal/domain"
	apperrors "github.com/spec-kit/student-auth/pkg/util"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 6
	// bcrypt ignores input past 72 bytes; x/crypto rejects it outright.
	maxPasswordBytes = 72
	maxEmailLength   = 255
	maxNameLength    = 100
	maxBranchLength  = 50
	maxCourseLength  = 50
)

// fieldErrors collects per-field validation messages.
type fieldErrors map[string]any

func (f fieldErrors) add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidationError("validation failed", f)
}

func validateRegistration(in RegisterInput) error {
	errs := fieldErrors{}

	switch n := utf8.RuneCountInString(in.Username); {
	case n == 0:
		errs.add("username", "Username is required")
	case n < minUsernameLength || n > maxUsernameLength:
		errs.add("username", "Username must be between 3 and 50 characters")
	}

	switch {
	case in.Password == "":
		errs.add("password", "Password is required")
	case utf8.RuneCountInString(in.Password) < minPasswordLength:
		errs.add("password", "Password must be at least 6 characters")
	case len(in.Password) > maxPasswordBytes:
		errs.add("password", "Password must be at most 72 bytes")
	}

	if in.Email != nil && !validEmail(*in.Email) {
		errs.add("email", "Email should be valid")
	}

	if in.RollNo <= 0 {
		errs.add("rollNo", "Roll number must be a positive number")
	}

	return errs.err()
}

func validateStudent(s *domain.Student) error {
	errs := fieldErrors{}
	requireText(errs, "name", s.Name, maxNameLength)
	requireText(errs, "branch", s.Branch, maxBranchLength)
	requireText(errs, "course", s.Course, maxCourseLength)
	if s.RollNo <= 0 {
		errs.add("rollNo", "Roll number must be a positive number")
	}
	return errs.err()
}

func requireText(errs fieldErrors, field, value string, max int) {
	switch n := utf8.RuneCountInString(value); {
	case strings.TrimSpace(value) == "":
		errs.add(field, field+" is required")
	case n > max:
		errs.add(field, field+" is too long")
	}
}

// validEmail accepts a bare address, not a display-name form.
func validEmail(email string) bool {
	if len(email) > maxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// normalizeEmail trims the address and treats a blank one as absent.
func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*email)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
