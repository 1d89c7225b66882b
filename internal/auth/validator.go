package auth

import (
	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/spec-kit/student-auth/internal/domain"
	apperrors "github.com/spec-kit/student-auth/pkg/util"
)

// Validator checks tokens against the codec and the clock.
type Validator struct {
	codec  *Codec
	clock  clock.Clock
	logger *zap.Logger
}

// NewValidator constructs a validator.
func NewValidator(codec *Codec, clk clock.Clock, logger *zap.Logger) *Validator {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{codec: codec, clock: clk, logger: logger}
}

// IsValid reports whether the token decodes and is not expired.
func (v *Validator) IsValid(token string) bool {
	claims, err := v.codec.Decode(token)
	if err != nil {
		v.logger.Debug("token rejected", zap.Error(err))
		return false
	}
	return !claims.Expired(v.clock.Now())
}

// IsExpired reports whether the token is past its expiration. Tokens that
// cannot be decoded count as expired.
func (v *Validator) IsExpired(token string) bool {
	claims, err := v.codec.Decode(token)
	if err != nil {
		return true
	}
	return claims.Expired(v.clock.Now())
}

// Classify returns the token kind of a decodable token.
func (v *Validator) Classify(token string) (domain.TokenKind, error) {
	claims, err := v.codec.Decode(token)
	if err != nil {
		return "", err
	}
	return claims.Kind(), nil
}

// Username returns the subject claim.
func (v *Validator) Username(token string) (string, bool) {
	claims, ok := v.claims(token, "username")
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// UserID returns the userId claim.
func (v *Validator) UserID(token string) (int64, bool) {
	claims, ok := v.claims(token, "userId")
	if !ok || claims.UserID == nil {
		return 0, false
	}
	return *claims.UserID, true
}

// Role returns the role claim when it names a known role.
func (v *Validator) Role(token string) (domain.Role, bool) {
	claims, ok := v.claims(token, "role")
	if !ok {
		return "", false
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return "", false
	}
	return role, true
}

// RollNo returns the rollNo claim.
func (v *Validator) RollNo(token string) (int, bool) {
	claims, ok := v.claims(token, "rollNo")
	if !ok || claims.RollNo == nil {
		return 0, false
	}
	return *claims.RollNo, true
}

// RequireKind decodes a token that must be of the given kind and unexpired.
func (v *Validator) RequireKind(token string, kind domain.TokenKind) (*Claims, error) {
	claims, err := v.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	if claims.Kind() != kind {
		return nil, apperrors.NewInvalidToken("expected " + string(kind) + " token")
	}
	if claims.Expired(v.clock.Now()) {
		return nil, apperrors.NewTokenExpired("token has expired")
	}
	return claims, nil
}

// Authenticate turns a valid access token into the caller identity. The
// identity comes only from signed claims.
func (v *Validator) Authenticate(token string) (domain.Identity, error) {
	claims, err := v.RequireKind(token, domain.TokenKindAccess)
	if err != nil {
		return domain.Identity{}, err
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil || claims.UserID == nil || claims.RollNo == nil || claims.Subject == "" {
		return domain.Identity{}, apperrors.NewInvalidToken("token is missing identity claims")
	}
	return domain.Identity{
		UserID:   *claims.UserID,
		Username: claims.Subject,
		Role:     role,
		RollNo:   *claims.RollNo,
	}, nil
}

// claims decodes for a single extraction; failures mean the claim is unavailable.
func (v *Validator) claims(token, name string) (*Claims, bool) {
	claims, err := v.codec.Decode(token)
	if err != nil {
		v.logger.Debug("claim unavailable", zap.String("claim", name), zap.Error(err))
		return nil, false
	}
	return claims, true
}
