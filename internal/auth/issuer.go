package auth

import (
	"time"

	"github.com/spec-kit/student-auth/internal/domain"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = 30 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// IdentitySource is anything that can state who it is for token issuance.
// domain.User satisfies it.
type IdentitySource interface {
	Identity() domain.Identity
}

// Issuer mints access and refresh tokens.
type Issuer struct {
	codec      *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer builds an issuer. Non-positive lifetimes fall back to the defaults.
func NewIssuer(codec *Codec, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &Issuer{codec: codec, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssueAccessToken mints a short-lived token carrying the caller's identity claims.
func (i *Issuer) IssueAccessToken(src IdentitySource) (string, error) {
	id := src.Identity()
	userID := id.UserID
	rollNo := id.RollNo
	return i.codec.Encode(id.Username, ClaimSet{
		TokenType: domain.TokenKindAccess,
		UserID:    &userID,
		Role:      string(id.Role),
		RollNo:    &rollNo,
	}, i.accessTTL)
}

// IssueRefreshToken mints a long-lived token that identifies only the subject.
func (i *Issuer) IssueRefreshToken(src IdentitySource) (string, error) {
	return i.codec.Encode(src.Identity().Username, ClaimSet{
		TokenType:  domain.TokenKindRefresh,
		LegacyType: legacyRefreshType,
	}, i.refreshTTL)
}

// AccessTokenExpiresIn reports the access token lifetime in seconds.
func (i *Issuer) AccessTokenExpiresIn() int64 {
	return int64(i.accessTTL / time.Second)
}

// RefreshTokenTTL returns the refresh token lifetime.
func (i *Issuer) RefreshTokenTTL() time.Duration {
	return i.refreshTTL
}
