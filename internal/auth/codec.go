package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/spec-kit/student-auth/internal/domain"
	apperrors "github.com/spec-kit/student-auth/pkg/util"
)

// MinSecretLength is the smallest accepted HMAC-SHA256 signing key.
const MinSecretLength = 32

// legacyRefreshType is the pre-tokenType marker still written on refresh tokens.
const legacyRefreshType = "refresh"

// ErrWeakSecret is returned when the signing secret is missing or too short.
var ErrWeakSecret = fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)

// ClaimSet is the caller-supplied part of a token payload.
type ClaimSet struct {
	TokenType  domain.TokenKind `json:"tokenType,omitempty"`
	LegacyType string           `json:"type,omitempty"`
	UserID     *int64           `json:"userId,omitempty"`
	Role       string           `json:"role,omitempty"`
	RollNo     *int             `json:"rollNo,omitempty"`
}

// Claims describes the full JWT payload.
type Claims struct {
	ClaimSet
	jwt.RegisteredClaims
}

// Kind classifies the token. Tokens minted before tokenType existed fall back
// to the legacy type claim and otherwise count as access tokens.
func (c *Claims) Kind() domain.TokenKind {
	switch {
	case c.TokenType != "":
		return c.TokenType
	case c.LegacyType == legacyRefreshType:
		return domain.TokenKindRefresh
	default:
		return domain.TokenKindAccess
	}
}

// Expired reports whether the token is expired at now.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// Codec signs and verifies HS256 tokens.
type Codec struct {
	secret []byte
	clock  clock.Clock
	parser *jwt.Parser
}

// NewCodec builds a codec around a mandatory shared secret.
func NewCodec(secret string, clk clock.Clock) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Codec{
		secret: []byte(secret),
		clock:  clk,
		// Expiry is checked by the validator against the injected clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Encode signs a token for subject carrying claims, expiring ttl from now.
func (c *Codec) Encode(subject string, claims ClaimSet, ttl time.Duration) (string, error) {
	now := c.clock.Now()
	payload := &Claims{
		ClaimSet: claims,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and structure of token. It does not reject
// expired tokens.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, apperrors.NewInvalidToken("token is empty")
	}

	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, apperrors.NewInvalidTokenCause(describeParseError(err), err)
	}
	if !parsed.Valid {
		return nil, apperrors.NewInvalidToken("invalid token")
	}
	if claims.ExpiresAt == nil {
		return nil, apperrors.NewInvalidToken("token has no expiration")
	}
	switch claims.TokenType {
	case "", domain.TokenKindAccess, domain.TokenKindRefresh:
	default:
		return nil, apperrors.NewInvalidToken("unsupported token type")
	}
	return claims, nil
}

func describeParseError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "token is malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "token signature is invalid"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "token is unsupported"
	default:
		return "invalid token"
	}
}
