package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/spec-kit/student-auth/internal/domain"
	apperrors "github.com/spec-kit/student-auth/pkg/util"
)

func drawClaimSet(t *rapid.T) ClaimSet {
	set := ClaimSet{
		TokenType:  rapid.SampledFrom([]domain.TokenKind{"", domain.TokenKindAccess, domain.TokenKindRefresh}).Draw(t, "tokenType"),
		LegacyType: rapid.SampledFrom([]string{"", legacyRefreshType}).Draw(t, "legacyType"),
		Role:       rapid.SampledFrom([]string{"", "ADMIN", "TEACHER", "STUDENT"}).Draw(t, "role"),
	}
	if rapid.Bool().Draw(t, "hasUserID") {
		id := rapid.Int64().Draw(t, "userID")
		set.UserID = &id
	}
	if rapid.Bool().Draw(t, "hasRollNo") {
		rollNo := rapid.Int().Draw(t, "rollNo")
		set.RollNo = &rollNo
	}
	return set
}

func TestCodecRoundTrip(t *testing.T) {
	kit := newTokenKit(t)

	rapid.Check(t, func(rt *rapid.T) {
		subject := rapid.StringMatching(`[a-zA-Z0-9._@-]{1,40}`).Draw(rt, "subject")
		set := drawClaimSet(rt)
		ttl := time.Duration(rapid.Int64Range(1, 1_000_000).Draw(rt, "ttlSeconds")) * time.Second

		token, err := kit.codec.Encode(subject, set, ttl)
		require.NoError(rt, err)

		claims, err := kit.codec.Decode(token)
		require.NoError(rt, err)
		assert.Equal(rt, subject, claims.Subject)
		assert.Equal(rt, set, claims.ClaimSet)
	})
}

func TestExpiryMonotonicity(t *testing.T) {
	kit := newTokenKit(t)

	rapid.Check(t, func(rt *rapid.T) {
		d1 := time.Duration(rapid.Int64Range(1, 10_000_000_000).Draw(rt, "d1Millis")) * time.Millisecond
		d2 := d1 + time.Duration(rapid.Int64Range(1, 10_000_000_000).Draw(rt, "deltaMillis"))*time.Millisecond

		t1, err := kit.codec.Encode("alice", ClaimSet{}, d1)
		require.NoError(rt, err)
		t2, err := kit.codec.Encode("alice", ClaimSet{}, d2)
		require.NoError(rt, err)

		c1, err := kit.codec.Decode(t1)
		require.NoError(rt, err)
		c2, err := kit.codec.Decode(t2)
		require.NoError(rt, err)

		assert.False(rt, c1.ExpiresAt.Time.After(c2.ExpiresAt.Time))
	})
}

func TestKindIsExclusive(t *testing.T) {
	kit := newTokenKit(t)

	rapid.Check(t, func(rt *rapid.T) {
		token, err := kit.codec.Encode("alice", drawClaimSet(rt), time.Minute)
		require.NoError(rt, err)

		kind, err := kit.validator.Classify(token)
		require.NoError(rt, err)
		isAccess := kind == domain.TokenKindAccess
		isRefresh := kind == domain.TokenKindRefresh
		assert.True(rt, isAccess != isRefresh, "kind %q must be exactly one of ACCESS/REFRESH", kind)
	})
}

func TestNewCodecRejectsWeakSecret(t *testing.T) {
	_, err := NewCodec("", nil)
	require.ErrorIs(t, err, ErrWeakSecret)

	_, err = NewCodec("short-secret", nil)
	require.ErrorIs(t, err, ErrWeakSecret)

	codec, err := NewCodec(strings.Repeat("k", MinSecretLength), nil)
	require.NoError(t, err)
	assert.NotNil(t, codec)
}

func TestDecodeKeepsExpiredTokens(t *testing.T) {
	kit := newTokenKit(t)

	token, err := kit.codec.Encode("alice", ClaimSet{TokenType: domain.TokenKindAccess}, time.Minute)
	require.NoError(t, err)

	kit.clock.Advance(2 * time.Minute)

	claims, err := kit.codec.Decode(token)
	require.NoError(t, err)
	assert.True(t, epoch.Add(time.Minute).Equal(claims.ExpiresAt.Time))
	assert.True(t, claims.Expired(kit.clock.Now()))
}

func TestDecodeFailures(t *testing.T) {
	kit := newTokenKit(t)

	valid, err := kit.codec.Encode("alice", ClaimSet{TokenType: domain.TokenKindAccess}, time.Minute)
	require.NoError(t, err)

	otherCodec, err := NewCodec(strings.Repeat("x", 40), kit.clock)
	require.NoError(t, err)
	foreign, err := otherCodec.Encode("alice", ClaimSet{}, time.Minute)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "alice",
		"exp": epoch.Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	oddType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       "alice",
		"exp":       epoch.Add(time.Hour).Unix(),
		"tokenType": "SESSION",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice",
		"exp": epoch.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"tampered payload", tampered},
		{"unexpected algorithm", hs512},
		{"unsigned", unsigned},
		{"missing expiration", noExp},
		{"unknown token type", oddType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := kit.codec.Decode(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken), "got %v", err)
		})
	}
}
