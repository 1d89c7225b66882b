package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/student-auth/internal/domain"
)

const testSecret = "test-secret-0123456789abcdef-0123456789"

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type tokenKit struct {
	clock     *testclock.Clock
	codec     *Codec
	issuer    *Issuer
	validator *Validator
}

func newTokenKit(t testing.TB) *tokenKit {
	t.Helper()
	clk := testclock.NewClock(epoch)
	codec, err := NewCodec(testSecret, clk)
	require.NoError(t, err)
	return &tokenKit{
		clock:     clk,
		codec:     codec,
		issuer:    NewIssuer(codec, DefaultAccessTokenTTL, DefaultRefreshTokenTTL),
		validator: NewValidator(codec, clk, nil),
	}
}

func studentUser(rollNo int) *domain.User {
	return &domain.User{
		ID:       int64(rollNo) * 10,
		Username: "student" + strconv.Itoa(rollNo),
		RollNo:   rollNo,
		Role:     domain.RoleStudent,
		Enabled:  true,
	}
}
