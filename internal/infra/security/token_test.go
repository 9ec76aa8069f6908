package security_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/app/identity"
	"vendibook/internal/infra/security"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc, err := security.NewTokenService("s3cret")
	require.NoError(t, err)

	raw, err := svc.Issue("host-1", []string{identity.RoleHost}, time.Hour)
	require.NoError(t, err)

	principal, err := svc.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "host-1", principal.UserID)
	assert.True(t, principal.HasRole(identity.RoleHost))
}

func TestTokenService_VerifyRejects(t *testing.T) {
	issuedAt := time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)
	svc, err := security.NewTokenService("s3cret")
	require.NoError(t, err)
	svc.WithClock(fixedClock(issuedAt))
	valid, err := svc.Issue("renter-1", nil, time.Hour)
	require.NoError(t, err)

	other, err := security.NewTokenService("another")
	require.NoError(t, err)
	foreign, err := other.Issue("renter-1", nil, time.Hour)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "renter-1", "iss": "vendibook"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		raw   string
		clock time.Time
	}{
		{"expired", valid, issuedAt.Add(2 * time.Hour)},
		{"wrong secret", foreign, issuedAt},
		{"alg none", unsigned, issuedAt},
		{"garbage", "not-a-token", issuedAt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.WithClock(fixedClock(tt.clock))
			_, err := svc.Verify(tt.raw)
			assert.ErrorIs(t, err, security.ErrInvalidToken)
		})
	}
}

func TestTokenService_IssueValidation(t *testing.T) {
	_, err := security.NewTokenService("  ")
	assert.ErrorIs(t, err, security.ErrSecretMissing)

	svc, err := security.NewTokenService("s3cret")
	require.NoError(t, err)
	_, err = svc.Issue("", nil, time.Hour)
	assert.Error(t, err)
	_, err = svc.Issue("renter-1", nil, 0)
	assert.Error(t, err)
}
