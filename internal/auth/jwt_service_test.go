package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMintAndValidate(t *testing.T) {
	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret: "unit-test-secret",
		Issuer: "signupd",
		Clock:  func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := svc.Mint("user-1", "a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, "signupd", claims.Issuer)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret:         "unit-test-secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := svc.Mint("user-1", "")
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = svc.Validate(token)
	require.Error(t, err)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	minter, err := NewJWTService(JWTConfig{Secret: "s", Issuer: "other"})
	require.NoError(t, err)
	checker, err := NewJWTService(JWTConfig{Secret: "s", Issuer: "signupd"})
	require.NoError(t, err)

	token, err := minter.Mint("user-1", "")
	require.NoError(t, err)

	_, err = checker.Validate(token)
	require.Error(t, err)
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
}
