package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGoogleVerifierRequiresClientID(t *testing.T) {
	_, err := NewGoogleVerifier(context.Background(), "", GoogleVerifierOptions{})
	require.Error(t, err)

	_, err = NewGoogleVerifier(context.Background(), "   ", GoogleVerifierOptions{})
	require.Error(t, err)
}

func TestVerifyIDTokenRequiresToken(t *testing.T) {
	v := &GoogleVerifier{timeout: 1}
	_, err := v.VerifyIDToken(context.Background(), "")
	require.Error(t, err)
}

func TestUserInfoRequiresAccessToken(t *testing.T) {
	v := &GoogleVerifier{timeout: 1}
	_, err := v.UserInfo(context.Background(), " ")
	require.Error(t, err)
}
