package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerify_RoundTrip(t *testing.T) {
	req := require.New(t)
	verifier := NewTokenVerifier("test-secret")

	token, err := verifier.GenerateToken("u1", time.Hour)
	req.NoError(err)

	userID, err := verifier.Verify(token)
	req.NoError(err)
	req.Equal("u1", userID)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenVerifier("secret-a")
	verifier := NewTokenVerifier("secret-b")

	token, err := issuer.GenerateToken("u1", time.Hour)
	req.NoError(err)

	_, err = verifier.Verify(token)
	req.Error(err)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	verifier := NewTokenVerifier("test-secret")

	token, err := verifier.GenerateToken("u1", -time.Minute)
	req.NoError(err)

	_, err = verifier.Verify(token)
	req.Error(err)
}

func TestVerify_RejectsGarbage(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	_, err := verifier.Verify("not-a-token")
	require.Error(t, err)
}
