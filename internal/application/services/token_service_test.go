package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairbook/core/internal/infrastructure/config"
)

func newTokenService(expiresIn time.Duration) *TokenService {
	return NewTokenService(config.AuthConfig{
		Secret:    "test-secret",
		ExpiresIn: expiresIn,
		Issuer:    "pairbook-test",
	})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTokenService(time.Hour)

	token, err := svc.Issue("alex", "pairing-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alex", claims.UserID)
	assert.Equal(t, "pairing-1", claims.PairingID)
	assert.Equal(t, "pairbook-test", claims.Issuer)
}

func TestTokenValidation(t *testing.T) {
	svc := newTokenService(time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService(config.AuthConfig{Secret: "different", ExpiresIn: time.Hour})
		token, err := other.Issue("alex", "pairing-1")
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := newTokenService(-time.Minute)
		token, err := expired.Issue("alex", "pairing-1")
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing pairing claim", func(t *testing.T) {
		token, err := svc.Issue("alex", "")
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
