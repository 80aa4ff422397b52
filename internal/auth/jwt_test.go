package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Poker/internal/domain"
)

func TestTokens_RoundTrip(t *testing.T) {
	r := require.New(t)
	tokens := NewTokens("secret", time.Hour)

	raw, err := tokens.Mint("alice")
	r.NoError(err)

	pid, err := tokens.Verify(raw)
	r.NoError(err)
	r.Equal(domain.ParticipantID("alice"), pid)
}

func TestTokens_WrongSecret(t *testing.T) {
	r := require.New(t)
	raw, err := NewTokens("secret-a", time.Hour).Mint("alice")
	r.NoError(err)

	_, err = NewTokens("secret-b", time.Hour).Verify(raw)
	r.ErrorIs(err, ErrInvalidToken)
}

func TestTokens_Expired(t *testing.T) {
	r := require.New(t)
	tokens := NewTokens("secret", -time.Minute)

	raw, err := tokens.Mint("alice")
	r.NoError(err)

	_, err = tokens.Verify(raw)
	r.ErrorIs(err, ErrInvalidToken)
}

func TestTokens_Garbage(t *testing.T) {
	_, err := NewTokens("secret", time.Hour).Verify("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
