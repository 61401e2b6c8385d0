package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_MintAndParse(t *testing.T) {
	m, err := NewManager("super-secret", time.Hour)
	require.NoError(t, err)

	token, err := m.Mint(Principal{UserID: 42, Email: "ada@example.com", Role: "admin"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	p, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.UserID)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, "admin", p.Role)
}

func TestManager_Parse_Errors(t *testing.T) {
	m, err := NewManager("super-secret", time.Hour)
	require.NoError(t, err)

	t.Run("garbage token", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewManager("different-secret", time.Hour)
		require.NoError(t, err)

		token, err := other.Mint(Principal{UserID: 1, Email: "a@example.com", Role: "user"})
		require.NoError(t, err)

		_, err = m.Parse(token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		short, err := NewManager("super-secret", time.Nanosecond)
		require.NoError(t, err)

		token, err := short.Mint(Principal{UserID: 1, Email: "a@example.com", Role: "user"})
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		_, err = m.Parse(token)
		require.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager("", time.Hour)
	require.Error(t, err)

	m, err := NewManager("s", 0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, m.ttl)
}
