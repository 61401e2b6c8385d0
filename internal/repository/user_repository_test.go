package repository

import (
	"context"
	"testing"
	"time"

	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("create user", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.User{
			Name:         "Ada",
			Email:        "ada@example.com",
			PasswordHash: "hash",
			Role:         model.RoleUser,
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "ada@example.com", created.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.User{
			Name:         "Ada Again",
			Email:        "ada@example.com",
			PasswordHash: "hash2",
			Role:         model.RoleUser,
		})
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})
}

func TestUserRepository_Find(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.User{
		Name:         "Grace",
		Email:        "grace@example.com",
		PasswordHash: "hash",
		Role:         model.RoleAdmin,
	})
	require.NoError(t, err)

	t.Run("by email", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "grace@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.True(t, found.IsAdmin())
	})

	t.Run("by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "grace@example.com", found.Email)
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := repo.FindByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, 999999)
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserRepository_ResetToken(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.User{
		Name:         "Linus",
		Email:        "linus@example.com",
		PasswordHash: "hash",
		Role:         model.RoleUser,
	})
	require.NoError(t, err)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	t.Run("set and resolve token", func(t *testing.T) {
		require.NoError(t, repo.SetResetToken(ctx, created.ID, "token-hash", expiry))

		found, err := repo.FindByResetTokenHash(ctx, "token-hash")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		require.NotNil(t, found.ResetTokenExpiresAt)
	})

	t.Run("set token for unknown user", func(t *testing.T) {
		err := repo.SetResetToken(ctx, 999999, "x", expiry)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("password update clears the token", func(t *testing.T) {
		require.NoError(t, repo.UpdatePassword(ctx, created.ID, "new-hash"))

		_, err := repo.FindByResetTokenHash(ctx, "token-hash")
		require.ErrorIs(t, err, ErrUserNotFound)

		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", found.PasswordHash)
		assert.Nil(t, found.ResetTokenHash)
	})
}
