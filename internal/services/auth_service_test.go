package services

import (
	"context"
	"testing"
	"time"

	"github.com/storelab/commerce-gateway/internal/auth"
	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/storelab/commerce-gateway/internal/notify"
	"github.com/storelab/commerce-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepo struct {
	mock.Mock
	txCalls int
}

// WithinTransaction runs fn directly, recording that a transaction was
// opened.
func (m *MockUserRepo) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txCalls++
	return fn(ctx)
}

func (m *MockUserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepo) SetResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockUserRepo) FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

func newAuthService(t *testing.T, repo UserRepository) *AuthService {
	t.Helper()
	tokens, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)
	return NewAuthService(repo, tokens, nil, bcrypt.MinCost)
}

func TestAuthService_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes the password and stores the user", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		repo.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
			if u.Email != "ada@example.com" || u.Role != model.RoleUser {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter2hunter2")) == nil
		})).Return(&model.User{ID: 1, Email: "ada@example.com", Role: model.RoleUser}, nil)

		user, err := svc.Signup(ctx, model.SignupRequest{
			Name:     "Ada",
			Email:    "ada@example.com",
			Password: "hunter2hunter2",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		repo.AssertExpectations(t)
	})

	t.Run("broadcasts user.registered", func(t *testing.T) {
		repo := new(MockUserRepo)
		notifier := new(MockNotifier)
		tokens, err := auth.NewManager("test-secret", time.Hour)
		require.NoError(t, err)
		svc := NewAuthService(repo, tokens, notifier, bcrypt.MinCost)

		repo.On("Create", ctx, mock.Anything).
			Return(&model.User{ID: 7, Name: "Ada", Email: "ada@example.com", Role: model.RoleUser}, nil)
		notifier.On("Emit", mock.MatchedBy(func(e notify.Event) bool {
			return e.Type == notify.EventUserRegistered && e.Subject == "ada@example.com" &&
				e.Data["user_id"] == "7"
		})).Return()

		_, err = svc.Signup(ctx, model.SignupRequest{
			Name:     "Ada",
			Email:    "ada@example.com",
			Password: "hunter2hunter2",
		})
		require.NoError(t, err)
		notifier.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		repo.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicateEmail)

		_, err := svc.Signup(ctx, model.SignupRequest{
			Name:     "Ada",
			Email:    "ada@example.com",
			Password: "hunter2hunter2",
		})
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("short password is rejected before the repo", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		_, err := svc.Signup(ctx, model.SignupRequest{
			Name:     "Ada",
			Email:    "ada@example.com",
			Password: "short",
		})
		require.Error(t, err)
		repo.AssertNotCalled(t, "Create")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &model.User{ID: 7, Email: "ada@example.com", PasswordHash: string(hash), Role: model.RoleUser}

	t.Run("valid credentials mint a token", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		repo.On("FindByEmail", ctx, "ada@example.com").Return(stored, nil)

		token, user, err := svc.Login(ctx, model.LoginRequest{Email: "ada@example.com", Password: "correct-horse"})
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, int64(7), user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		repo.On("FindByEmail", ctx, "ada@example.com").Return(stored, nil)

		_, _, err := svc.Login(ctx, model.LoginRequest{Email: "ada@example.com", Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email maps to the same error", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		repo.On("FindByEmail", ctx, "nobody@example.com").Return(nil, repository.ErrUserNotFound)

		_, _, err := svc.Login(ctx, model.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_RequestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("stores only the token hash", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		repo.On("FindByEmail", ctx, "ada@example.com").Return(&model.User{ID: 7, Email: "ada@example.com"}, nil)

		var storedHash string
		repo.On("SetResetToken", ctx, int64(7), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) { storedHash = args.String(2) }).
			Return(nil)

		token, err := svc.RequestReset(ctx, "ada@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.NotEqual(t, token, storedHash)
		assert.Equal(t, hashToken(token), storedHash)
	})

	t.Run("hands the token to the delivery sink", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		var sinkEmail, sinkToken string
		svc.SetResetTokenDelivery(func(email, token string) {
			sinkEmail = email
			sinkToken = token
		})

		repo.On("FindByEmail", ctx, "ada@example.com").Return(&model.User{ID: 7, Email: "ada@example.com"}, nil)
		repo.On("SetResetToken", ctx, int64(7), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

		token, err := svc.RequestReset(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", sinkEmail)
		assert.Equal(t, token, sinkToken)
	})

	t.Run("unknown email does not error", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		repo.On("FindByEmail", ctx, "nobody@example.com").Return(nil, repository.ErrUserNotFound)

		token, err := svc.RequestReset(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Empty(t, token)
		repo.AssertNotCalled(t, "SetResetToken")
	})
}

func TestAuthService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	token := "deadbeefdeadbeef"
	tokenHash := hashToken(token)

	t.Run("valid token replaces the password", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		expiry := time.Now().Add(time.Hour)
		repo.On("FindByResetTokenHash", ctx, tokenHash).Return(&model.User{
			ID:                  7,
			ResetTokenHash:      &tokenHash,
			ResetTokenExpiresAt: &expiry,
		}, nil)
		repo.On("UpdatePassword", ctx, int64(7), mock.AnythingOfType("string")).Return(nil)

		err := svc.ResetPassword(ctx, model.ResetPasswordRequest{ResetToken: token, NewPassword: "new-password-1"})
		require.NoError(t, err)
		repo.AssertExpectations(t)
		assert.Equal(t, 1, repo.txCalls, "lookup and write must share one transaction")
	})

	t.Run("expired token", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		expiry := time.Now().Add(-time.Minute)
		repo.On("FindByResetTokenHash", ctx, tokenHash).Return(&model.User{
			ID:                  7,
			ResetTokenHash:      &tokenHash,
			ResetTokenExpiresAt: &expiry,
		}, nil)

		err := svc.ResetPassword(ctx, model.ResetPasswordRequest{ResetToken: token, NewPassword: "new-password-1"})
		require.ErrorIs(t, err, ErrResetInvalid)
		repo.AssertNotCalled(t, "UpdatePassword")
	})

	t.Run("unknown token", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newAuthService(t, repo)

		repo.On("FindByResetTokenHash", ctx, mock.Anything).Return(nil, repository.ErrUserNotFound)

		err := svc.ResetPassword(ctx, model.ResetPasswordRequest{ResetToken: "bogus", NewPassword: "new-password-1"})
		require.ErrorIs(t, err, ErrResetInvalid)
	})
}

func TestAuthService_Profile(t *testing.T) {
	ctx := context.Background()

	repo := new(MockUserRepo)
	svc := newAuthService(t, repo)

	repo.On("FindByID", ctx, int64(7)).Return(&model.User{ID: 7, Email: "ada@example.com"}, nil)
	repo.On("FindByID", ctx, int64(8)).Return(nil, repository.ErrUserNotFound)

	user, err := svc.Profile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = svc.Profile(ctx, 8)
	require.ErrorIs(t, err, ErrUserNotFound)
}
