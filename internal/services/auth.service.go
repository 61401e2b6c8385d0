package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/storelab/commerce-gateway/internal/auth"
	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/storelab/commerce-gateway/internal/notify"
	"github.com/storelab/commerce-gateway/internal/repository"
	"github.com/storelab/commerce-gateway/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials deliberately covers both an unknown email and a
	// wrong password so login failures don't reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrUserNotFound = errors.New("user not found")
	ErrResetInvalid = errors.New("reset token is invalid or expired")
)

const resetTokenTTL = time.Hour

type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	SetResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ResetTokenDelivery hands a freshly issued reset token to an out-of-band
// channel (mail provider, SMS). The token must never appear in an HTTP
// response.
type ResetTokenDelivery func(email, token string)

type AuthService struct {
	repo         UserRepository
	tokens       *auth.Manager
	notifier     Notifier
	bcryptCost   int
	deliverReset ResetTokenDelivery
}

func NewAuthService(repo UserRepository, tokens *auth.Manager, notifier Notifier, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		repo:       repo,
		tokens:     tokens,
		notifier:   notifier,
		bcryptCost: bcryptCost,
		deliverReset: func(email, token string) {
			logger.Debug("Password reset token issued", "email", email, "token", token)
		},
	}
}

// SetResetTokenDelivery replaces the default debug-log delivery with a real
// channel.
func (s *AuthService) SetResetTokenDelivery(fn ResetTokenDelivery) {
	if fn != nil {
		s.deliverReset = fn
	}
}

func (s *AuthService) Signup(ctx context.Context, p model.SignupRequest) (*model.User, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &model.User{
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	logger.Info("User signed up", "user_id", user.ID, "email", user.Email)

	if s.notifier != nil {
		s.notifier.Emit(notify.Event{
			Type:    notify.EventUserRegistered,
			Subject: user.Email,
			Data: map[string]string{
				"user_id": strconv.FormatInt(user.ID, 10),
				"name":    user.Name,
			},
		})
	}

	return user, nil
}

// Login checks the credentials and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, p model.LoginRequest) (string, *model.User, error) {
	if err := p.Validate(); err != nil {
		return "", nil, err
	}

	user, err := s.repo.FindByEmail(ctx, p.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(p.Password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Mint(auth.Principal{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return "", nil, fmt.Errorf("mint token: %w", err)
	}

	return token, user, nil
}

// RequestReset issues a one-time password-reset token. Only its SHA-256 hash
// is stored; the plaintext goes to the delivery sink and to the caller for
// in-process use. An unknown email returns no error so the endpoint doesn't
// leak which addresses are registered; the token is empty in that case.
func (s *AuthService) RequestReset(ctx context.Context, email string) (string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil
		}
		return "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := s.repo.SetResetToken(ctx, user.ID, hashToken(token), time.Now().Add(resetTokenTTL)); err != nil {
		return "", err
	}

	s.deliverReset(user.Email, token)
	logger.Info("Password reset requested", "user_id", user.ID)

	return token, nil
}

// ResetPassword consumes a reset token and replaces the password. The lookup
// and the write run in one transaction so two requests racing on the same
// token cannot both consume it.
func (s *AuthService) ResetPassword(ctx context.Context, p model.ResetPasswordRequest) error {
	if err := p.Validate(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var userID int64
	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.repo.FindByResetTokenHash(ctx, hashToken(p.ResetToken))
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrResetInvalid
			}
			return err
		}

		if user.ResetTokenExpiresAt == nil || time.Now().After(*user.ResetTokenExpiresAt) {
			return ErrResetInvalid
		}
		if user.ResetTokenHash == nil || subtle.ConstantTimeCompare([]byte(*user.ResetTokenHash), []byte(hashToken(p.ResetToken))) != 1 {
			return ErrResetInvalid
		}

		userID = user.ID
		return s.repo.UpdatePassword(ctx, user.ID, string(hash))
	})
	if err != nil {
		return err
	}

	logger.Info("Password reset completed", "user_id", userID)

	return nil
}

// Profile returns the user behind an authenticated principal.
func (s *AuthService) Profile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
