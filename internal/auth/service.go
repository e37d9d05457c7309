// Package auth signs users up and in and resolves bearer tokens to sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/contextwise/internal/apperr"
	"github.com/starford/contextwise/internal/models"
	"github.com/starford/contextwise/internal/store"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Config holds session settings.
type Config struct {
	JWTSecret  string
	SessionTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Service implements sign-up, sign-in and session lookup on top of a UserRepository.
type Service struct {
	users  store.UserRepository
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates an auth service.
func NewService(users store.UserRepository, cfg Config, logger *slog.Logger) *Service {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		cost:   cost,
		now:    time.Now,
		logger: logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	err := validation.Errors{
		"email":    validation.Validate(email, validation.Required, is.EmailFormat),
		"password": validation.Validate(password, validation.Required, validation.Length(MinPasswordLength, 0)),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error())
	}
	return nil
}

// SignUp registers a new account.
func (s *Service) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		return nil, err
	}
	s.logger.Info("user signed up", slog.String("user_id", u.ID))
	return u, nil
}

// SignIn checks credentials, opens a session and returns its bearer token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *models.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, apperr.ErrInvalidCredentials
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", nil, apperr.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperr.ErrInvalidCredentials
	}

	now := s.now()
	sess := models.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Email:     u.Email,
		ExpiresAt: now.Add(s.ttl).UTC(),
	}
	if err := s.users.CreateSession(ctx, sess); err != nil {
		return "", nil, err
	}

	token, err := s.signToken(sess.ID, sess.UserID, sess.Email, now, sess.ExpiresAt)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("user signed in", slog.String("user_id", u.ID))
	return token, &sess, nil
}

// GetSession resolves a bearer token. Bad, expired or revoked tokens yield
// apperr.ErrUnauthorized.
func (s *Service) GetSession(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, apperr.ErrUnauthorized
	}

	sess, err := s.users.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	if sess.UserID != claims.Subject {
		return nil, apperr.ErrUnauthorized
	}
	return sess, nil
}

// SignOut revokes the session behind token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return apperr.ErrUnauthorized
	}
	return s.users.DeleteSession(ctx, claims.ID)
}

// PurgeExpired drops sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) error {
	n, err := s.users.DeleteExpiredSessions(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Debug("expired sessions purged", slog.Int64("count", n))
	}
	return nil
}

// RunJanitor calls PurgeExpired every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("session purge failed", slog.String("error", err.Error()))
			}
		}
	}
}
