package auth

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/contextwise/internal/apperr"
	"github.com/starford/contextwise/internal/store"
)

const testSecret = "test-secret"

func newService(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, Config{
		JWTSecret:  testSecret,
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, db
}

func TestSignUpAndSignIn(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.SignUp(ctx, " Ann@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	token, sess, err := svc.SignIn(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, sess.UserID)
	assert.Equal(t, "ann@example.com", sess.Email)

	got, err := svc.GetSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, sess.ID, got.ID)
}

func TestSignUp_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "not-an-email", "secret1")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.SignUp(ctx, "ann@example.com", "12345")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSignUp_Duplicate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "ANN@example.com", "secret2")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	_, _, err = svc.SignIn(ctx, "ann@example.com", "wrong-pass")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, _, err = svc.SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestGetSession_BadTokens(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.GetSession(ctx, "garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	other := NewService(nil, Config{JWTSecret: "other-secret"}, nil)
	forged, err := other.signToken("sid", "uid", "x@example.com", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.GetSession(ctx, forged)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestGetSession_UnknownSessionID(t *testing.T) {
	svc, _ := newService(t)

	token, err := svc.signToken("missing", "uid", "x@example.com", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.GetSession(context.Background(), token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestGetSession_ExpiredToken(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	token, _, err := svc.SignIn(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.GetSession(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSignOut_RevokesSession(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	token, _, err := svc.SignIn(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, token))
	_, err = svc.GetSession(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
