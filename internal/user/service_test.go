package user

import (
	"context"
	"testing"
	"time"

	"github.com/SlpAus/space-notes-backend/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testsupport.NewSQLiteDB(t, &User{})
	svc := NewService(db, NewTokenIssuer("test-secret", time.Hour))
	svc.cost = bcrypt.MinCost
	return svc
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, Credentials{Email: "  Pilot@Example.com ", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "pilot@example.com", u.Email)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	got, err := svc.Authenticate(ctx, Credentials{Email: "PILOT@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Credentials{Email: "A@example.com", Password: "password2"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []Credentials{
		{Email: "", Password: "password1"},
		{Email: "not-an-email", Password: "password1"},
		{Email: "a@example.com", Password: "short"},
	}
	for _, c := range cases {
		_, err := svc.Register(ctx, c)
		assert.ErrorIs(t, err, ErrInvalidInput, c.Email)
	}
}

func TestAuthenticateDoesNotLeakWhichPartFailed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, Credentials{Email: "a@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginIssuesParsableToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, Credentials{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	token, _, err := svc.Login(ctx, Credentials{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	current, err := svc.Tokens().Parse(token)
	require.NoError(t, err)
	assert.Equal(t, &CurrentUser{ID: u.ID, Email: "a@example.com"}, current)
}
