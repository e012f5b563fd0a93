package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/paybook/internal/auth/domain"
	"github.com/smallbiznis/paybook/internal/auth/repository"
	"github.com/smallbiznis/paybook/internal/clock"
	"github.com/smallbiznis/paybook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type authFixture struct {
	db  *gorm.DB
	clk *clock.FakeClock
	svc domain.Service
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Session{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	payroll, err := config.NewPayrollConfigHolder()
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := New(zap.NewNop(), repository.NewRepository(db), repository.NewSessionRepository(db), node, clk, payroll)

	return &authFixture{db: db, clk: clk, svc: svc}
}

func (f *authFixture) signup(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := f.svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    email,
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return user
}

func TestCreateUserNormalizesAndRejectsDuplicates(t *testing.T) {
	f := newAuthFixture(t)

	user := f.signup(t, "  Asha@Example.COM ")
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, "asha", user.DisplayName)
	require.NotNil(t, user.PasswordHash)
	assert.NotContains(t, *user.PasswordHash, "correct horse")

	_, err := f.svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "asha@example.com",
		Password: "another password",
	})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestCreateUserRejectsWeakOrInvalidInput(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.CreateUser(context.Background(), domain.CreateUserRequest{Email: "not-an-email", Password: "long enough password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.CreateUser(context.Background(), domain.CreateUserRequest{Email: "ok@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginIssuesSessionAndAuthenticateRoundTrips(t *testing.T) {
	f := newAuthFixture(t)
	user := f.signup(t, "asha@example.com")

	result, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Email:    "asha@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), result.UserID)
	assert.Equal(t, f.clk.Now().Add(168*time.Hour), result.ExpiresAt)

	session, err := f.svc.Authenticate(context.Background(), result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	// The raw token is never stored.
	var stored domain.Session
	require.NoError(t, f.db.First(&stored, "id = ?", session.ID).Error)
	assert.NotEqual(t, result.RawToken, stored.SessionTokenHash)
}

func TestLoginRejectsWrongPasswordAndUnknownUser(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "asha@example.com")

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: "asha@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), domain.LoginRequest{Email: "nobody@example.com", Password: "whatever password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticateExpiresWithClock(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "asha@example.com")

	result, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Email:    "asha@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	_, err = f.svc.Authenticate(context.Background(), result.RawToken)
	require.NoError(t, err)

	f.clk.Advance(169 * time.Hour)
	_, err = f.svc.Authenticate(context.Background(), result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "asha@example.com")

	result, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Email:    "asha@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), result.RawToken))

	_, err = f.svc.Authenticate(context.Background(), result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)
}

func TestAuthenticateRejectsGarbageTokens(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = f.svc.Authenticate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
