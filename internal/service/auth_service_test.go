package service

import (
	"testing"

	"github.com/brokerage-dashboard/internal/config"
	"github.com/brokerage-dashboard/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	db := setupTestDB(t)
	return NewAuthService(repository.NewUserRepository(db), config.JWTConfig{
		Secret:      "test-secret",
		ExpireHours: 1,
	})
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)

	user, err := svc.Register(&RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.True(t, user.EmailNotifications)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	t.Run("login with username", func(t *testing.T) {
		token, err := svc.Login(&LoginRequest{Username: "alice", Password: "hunter22"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer", token.TokenType)
		assert.NotEmpty(t, token.AccessToken)
		assert.Equal(t, 3600, token.ExpiresIn)
	})

	t.Run("login with email", func(t *testing.T) {
		_, err := svc.Login(&LoginRequest{Username: "alice@example.com", Password: "hunter22"})
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(&LoginRequest{Username: "alice", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(&LoginRequest{Username: "nobody", Password: "hunter22"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Register(&RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Register(&RegisterRequest{Username: "alice", Email: "other@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Register(&RegisterRequest{Username: "bob", Email: "alice@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestValidateAndRefreshToken(t *testing.T) {
	svc := newAuthService(t)

	user, err := svc.Register(&RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	token, err := svc.Login(&LoginRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	refreshed, err := svc.RefreshToken(token.AccessToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = svc.RefreshToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
