package service

import (
	"errors"
	"testing"

	"github.com/brokerage-dashboard/internal/models"
	"github.com/brokerage-dashboard/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSender records sent emails
type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func seedUser(t *testing.T, repo *repository.UserRepository, user *models.User) *models.User {
	t.Helper()
	require.NoError(t, repo.Create(user))
	return user
}

func TestSettingsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	userRepo := repository.NewUserRepository(db)
	svc := NewNotificationService(userRepo, &fakeSender{}, zap.NewNop())

	user := seedUser(t, userRepo, &models.User{
		Username:           "alice",
		Email:              "alice@example.com",
		PasswordHash:       "x",
		EmailNotifications: true,
	})

	settings, err := svc.Settings(user.ID)
	require.NoError(t, err)
	assert.True(t, settings.EmailNotifications)
	assert.False(t, settings.PushNotifications)

	// Partial update: only push changes
	push := true
	updated, err := svc.UpdateSettings(user.ID, &UpdateSettingsRequest{PushNotifications: &push})
	require.NoError(t, err)
	assert.True(t, updated.EmailNotifications)
	assert.True(t, updated.PushNotifications)

	email := false
	updated, err = svc.UpdateSettings(user.ID, &UpdateSettingsRequest{EmailNotifications: &email})
	require.NoError(t, err)
	assert.False(t, updated.EmailNotifications)
	assert.True(t, updated.PushNotifications)
}

func TestSettingsUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewNotificationService(repository.NewUserRepository(db), &fakeSender{}, zap.NewNop())

	_, err := svc.Settings(999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestSendRespectsPreferences(t *testing.T) {
	db := setupTestDB(t)
	userRepo := repository.NewUserRepository(db)

	t.Run("email enabled", func(t *testing.T) {
		sender := &fakeSender{}
		svc := NewNotificationService(userRepo, sender, zap.NewNop())
		user := &models.User{Email: "on@example.com", EmailNotifications: true}

		require.NoError(t, svc.Send(user, "subject", "body"))
		assert.Equal(t, []string{"on@example.com"}, sender.sent)
	})

	t.Run("email disabled", func(t *testing.T) {
		sender := &fakeSender{}
		svc := NewNotificationService(userRepo, sender, zap.NewNop())
		user := &models.User{Email: "off@example.com", EmailNotifications: false}

		require.NoError(t, svc.Send(user, "subject", "body"))
		assert.Empty(t, sender.sent)
	})

	t.Run("delivery failure", func(t *testing.T) {
		sender := &fakeSender{err: errors.New("smtp: connection refused")}
		svc := NewNotificationService(userRepo, sender, zap.NewNop())
		user := &models.User{Email: "on@example.com", EmailNotifications: true}

		err := svc.Send(user, "subject", "body")
		assert.ErrorIs(t, err, ErrDeliveryFailed)
	})
}
