package service

import (
	"errors"
	"fmt"
	"net/smtp"

	"github.com/brokerage-dashboard/internal/config"
	"github.com/brokerage-dashboard/internal/models"
	"github.com/brokerage-dashboard/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrDeliveryFailed signals the email provider rejected or failed the send
	ErrDeliveryFailed = errors.New("notification delivery failed")
)

// EmailSender delivers a single email
type EmailSender interface {
	Send(to, subject, body string) error
}

// NotificationSettings are the per-user delivery preference flags
type NotificationSettings struct {
	EmailNotifications bool `json:"email_notifications"`
	PushNotifications  bool `json:"push_notifications"`
}

// UpdateSettingsRequest carries partial preference updates; absent fields
// are left unchanged.
type UpdateSettingsRequest struct {
	EmailNotifications *bool `json:"email_notifications"`
	PushNotifications  *bool `json:"push_notifications"`
}

// SendNotificationRequest triggers a notification to the caller
type SendNotificationRequest struct {
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// NotificationService manages notification preferences and delivery
type NotificationService struct {
	userRepo *repository.UserRepository
	sender   EmailSender
	logger   *zap.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(userRepo *repository.UserRepository, sender EmailSender, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		userRepo: userRepo,
		sender:   sender,
		logger:   logger,
	}
}

// Settings returns a user's notification preferences
func (s *NotificationService) Settings(userID uint) (*NotificationSettings, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	return &NotificationSettings{
		EmailNotifications: user.EmailNotifications,
		PushNotifications:  user.PushNotifications,
	}, nil
}

// UpdateSettings applies a partial preference update
func (s *NotificationService) UpdateSettings(userID uint, req *UpdateSettingsRequest) (*NotificationSettings, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if req.EmailNotifications != nil {
		user.EmailNotifications = *req.EmailNotifications
	}
	if req.PushNotifications != nil {
		user.PushNotifications = *req.PushNotifications
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	s.logger.Info("notification settings updated", zap.Uint("user_id", userID))

	return &NotificationSettings{
		EmailNotifications: user.EmailNotifications,
		PushNotifications:  user.PushNotifications,
	}, nil
}

// Send attempts delivery on each channel the user has enabled. Email
// failure is returned as ErrDeliveryFailed; the push channel is currently
// a no-op.
func (s *NotificationService) Send(user *models.User, subject, body string) error {
	messageID := uuid.NewString()

	if user.EmailNotifications {
		if err := s.sender.Send(user.Email, subject, body); err != nil {
			s.logger.Error("failed to send email notification",
				zap.Uint("user_id", user.ID),
				zap.String("message_id", messageID),
				zap.Error(err))
			return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		}
		s.logger.Info("email notification sent",
			zap.Uint("user_id", user.ID),
			zap.String("message_id", messageID))
	}

	if user.PushNotifications {
		// Push delivery is not implemented
		s.logger.Info("push notification skipped: no provider configured",
			zap.Uint("user_id", user.ID),
			zap.String("message_id", messageID))
	}

	return nil
}

// SMTPSender delivers email over SMTP
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender creates an SMTP-backed EmailSender
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers one email
func (s *SMTPSender) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	msg := []byte("From: " + s.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg)
}
