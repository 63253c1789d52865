package handler

import (
	"errors"

	"github.com/brokerage-dashboard/internal/middleware"
	"github.com/brokerage-dashboard/internal/repository"
	"github.com/brokerage-dashboard/internal/service"
	"github.com/brokerage-dashboard/pkg/response"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles notification API requests
type NotificationHandler struct {
	notificationService *service.NotificationService
	authService         *service.AuthService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *service.NotificationService, authService *service.AuthService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		authService:         authService,
	}
}

// GetSettings returns the caller's notification preferences
// GET /api/notifications/settings
func (h *NotificationHandler) GetSettings(c *gin.Context) {
	settings, err := h.notificationService.Settings(middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		response.InternalError(c, "failed to load notification settings")
		return
	}

	response.Success(c, settings)
}

// UpdateSettings applies a partial update of the caller's preferences
// POST /api/notifications/settings
func (h *NotificationHandler) UpdateSettings(c *gin.Context) {
	var req service.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	settings, err := h.notificationService.UpdateSettings(middleware.GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		response.InternalError(c, "failed to update notification settings")
		return
	}

	response.Success(c, settings)
}

// Send triggers notification delivery to the caller
// POST /api/notifications/send
func (h *NotificationHandler) Send(c *gin.Context) {
	var req service.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.authService.GetUserByID(middleware.GetUserID(c))
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	if err := h.notificationService.Send(user, req.Subject, req.Body); err != nil {
		response.InternalError(c, "failed to send email notification")
		return
	}

	response.Success(c, gin.H{"message": "notification sent successfully"})
}

// RegisterRoutes registers notification routes
func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	notifications := rg.Group("/notifications", authMiddleware)
	{
		notifications.GET("/settings", h.GetSettings)
		notifications.POST("/settings", h.UpdateSettings)
		notifications.POST("/send", h.Send)
	}
}
