package handler

import (
	"errors"
	"strconv"

	"github.com/brokerage-dashboard/internal/middleware"
	"github.com/brokerage-dashboard/internal/repository"
	"github.com/brokerage-dashboard/internal/service"
	"github.com/brokerage-dashboard/pkg/response"
	"github.com/gin-gonic/gin"
)

// AdminHandler handles administrative API requests
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// ListUsers returns all users
// GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers()
	if err != nil {
		response.InternalError(c, "failed to list users")
		return
	}

	response.Success(c, users)
}

// UpdateUser applies a partial edit to a user
// PUT /api/admin/user/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.adminService.UpdateUser(middleware.GetUsername(c), uint(userID), &req)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		response.InternalError(c, "failed to update user")
		return
	}

	response.Success(c, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"is_admin": user.IsAdmin,
	})
}

// Stats returns aggregate user counts
// GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminService.Stats()
	if err != nil {
		response.InternalError(c, "failed to compute stats")
		return
	}

	response.Success(c, stats)
}

// RegisterRoutes registers admin routes
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware, adminMiddleware gin.HandlerFunc) {
	admin := rg.Group("/admin", authMiddleware, adminMiddleware)
	{
		admin.GET("/users", h.ListUsers)
		admin.PUT("/user/:id", h.UpdateUser)
		admin.GET("/stats", h.Stats)
	}
}
