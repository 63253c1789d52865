package service

import (
	"github.com/brokerage-dashboard/internal/models"
	"github.com/brokerage-dashboard/internal/repository"
	"go.uber.org/zap"
)

// AdminUser is the user summary exposed to administrators
type AdminUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// UpdateUserRequest carries a partial admin edit of a user; absent fields
// are left unchanged.
type UpdateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	IsAdmin  *bool   `json:"is_admin"`
}

// AdminStats is the aggregate user count report
type AdminStats struct {
	TotalUsers int64 `json:"total_users"`
	AdminUsers int64 `json:"admin_users"`
}

// AdminService handles administrative user management
type AdminService struct {
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(userRepo *repository.UserRepository, logger *zap.Logger) *AdminService {
	return &AdminService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// ListUsers returns all users
func (s *AdminService) ListUsers() ([]AdminUser, error) {
	users, err := s.userRepo.List()
	if err != nil {
		return nil, err
	}

	out := make([]AdminUser, 0, len(users))
	for _, u := range users {
		out = append(out, AdminUser{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			IsAdmin:  u.IsAdmin,
		})
	}
	return out, nil
}

// UpdateUser applies a partial edit to a user. Returns
// repository.ErrUserNotFound for unknown ids.
func (s *AdminService) UpdateUser(adminUsername string, userID uint, req *UpdateUserRequest) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	s.logger.Info("admin updated user",
		zap.String("admin", adminUsername),
		zap.String("username", user.Username),
		zap.Uint("user_id", user.ID))

	return user, nil
}

// Stats returns aggregate user counts
func (s *AdminService) Stats() (*AdminStats, error) {
	total, err := s.userRepo.Count()
	if err != nil {
		return nil, err
	}
	admins, err := s.userRepo.CountAdmins()
	if err != nil {
		return nil, err
	}
	return &AdminStats{TotalUsers: total, AdminUsers: admins}, nil
}
