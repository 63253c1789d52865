package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered user
type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Username           string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email              string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash       string         `gorm:"size:255;not null" json:"-"`
	IsAdmin            bool           `gorm:"default:false" json:"is_admin"`
	EmailNotifications bool           `gorm:"default:true" json:"email_notifications"`
	PushNotifications  bool           `gorm:"default:false" json:"push_notifications"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Trades []Trade `gorm:"foreignKey:UserID" json:"trades,omitempty"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
