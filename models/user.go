package models

import (
	"context"
	"errors"
	"strings"

	"github.com/coverlane/agency_backend/config"
)

const (
	UserRoleAdmin = "Admin"
	UserRoleAgent = "Agent"
)

type User struct {
	ID       int    `gorm:"primary_key" json:"id"`
	Username string `gorm:"index;size:100;not null" json:"username"`
	Name     string `gorm:"size:100" json:"name"`
	AgencyId string `gorm:"index;size:36" json:"agency_id"`
	Role     string `gorm:"size:20;not null;default:'Agent'" json:"role"`
	IsActive *bool  `gorm:"not null;default:true" json:"is_active"`
}

// GetUserByUsername resolves a session user, redis cache first.
func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}

	var user User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}

	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, err
	}
	_ = config.SetRedisObject("User:"+username, &user, 0)
	return &user, nil
}
