package dto

import (
	"time"

	"github.com/codeschool/accounts/internal/models"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email    string          `json:"email" validate:"required,email,max=254"`
	Password string          `json:"password" validate:"required,min=8,max=128"`
	Name     string          `json:"name" validate:"max=140"`
	Alias    string          `json:"alias" validate:"max=20"`
	SchoolID string          `json:"school_id" validate:"max=20"`
	Profile  *ProfileRequest `json:"profile,omitempty"`
}

// LoginRequest accepts any identifier understood by the enabled
// authentication backends (email or school id).
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	Backend      string       `json:"backend"`
	User         UserResponse `json:"user"`
}

type UserResponse struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Alias       string      `json:"alias"`
	SchoolID    *string     `json:"school_id,omitempty"`
	Role        models.Role `json:"role"`
	RoleLabel   string      `json:"role_label"`
	IsStaff     bool        `json:"is_staff"`
	IsSuperuser bool        `json:"is_superuser"`
	IsActive    bool        `json:"is_active"`
	DateJoined  time.Time   `json:"date_joined"`
	LastLogin   *time.Time  `json:"last_login,omitempty"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.FullName(),
		Alias:       u.Alias,
		SchoolID:    u.SchoolID,
		Role:        u.Role,
		RoleLabel:   u.Role.String(),
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		IsActive:    u.IsActive,
		DateJoined:  u.DateJoined,
		LastLogin:   u.LastLogin,
	}
}

type ErrorResponse struct {
	Error   bool        `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	DB          string `json:"db"`
	Cache       string `json:"cache"`
	PluginCount int    `json:"plugin_count"`
}
