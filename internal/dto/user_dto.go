package dto

import "github.com/codeschool/accounts/internal/models"

type CreateUserRequest struct {
	Email       string      `json:"email" validate:"required,email,max=254"`
	Password    string      `json:"password" validate:"omitempty,min=8,max=128"`
	Name        string      `json:"name" validate:"max=140"`
	Alias       string      `json:"alias" validate:"max=20"`
	SchoolID    string      `json:"school_id" validate:"max=20"`
	Role        models.Role `json:"role" validate:"role"`
	IsStaff     bool        `json:"is_staff"`
	IsSuperuser bool        `json:"is_superuser"`
	IsActive    *bool       `json:"is_active,omitempty"`
}

type UpdateUserRequest struct {
	Name     *string      `json:"name,omitempty" validate:"omitempty,max=140"`
	Alias    *string      `json:"alias,omitempty" validate:"omitempty,max=20"`
	SchoolID *string      `json:"school_id,omitempty" validate:"omitempty,max=20"`
	Role     *models.Role `json:"role,omitempty" validate:"omitempty,role"`
	IsStaff  *bool        `json:"is_staff,omitempty"`
	IsActive *bool        `json:"is_active,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,max=128"`
}

type ChangeEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type UserListResponse struct {
	Users  []UserResponse `json:"users"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
