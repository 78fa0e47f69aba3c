package services

import (
	"errors"

	"github.com/codeschool/accounts/internal/auth"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotImplemented  = errors.New("not implemented")
	ErrEmailTaken      = errors.New("email already registered")
	ErrSchoolIDTaken   = errors.New("school id already registered")
	ErrAccountExists   = errors.New("account already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidToken    = errors.New("invalid or expired refresh token")
	ErrForbidden       = errors.New("forbidden")

	ErrInvalidCredentials = auth.ErrInvalidCredentials
)
