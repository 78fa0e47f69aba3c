package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codeschool/accounts/internal/models"
	"gorm.io/gorm"
)

const (
	BackendEmail    = "email"
	BackendSchoolID = "school_id"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownBackend     = errors.New("unknown authentication backend")
	ErrNoBackends         = errors.New("no authentication backends configured")
)

// Backend verifies one kind of credential pair.
type Backend interface {
	Name() string
	Authenticate(ctx context.Context, db *gorm.DB, identifier, password string) (*models.User, error)
}

type EmailBackend struct{}

func (EmailBackend) Name() string { return BackendEmail }

func (EmailBackend) Authenticate(ctx context.Context, db *gorm.DB, identifier, password string) (*models.User, error) {
	email := NormalizeEmail(identifier)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	return checkUser(ctx, db.Where("email = ?", email), password)
}

type SchoolIDBackend struct{}

func (SchoolIDBackend) Name() string { return BackendSchoolID }

func (SchoolIDBackend) Authenticate(ctx context.Context, db *gorm.DB, identifier, password string) (*models.User, error) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return nil, ErrInvalidCredentials
	}
	return checkUser(ctx, db.Where("school_id = ?", id), password)
}

func checkUser(ctx context.Context, q *gorm.DB, password string) (*models.User, error) {
	var user models.User
	if err := q.WithContext(ctx).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive || !CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// NormalizeEmail trims the address and lowercases its domain part. The
// local part is kept as typed.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
