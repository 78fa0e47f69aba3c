package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeschool/accounts/internal/auth"
	"github.com/codeschool/accounts/internal/config"
	"github.com/codeschool/accounts/internal/dto"
	"github.com/codeschool/accounts/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	accounts *AccountService
	authn    *auth.Authenticator
	// registerBackend is recorded on sessions opened by Register.
	registerBackend string
	now             func() time.Time
}

func NewAuthService(db *gorm.DB, cfg *config.Config, accounts *AccountService, settings auth.Settings) *AuthService {
	s := &AuthService{
		db:       db,
		cfg:      cfg,
		accounts: accounts,
		authn:    auth.NewAuthenticator(db, settings),
		now:      time.Now,
	}
	if names := settings.Names(); len(names) > 0 {
		s.registerBackend = names[len(names)-1]
	}
	return s
}

// Register creates the account and its profile, then logs the new user in
// through the last configured backend.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	data, err := req.Profile.ToUpdate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	user, err := s.accounts.Register(ctx, NewUser{
		Email:    req.Email,
		Name:     req.Name,
		Alias:    req.Alias,
		SchoolID: req.SchoolID,
		Password: req.Password,
		Role:     models.RoleStudent,
	}, data)
	if err != nil {
		return nil, err
	}

	return s.login(ctx, user, s.registerBackend)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, backend, err := s.authn.Authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		return nil, err
	}
	return s.login(ctx, user, backend)
}

func (s *AuthService) login(ctx context.Context, user *models.User, backend string) (*dto.AuthResponse, error) {
	now := s.now()
	if err := s.db.WithContext(ctx).Model(user).UpdateColumn("last_login", now).Error; err != nil {
		return nil, fmt.Errorf("update last_login: %w", err)
	}
	user.LastLogin = &now

	return s.generateTokenPair(ctx, user, backend)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued for the same backend.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	var stored models.RefreshToken
	var user models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_hash = ? AND revoked = ?", hashToken(req.RefreshToken), false).
			First(&stored).Error; err != nil {
			return ErrInvalidToken
		}

		res := tx.Model(&stored).Where("revoked = ?", false).Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 || s.now().After(stored.ExpiresAt) {
			return ErrInvalidToken
		}

		if err := tx.First(&user, "id = ?", stored.UserID).Error; err != nil {
			return ErrInvalidToken
		}
		if !user.IsActive {
			return ErrInvalidToken
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidToken) && stored.ID != uuid.Nil {
			// Expired tokens are revoked even though the call fails.
			if rerr := s.db.WithContext(ctx).Model(&stored).Update("revoked", true).Error; rerr != nil {
				slog.ErrorContext(ctx, "revoke refresh token failed",
					"user_id", stored.UserID.String(),
					"error", rerr.Error(),
				)
			}
		}
		return nil, err
	}

	return s.generateTokenPair(ctx, &user, stored.Backend)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(req.RefreshToken)).
		Update("revoked", true).Error
}

// RevokeAll revokes every outstanding refresh token of userID.
func (s *AuthService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User, backend string) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user, backend)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, user, backend)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Backend:      backend,
		User:         dto.NewUserResponse(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User, backend string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"email":    user.Email,
		"role":     int(user.Role),
		"is_staff": user.IsStaff,
		"backend":  backend,
		"iat":      now.Unix(),
		"exp":      now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, user *models.User, backend string) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		Backend:   backend,
		ExpiresAt: s.now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
