package middleware

import (
	"errors"

	"github.com/codeschool/accounts/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is what the access token says about the caller.
type Session struct {
	UserID  uuid.UUID
	Email   string
	Role    models.Role
	IsStaff bool
	Backend string
}

// CurrentSession reads the claims validated by JWTProtected.
func CurrentSession(c *fiber.Ctx) (*Session, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("missing sub claim")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, errors.New("invalid sub claim")
	}

	s := &Session{UserID: id}
	s.Email, _ = claims["email"].(string)
	s.IsStaff, _ = claims["is_staff"].(bool)
	s.Backend, _ = claims["backend"].(string)
	if code, ok := claims["role"].(float64); ok {
		s.Role = models.Role(int(code))
	}
	return s, nil
}

func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	s, err := CurrentSession(c)
	if err != nil {
		return uuid.Nil, err
	}
	return s.UserID, nil
}
