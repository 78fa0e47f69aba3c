package middleware

import (
	"strings"

	"github.com/codeschool/accounts/internal/auth"
	"github.com/codeschool/accounts/internal/config"
	"github.com/codeschool/accounts/internal/dto"
	"github.com/codeschool/accounts/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const staffLocal = "is_staff"

// StaffRequired admits the admin token and active users whose stored record
// is staff, superuser, administrator or listed in ADMIN_EMAILS. Token claims
// are not trusted since they may be stale.
func StaffRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	check := staffCheck(db, cfg)

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
			c.Locals(staffLocal, true)
			return c.Next()
		}
		if _, err := CurrentSession(c); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if check(c) {
			c.Locals(staffLocal, true)
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Staff access required",
		})
	}
}

// DetectStaff marks staff sessions like StaffRequired but lets everyone
// else through, for routes where staff get extra powers.
func DetectStaff(db *gorm.DB, cfg *config.Config) fiber.Handler {
	check := staffCheck(db, cfg)

	return func(c *fiber.Ctx) error {
		c.Locals(staffLocal, check(c))
		return c.Next()
	}
}

func staffCheck(db *gorm.DB, cfg *config.Config) func(*fiber.Ctx) bool {
	adminEmails := parseEmails(cfg.AdminEmails)

	return func(c *fiber.Ctx) bool {
		s, err := CurrentSession(c)
		if err != nil {
			return false
		}
		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, "id = ?", s.UserID).Error; err != nil {
			return false
		}
		if !user.IsActive {
			return false
		}
		// Local parts are case sensitive, so the stored address is matched exactly.
		return contains(adminEmails, user.Email) ||
			user.IsStaff || user.IsSuperuser || user.Role == models.RoleAdmin
	}
}

// IsStaff reports whether StaffRequired admitted this request.
func IsStaff(c *fiber.Ctx) bool {
	v, _ := c.Locals(staffLocal).(bool)
	return v
}

// parseEmails splits ADMIN_EMAILS and normalizes each entry the way
// account emails are stored.
func parseEmails(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if email := auth.NormalizeEmail(p); email != "" {
			result = append(result, email)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
