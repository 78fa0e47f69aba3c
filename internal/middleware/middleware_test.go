package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codeschool/accounts/internal/config"
	"github.com/codeschool/accounts/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func TestCurrentSessionReadsClaims(t *testing.T) {
	cfg := &config.Config{JWTSecret: "s"}
	id := uuid.New()

	app := fiber.New()
	var got *Session
	app.Get("/", JWTProtected(cfg), func(c *fiber.Ctx) error {
		s, err := CurrentSession(c)
		if err != nil {
			return err
		}
		got = s
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, "s", jwt.MapClaims{
		"sub": id.String(), "email": "a@codeschool.dev", "role": 2, "is_staff": true, "backend": "school_id",
		"exp": time.Now().Add(time.Minute).Unix(),
	}))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, id, got.UserID)
	assert.Equal(t, models.RoleStaff, got.Role)
	assert.True(t, got.IsStaff)
	assert.Equal(t, "school_id", got.Backend)
}

func TestStaffRequired(t *testing.T) {
	db := testDB(t)
	cfg := &config.Config{JWTSecret: "s", AdminEmails: " boss@CodeSchool.dev ,", AdminToken: "tok"}

	staff := models.User{Email: "staff@codeschool.dev", IsStaff: true, IsActive: true}
	student := models.User{Email: "kid@codeschool.dev", IsActive: true}
	boss := models.User{Email: "boss@codeschool.dev", IsActive: true}
	lookalike := models.User{Email: "BOSS@codeschool.dev", IsActive: true}
	retired := models.User{Email: "old@codeschool.dev", IsStaff: true}
	for _, u := range []*models.User{&staff, &student, &boss, &lookalike, &retired} {
		require.NoError(t, db.Create(u).Error)
	}

	app := fiber.New()
	app.Get("/", AdminJWT(cfg), StaffRequired(db, cfg), func(c *fiber.Ctx) error {
		assert.True(t, IsStaff(c))
		return c.SendStatus(fiber.StatusOK)
	})

	bearer := func(u models.User) string {
		return "Bearer " + signed(t, "s", jwt.MapClaims{
			"sub": u.ID.String(), "email": u.Email, "exp": time.Now().Add(time.Minute).Unix(),
		})
	}
	cases := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"no credentials", nil, http.StatusUnauthorized},
		{"admin token", map[string]string{"X-Admin-Token": "tok"}, http.StatusOK},
		{"admin email", map[string]string{"Authorization": bearer(boss)}, http.StatusOK},
		{"admin email with other local case", map[string]string{"Authorization": bearer(lookalike)}, http.StatusForbidden},
		{"staff user", map[string]string{"Authorization": bearer(staff)}, http.StatusOK},
		{"inactive staff", map[string]string{"Authorization": bearer(retired)}, http.StatusForbidden},
		{"student", map[string]string{"Authorization": bearer(student)}, http.StatusForbidden},
		{"unknown user claiming admin email", map[string]string{"Authorization": bearer(models.User{
			ID: uuid.New(), Email: "boss@codeschool.dev",
		})}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestDetectStaffLetsEveryoneThrough(t *testing.T) {
	db := testDB(t)
	cfg := &config.Config{JWTSecret: "s"}
	student := models.User{Email: "kid@codeschool.dev", IsActive: true}
	require.NoError(t, db.Create(&student).Error)

	app := fiber.New()
	app.Get("/", JWTProtected(cfg), DetectStaff(db, cfg), func(c *fiber.Ctx) error {
		if IsStaff(c) {
			return c.SendStatus(fiber.StatusAccepted)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, "s", jwt.MapClaims{
		"sub": student.ID.String(), "exp": time.Now().Add(time.Minute).Unix(),
	}))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
