package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codeschool/accounts/internal/apps"
	"github.com/codeschool/accounts/internal/apps/academic"
	"github.com/codeschool/accounts/internal/auth"
	"github.com/codeschool/accounts/internal/config"
	"github.com/codeschool/accounts/internal/database"
	"github.com/codeschool/accounts/internal/dto"
	"github.com/codeschool/accounts/internal/events"
	"github.com/codeschool/accounts/internal/handlers"
	"github.com/codeschool/accounts/internal/models"
	"github.com/codeschool/accounts/internal/services"
	"github.com/codeschool/accounts/internal/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const adminToken = "let-me-in"

type testServer struct {
	app      *fiber.App
	db       *gorm.DB
	accounts *services.AccountService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.OpenSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	db.Logger = logger.Default.LogMode(logger.Silent)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	v := validator.New()
	plugins := []apps.Plugin{academic.New(v)}
	require.NoError(t, database.MigrateShared(db))
	for _, p := range plugins {
		require.NoError(t, database.MigrateModels(db, p.Models()))
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		JWTAccessExpiry:   15 * time.Minute,
		JWTRefreshExpiry:  time.Hour,
		AuthBackends:      []string{auth.BackendEmail, auth.BackendSchoolID},
		BcryptCost:        bcrypt.MinCost,
		MinPasswordLength: 8,
		CacheTTL:          time.Minute,
		AdminToken:        adminToken,
		AdminEmails:       "admin@codeschool.dev",
	}
	settings, err := auth.NewSettings(cfg.AuthBackends)
	require.NoError(t, err)

	pub := events.NewInProcess(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	t.Cleanup(func() { pub.Close() })

	accounts := services.NewAccountService(db, cfg, pub, nil)
	authService := services.NewAuthService(db, cfg, accounts, settings)

	app := fiber.New()
	Setup(app, cfg, db, Handlers{
		Auth:    handlers.NewAuthHandler(authService, v),
		Users:   handlers.NewUserHandler(accounts, services.NewExportService(accounts), v),
		Profile: handlers.NewProfileHandler(accounts, v),
		Health:  handlers.NewHealthHandler(nil, len(plugins)),
	}, plugins)

	return &testServer{app: app, db: db, accounts: accounts}
}

type call struct {
	method string
	path   string
	body   interface{}
	token  string
	admin  bool
}

func (s *testServer) do(t *testing.T, c call) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.admin {
		req.Header.Set("X-Admin-Token", adminToken)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

// login creates an account directly and signs in through the API.
func (s *testServer) login(t *testing.T, email string, flags ...services.Flag) (string, *models.User) {
	t.Helper()
	u, err := s.accounts.CreateUser(context.Background(), services.NewUser{
		Email: email, Password: "password123", Alias: "alias",
	}, flags...)
	require.NoError(t, err)

	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: dto.LoginRequest{
		Identifier: email, Password: "password123",
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var ar dto.AuthResponse
	require.NoError(t, json.Unmarshal(body, &ar))
	return ar.AccessToken, u
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, call{method: http.MethodGet, path: "/api/health"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h dto.HealthResponse
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "ok", h.DB)
	assert.Equal(t, "disabled", h.Cache)
	assert.Equal(t, 1, h.PluginCount)
}

func TestRegisterThenEditProfile(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]interface{}{
		"email":    "ada@CodeSchool.dev",
		"password": "long-enough",
		"name":     "Ada Lovelace",
		"alias":    "ada",
		"profile":  map[string]interface{}{"date_of_birth": "2000-06-15"},
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var ar dto.AuthResponse
	require.NoError(t, json.Unmarshal(body, &ar))
	assert.Equal(t, "ada@codeschool.dev", ar.User.Email)

	resp, body = s.do(t, call{method: http.MethodGet, path: "/api/profile", token: ar.AccessToken})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var p dto.ProfileResponse
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "Ada Lovelace's profile", p.Display)
	assert.Equal(t, "Only friends", p.VisibilityLabel)
	require.NotNil(t, p.DateOfBirth)
	assert.Equal(t, "2000-06-15", *p.DateOfBirth)

	resp, body = s.do(t, call{method: http.MethodPut, path: "/api/profile", token: ar.AccessToken, body: map[string]interface{}{
		"visibility": 2,
		"about_me":   "first programmer",
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "Private", p.VisibilityLabel)
	assert.Equal(t, "first programmer", p.AboutMe)
	assert.NotNil(t, p.DateOfBirth, "omitted birth date is kept")

	resp, body = s.do(t, call{method: http.MethodPut, path: "/api/profile", token: ar.AccessToken, body: map[string]interface{}{
		"date_of_birth": "",
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	p = dto.ProfileResponse{}
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Nil(t, p.DateOfBirth)
	assert.Nil(t, p.Age)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]interface{}{
		"email": "not-an-email", "password": "long-enough",
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "email")

	resp, _ = s.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]interface{}{
		"email": "a@codeschool.dev", "password": "long-enough", "profile": map[string]interface{}{"visibility": 7},
	}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "taken@codeschool.dev")

	resp, _ := s.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]interface{}{
		"email": "taken@CODESCHOOL.dev", "password": "long-enough",
	}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "user@codeschool.dev")

	resp, _ := s.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: dto.LoginRequest{
		Identifier: "user@codeschool.dev", Password: "wrong-password",
	}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	_, err := s.accounts.CreateUser(context.Background(), services.NewUser{Email: "r@codeschool.dev", Password: "password123"})
	require.NoError(t, err)

	_, body := s.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: dto.LoginRequest{
		Identifier: "r@codeschool.dev", Password: "password123",
	}})
	var ar dto.AuthResponse
	require.NoError(t, json.Unmarshal(body, &ar))

	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/auth/refresh", body: dto.RefreshRequest{RefreshToken: ar.RefreshToken}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var rotated dto.AuthResponse
	require.NoError(t, json.Unmarshal(body, &rotated))
	assert.NotEqual(t, ar.RefreshToken, rotated.RefreshToken)

	resp, _ = s.do(t, call{method: http.MethodPost, path: "/api/auth/refresh", body: dto.RefreshRequest{RefreshToken: ar.RefreshToken}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, call{method: http.MethodPost, path: "/api/auth/logout", token: rotated.AccessToken,
		body: dto.LogoutRequest{RefreshToken: rotated.RefreshToken}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, call{method: http.MethodPost, path: "/api/auth/refresh", body: dto.RefreshRequest{RefreshToken: rotated.RefreshToken}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/profile", "/api/users", "/api/p/academic/faculties"} {
		resp, _ := s.do(t, call{method: http.MethodGet, path: path})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestUnimplementedOperations(t *testing.T) {
	s := newTestServer(t)
	token, u := s.login(t, "me@codeschool.dev")
	_, other := s.login(t, "other@codeschool.dev")

	resp, _ := s.do(t, call{method: http.MethodPost, path: "/api/users/" + u.ID.String() + "/email", token: token,
		body: dto.ChangeEmailRequest{Email: "new@codeschool.dev"}})
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp, _ = s.do(t, call{method: http.MethodGet, path: "/api/users/" + other.ID.String() + "/profile", token: token})
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	token, u := s.login(t, "me@codeschool.dev")
	_, other := s.login(t, "other@codeschool.dev")
	path := "/api/users/" + u.ID.String() + "/password"

	resp, _ := s.do(t, call{method: http.MethodPost, path: path, token: token,
		body: dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "brand-new-pass"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, call{method: http.MethodPost, path: path, token: token,
		body: dto.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "short"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = s.do(t, call{method: http.MethodPost, path: path, token: token,
		body: dto.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "brand-new-pass"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	reloaded, err := s.accounts.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(reloaded.Password, "brand-new-pass"))

	resp, _ = s.do(t, call{method: http.MethodPost, path: "/api/users/" + other.ID.String() + "/password", token: token,
		body: dto.ChangePasswordRequest{NewPassword: "brand-new-pass"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStaffResetsAnotherPassword(t *testing.T) {
	s := newTestServer(t)
	staffToken, _ := s.login(t, "staff@codeschool.dev", services.WithStaff(true))
	_, student := s.login(t, "student@codeschool.dev")

	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/users/" + student.ID.String() + "/password", token: staffToken,
		body: dto.ChangePasswordRequest{NewPassword: "reset-by-staff"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	reloaded, err := s.accounts.Get(context.Background(), student.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(reloaded.Password, "reset-by-staff"))
}

func TestExtraEmails(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, "me@codeschool.dev")
	s.login(t, "other@codeschool.dev")

	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/profile/emails", token: token,
		body: dto.ExtraEmailRequest{Email: "alt@codeschool.dev"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = s.do(t, call{method: http.MethodPost, path: "/api/profile/emails", token: token,
		body: dto.ExtraEmailRequest{Email: "other@codeschool.dev"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = s.do(t, call{method: http.MethodGet, path: "/api/profile/emails", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Emails []dto.ExtraEmailResponse `json:"emails"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Emails, 1)
	assert.Equal(t, "alt@codeschool.dev", out.Emails[0].Email)
}

func TestDirectory(t *testing.T) {
	s := newTestServer(t)
	token, u := s.login(t, "me@codeschool.dev")
	s.login(t, "teacher@codeschool.dev")

	resp, body := s.do(t, call{method: http.MethodGet, path: "/api/users?q=teacher", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var list dto.UserListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, int64(1), list.Total)

	resp, _ = s.do(t, call{method: http.MethodGet, path: "/api/users?role=9", token: token})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body = s.do(t, call{method: http.MethodGet, path: "/api/users/" + u.ID.String(), token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ur dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &ur))
	assert.Equal(t, "me@codeschool.dev", ur.Email)
	assert.Equal(t, "Student", ur.RoleLabel)

	resp, _ = s.do(t, call{method: http.MethodGet, path: "/api/users/not-a-uuid", token: token})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRoutesRequireStaff(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, "student@codeschool.dev")

	resp, _ := s.do(t, call{method: http.MethodPost, path: "/api/admin/users", token: token,
		body: dto.CreateUserRequest{Email: "x@codeschool.dev"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, call{method: http.MethodPost, path: "/api/admin/users",
		body: dto.CreateUserRequest{Email: "x@codeschool.dev"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminUserLifecycle(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/admin/users", admin: true,
		body: dto.CreateUserRequest{Email: "root@codeschool.dev", Password: "password123", Role: models.RoleStaff, IsSuperuser: true}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.True(t, created.IsStaff)
	assert.True(t, created.IsSuperuser)
	assert.Equal(t, "School staff", created.RoleLabel)

	name := "Root User"
	resp, body = s.do(t, call{method: http.MethodPut, path: "/api/admin/users/" + created.ID.String(), admin: true,
		body: dto.UpdateUserRequest{Name: &name}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = s.do(t, call{method: http.MethodGet, path: "/api/admin/users/export", admin: true})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, body)

	resp, _ = s.do(t, call{method: http.MethodDelete, path: "/api/admin/users/" + created.ID.String(), admin: true})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(t, call{method: http.MethodDelete, path: "/api/admin/users/" + created.ID.String(), admin: true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCataloguePluginMounted(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, "student@codeschool.dev")

	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/admin/academic/faculties", admin: true,
		body: map[string]string{"slug": "computing", "name": "Faculty of Computing"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = s.do(t, call{method: http.MethodGet, path: "/api/p/academic/faculties/computing", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "Faculty of Computing")

	resp, _ = s.do(t, call{method: http.MethodPost, path: "/api/admin/academic/faculties", token: token,
		body: map[string]string{"slug": "physics", "name": "Physics"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminEmailMatchesExactAccount(t *testing.T) {
	s := newTestServer(t)
	adminTok, _ := s.login(t, "admin@codeschool.dev")
	impostorTok, _ := s.login(t, "ADMIN@codeschool.dev")

	resp, _ := s.do(t, call{method: http.MethodPost, path: "/api/admin/users", token: impostorTok,
		body: dto.CreateUserRequest{Email: "x@codeschool.dev", Password: "password123", IsSuperuser: true}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/admin/users", token: adminTok,
		body: dto.CreateUserRequest{Email: "y@codeschool.dev", Password: "password123"}})
	assert.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}
