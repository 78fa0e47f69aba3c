package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/codeschool/accounts/internal/dto"
	"github.com/codeschool/accounts/internal/middleware"
	"github.com/codeschool/accounts/internal/models"
	"github.com/codeschool/accounts/internal/services"
	"github.com/codeschool/accounts/internal/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UserHandler struct {
	accounts *services.AccountService
	export   *services.ExportService
	validate *validator.Validator
}

func NewUserHandler(accounts *services.AccountService, export *services.ExportService, v *validator.Validator) *UserHandler {
	return &UserHandler{accounts: accounts, export: export, validate: v}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	f, err := listFilter(c)
	if err != nil {
		return respondError(c, err)
	}

	res, err := h.accounts.List(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}

	out := dto.UserListResponse{Users: make([]dto.UserResponse, 0, len(res.Users)), Total: res.Total, Limit: f.Limit, Offset: f.Offset}
	for i := range res.Users {
		out.Users = append(out.Users, dto.NewUserResponse(&res.Users[i]))
	}
	return c.JSON(out)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrUserNotFound)
	}
	u, err := h.accounts.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(u))
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	nu := services.NewUser{
		Email:    req.Email,
		Name:     req.Name,
		Alias:    req.Alias,
		SchoolID: req.SchoolID,
		Password: req.Password,
		Role:     req.Role,
	}
	var flags []services.Flag
	if req.IsStaff {
		flags = append(flags, services.WithStaff(true))
	}
	if req.IsActive != nil {
		flags = append(flags, services.WithActive(*req.IsActive))
	}

	var (
		u   *models.User
		err error
	)
	if req.IsSuperuser {
		u, err = h.accounts.CreateSuperuser(c.UserContext(), nu, flags...)
	} else {
		u, err = h.accounts.CreateUser(c.UserContext(), nu, flags...)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(u))
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrUserNotFound)
	}
	var req dto.UpdateUserRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	u, err := h.accounts.UpdateUser(c.UserContext(), id, services.UserUpdate{
		Name:     req.Name,
		Alias:    req.Alias,
		SchoolID: req.SchoolID,
		Role:     req.Role,
		IsStaff:  req.IsStaff,
		IsActive: req.IsActive,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(u))
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrUserNotFound)
	}
	if err := h.accounts.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangePassword lets users change their own password. Staff may reset
// anyone's without the current password.
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	caller, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	target, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrUserNotFound)
	}

	var req dto.ChangePasswordRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	switch {
	case caller == target:
		err = h.accounts.ChangePassword(c.UserContext(), target, req.CurrentPassword, req.NewPassword)
	case middleware.IsStaff(c):
		err = h.accounts.SetPassword(c.UserContext(), target, req.NewPassword)
	default:
		err = services.ErrForbidden
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password changed"})
}

func (h *UserHandler) ChangeEmail(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrUserNotFound)
	}
	var req dto.ChangeEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := h.accounts.ChangeEmail(c.UserContext(), id, req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Email changed"})
}

func (h *UserHandler) ViewProfile(c *fiber.Ctx) error {
	caller, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	target, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrUserNotFound)
	}
	p, err := h.accounts.ViewProfile(c.UserContext(), caller, target)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewProfileResponse(p, h.accounts.Today()))
}

func (h *UserHandler) Export(c *fiber.Ctx) error {
	f, err := listFilter(c)
	if err != nil {
		return respondError(c, err)
	}
	data, err := h.export.Roster(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}

	name := fmt.Sprintf("users-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(data)
}

func listFilter(c *fiber.Ctx) (services.ListFilter, error) {
	f := services.ListFilter{
		Search: c.Query("q"),
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if raw := c.Query("role"); raw != "" {
		code, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("%w: role must be an integer code", services.ErrValidation)
		}
		role, err := models.ParseRole(code)
		if err != nil {
			return f, fmt.Errorf("%w: %v", services.ErrValidation, err)
		}
		f.Role = &role
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("%w: active must be a boolean", services.ErrValidation)
		}
		f.Active = &active
	}
	return f, nil
}
