package handlers

import (
	"fmt"

	"github.com/codeschool/accounts/internal/dto"
	"github.com/codeschool/accounts/internal/middleware"
	"github.com/codeschool/accounts/internal/services"
	"github.com/codeschool/accounts/internal/validator"
	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	accounts *services.AccountService
	validate *validator.Validator
}

func NewProfileHandler(accounts *services.AccountService, v *validator.Validator) *ProfileHandler {
	return &ProfileHandler{accounts: accounts, validate: v}
}

func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	u, err := h.accounts.Get(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	p, err := h.accounts.Profile(c.UserContext(), u)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewProfileResponse(p, h.accounts.Today()))
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ProfileRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	upd, err := req.ToUpdate()
	if err != nil {
		return respondError(c, fmt.Errorf("%w: %v", services.ErrValidation, err))
	}

	p, err := h.accounts.UpdateProfile(c.UserContext(), userID, upd)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewProfileResponse(p, h.accounts.Today()))
}

func (h *ProfileHandler) AddEmail(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ExtraEmailRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	extra, err := h.accounts.AddExtraEmail(c.UserContext(), userID, req.Email)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewExtraEmailResponse(extra))
}

func (h *ProfileHandler) ListEmails(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	list, err := h.accounts.ExtraEmails(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.ExtraEmailResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.NewExtraEmailResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"emails": out})
}
