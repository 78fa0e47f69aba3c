package academic

import (
	"errors"

	"github.com/codeschool/accounts/internal/dto"
	"github.com/codeschool/accounts/internal/validator"
	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	service  *CatalogService
	validate *validator.Validator
}

func NewCatalogHandler(service *CatalogService, v *validator.Validator) *CatalogHandler {
	return &CatalogHandler{service: service, validate: v}
}

func (h *CatalogHandler) ListFaculties(c *fiber.Ctx) error {
	list, err := h.service.ListFaculties(c.UserContext())
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(fiber.Map{"faculties": list})
}

func (h *CatalogHandler) GetFaculty(c *fiber.Ctx) error {
	f, err := h.service.GetFaculty(c.UserContext(), c.Params("slug"))
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(f)
}

func (h *CatalogHandler) CreateFaculty(c *fiber.Ctx) error {
	in, ok := h.parseInput(c)
	if !ok {
		return nil
	}
	f, err := h.service.CreateFaculty(c.UserContext(), in)
	if err != nil {
		return catalogError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(f)
}

func (h *CatalogHandler) UpdateFaculty(c *fiber.Ctx) error {
	upd, ok := h.parseUpdate(c)
	if !ok {
		return nil
	}
	f, err := h.service.UpdateFaculty(c.UserContext(), c.Params("slug"), upd)
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(f)
}

func (h *CatalogHandler) DeleteFaculty(c *fiber.Ctx) error {
	if err := h.service.DeleteFaculty(c.UserContext(), c.Params("slug")); err != nil {
		return catalogError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandler) ListDisciplines(c *fiber.Ctx) error {
	list, err := h.service.ListDisciplines(c.UserContext(), c.Query("faculty"))
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(fiber.Map{"disciplines": list})
}

func (h *CatalogHandler) GetDiscipline(c *fiber.Ctx) error {
	d, err := h.service.GetDiscipline(c.UserContext(), c.Params("slug"))
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(d)
}

func (h *CatalogHandler) CreateDiscipline(c *fiber.Ctx) error {
	in, ok := h.parseInput(c)
	if !ok {
		return nil
	}
	d, err := h.service.CreateDiscipline(c.UserContext(), in)
	if err != nil {
		return catalogError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

func (h *CatalogHandler) UpdateDiscipline(c *fiber.Ctx) error {
	upd, ok := h.parseUpdate(c)
	if !ok {
		return nil
	}
	d, err := h.service.UpdateDiscipline(c.UserContext(), c.Params("slug"), upd)
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(d)
}

func (h *CatalogHandler) DeleteDiscipline(c *fiber.Ctx) error {
	if err := h.service.DeleteDiscipline(c.UserContext(), c.Params("slug")); err != nil {
		return catalogError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandler) ListCourses(c *fiber.Ctx) error {
	list, err := h.service.ListCourses(c.UserContext(), c.Query("faculty"))
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(fiber.Map{"courses": list})
}

func (h *CatalogHandler) GetCourse(c *fiber.Ctx) error {
	course, err := h.service.GetCourse(c.UserContext(), c.Params("slug"))
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(course)
}

func (h *CatalogHandler) CreateCourse(c *fiber.Ctx) error {
	in, ok := h.parseInput(c)
	if !ok {
		return nil
	}
	course, err := h.service.CreateCourse(c.UserContext(), in)
	if err != nil {
		return catalogError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

func (h *CatalogHandler) UpdateCourse(c *fiber.Ctx) error {
	upd, ok := h.parseUpdate(c)
	if !ok {
		return nil
	}
	course, err := h.service.UpdateCourse(c.UserContext(), c.Params("slug"), upd)
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(course)
}

func (h *CatalogHandler) DeleteCourse(c *fiber.Ctx) error {
	if err := h.service.DeleteCourse(c.UserContext(), c.Params("slug")); err != nil {
		return catalogError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parseInput writes the error response itself and reports false when the
// body is unusable.
func (h *CatalogHandler) parseInput(c *fiber.Ctx) (EntryInput, bool) {
	var in EntryInput
	if err := c.BodyParser(&in); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
		return in, false
	}
	if err := h.validate.Struct(&in); err != nil {
		c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: true, Message: err.Error(), Details: err})
		return in, false
	}
	return in, true
}

func (h *CatalogHandler) parseUpdate(c *fiber.Ctx) (EntryUpdate, bool) {
	var upd EntryUpdate
	if err := c.BodyParser(&upd); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
		return upd, false
	}
	if err := h.validate.Struct(&upd); err != nil {
		c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: true, Message: err.Error(), Details: err})
		return upd, false
	}
	return upd, true
}

func catalogError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "Internal server error"
	switch {
	case errors.Is(err, ErrNotFound):
		status, msg = fiber.StatusNotFound, err.Error()
	case errors.Is(err, ErrSlugTaken):
		status, msg = fiber.StatusConflict, err.Error()
	case errors.Is(err, ErrUnknownFaculty):
		status, msg = fiber.StatusUnprocessableEntity, err.Error()
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: msg})
}
