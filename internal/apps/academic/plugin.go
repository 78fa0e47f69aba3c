package academic

import (
	"github.com/codeschool/accounts/internal/config"
	"github.com/codeschool/accounts/internal/validator"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Plugin serves the academic catalogue: faculties, disciplines and courses.
type Plugin struct {
	validate *validator.Validator
	handler  *CatalogHandler
}

func New(v *validator.Validator) *Plugin {
	return &Plugin{validate: v}
}

func (p *Plugin) ID() string { return "academic" }

func (p *Plugin) Models() []interface{} {
	return []interface{}{
		&Faculty{},
		&Discipline{},
		&Course{},
	}
}

func (p *Plugin) handlerFor(db *gorm.DB) *CatalogHandler {
	if p.handler == nil {
		p.handler = NewCatalogHandler(NewCatalogService(db), p.validate)
	}
	return p.handler
}

func (p *Plugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	h := p.handlerFor(db)
	r := router.Group("/academic")
	r.Get("/faculties", h.ListFaculties)
	r.Get("/faculties/:slug", h.GetFaculty)
	r.Get("/disciplines", h.ListDisciplines)
	r.Get("/disciplines/:slug", h.GetDiscipline)
	r.Get("/courses", h.ListCourses)
	r.Get("/courses/:slug", h.GetCourse)
}

func (p *Plugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	h := p.handlerFor(db)
	r := router.Group("/academic")
	r.Post("/faculties", h.CreateFaculty)
	r.Put("/faculties/:slug", h.UpdateFaculty)
	r.Delete("/faculties/:slug", h.DeleteFaculty)
	r.Post("/disciplines", h.CreateDiscipline)
	r.Put("/disciplines/:slug", h.UpdateDiscipline)
	r.Delete("/disciplines/:slug", h.DeleteDiscipline)
	r.Post("/courses", h.CreateCourse)
	r.Put("/courses/:slug", h.UpdateCourse)
	r.Delete("/courses/:slug", h.DeleteCourse)
}
