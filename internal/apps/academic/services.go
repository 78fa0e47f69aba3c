package academic

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound       = errors.New("catalogue entry not found")
	ErrSlugTaken      = errors.New("slug already in use")
	ErrUnknownFaculty = errors.New("unknown faculty")
)

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// --- Faculties ---

func (s *CatalogService) ListFaculties(ctx context.Context) ([]Faculty, error) {
	var list []Faculty
	err := s.db.WithContext(ctx).Order("name ASC").Find(&list).Error
	return list, err
}

// GetFaculty returns the faculty with its disciplines and courses.
func (s *CatalogService) GetFaculty(ctx context.Context, slug string) (*Faculty, error) {
	var f Faculty
	err := s.db.WithContext(ctx).
		Preload("Disciplines", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Preload("Courses", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		First(&f, "slug = ?", slug).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (s *CatalogService) CreateFaculty(ctx context.Context, in EntryInput) (*Faculty, error) {
	f := &Faculty{Slug: in.Slug, Name: in.Name, Description: in.Description}
	if err := s.create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *CatalogService) UpdateFaculty(ctx context.Context, slug string, upd EntryUpdate) (*Faculty, error) {
	var f Faculty
	if err := s.update(ctx, &f, slug, upd); err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFaculty removes the faculty together with its disciplines and
// courses.
func (s *CatalogService) DeleteFaculty(ctx context.Context, slug string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("faculty_slug = ?", slug).Delete(&Discipline{}).Error; err != nil {
			return err
		}
		if err := tx.Where("faculty_slug = ?", slug).Delete(&Course{}).Error; err != nil {
			return err
		}
		res := tx.Where("slug = ?", slug).Delete(&Faculty{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Disciplines ---

func (s *CatalogService) ListDisciplines(ctx context.Context, faculty string) ([]Discipline, error) {
	var list []Discipline
	q := s.db.WithContext(ctx).Order("name ASC")
	if faculty != "" {
		q = q.Where("faculty_slug = ?", faculty)
	}
	err := q.Find(&list).Error
	return list, err
}

func (s *CatalogService) GetDiscipline(ctx context.Context, slug string) (*Discipline, error) {
	var d Discipline
	if err := s.db.WithContext(ctx).First(&d, "slug = ?", slug).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *CatalogService) CreateDiscipline(ctx context.Context, in EntryInput) (*Discipline, error) {
	if err := s.requireFaculty(ctx, in.Faculty); err != nil {
		return nil, err
	}
	d := &Discipline{Slug: in.Slug, FacultySlug: in.Faculty, Name: in.Name, Description: in.Description}
	if err := s.create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *CatalogService) UpdateDiscipline(ctx context.Context, slug string, upd EntryUpdate) (*Discipline, error) {
	var d Discipline
	if err := s.update(ctx, &d, slug, upd); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *CatalogService) DeleteDiscipline(ctx context.Context, slug string) error {
	return s.delete(ctx, &Discipline{}, slug)
}

// --- Courses ---

func (s *CatalogService) ListCourses(ctx context.Context, faculty string) ([]Course, error) {
	var list []Course
	q := s.db.WithContext(ctx).Order("name ASC")
	if faculty != "" {
		q = q.Where("faculty_slug = ?", faculty)
	}
	err := q.Find(&list).Error
	return list, err
}

func (s *CatalogService) GetCourse(ctx context.Context, slug string) (*Course, error) {
	var c Course
	if err := s.db.WithContext(ctx).First(&c, "slug = ?", slug).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *CatalogService) CreateCourse(ctx context.Context, in EntryInput) (*Course, error) {
	if err := s.requireFaculty(ctx, in.Faculty); err != nil {
		return nil, err
	}
	c := &Course{Slug: in.Slug, FacultySlug: in.Faculty, Name: in.Name, Description: in.Description}
	if err := s.create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCourse(ctx context.Context, slug string, upd EntryUpdate) (*Course, error) {
	var c Course
	if err := s.update(ctx, &c, slug, upd); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CatalogService) DeleteCourse(ctx context.Context, slug string) error {
	return s.delete(ctx, &Course{}, slug)
}

// --- helpers ---

func (s *CatalogService) requireFaculty(ctx context.Context, slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: faculty is required", ErrUnknownFaculty)
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&Faculty{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownFaculty, slug)
	}
	return nil
}

func (s *CatalogService) create(ctx context.Context, value interface{}) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(value).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlugTaken
	}
	return err
}

func (s *CatalogService) update(ctx context.Context, dest interface{}, slug string, upd EntryUpdate) error {
	db := s.db.WithContext(ctx)
	if err := db.First(dest, "slug = ?", slug).Error; err != nil {
		return notFound(err)
	}

	changes := map[string]interface{}{}
	if upd.Name != nil {
		changes["name"] = *upd.Name
	}
	if upd.Description != nil {
		changes["description"] = *upd.Description
	}
	if len(changes) == 0 {
		return nil
	}
	return db.Model(dest).Omit(clause.Associations).Updates(changes).Error
}

func (s *CatalogService) delete(ctx context.Context, model interface{}, slug string) error {
	res := s.db.WithContext(ctx).Where("slug = ?", slug).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
