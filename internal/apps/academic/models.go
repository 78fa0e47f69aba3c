package academic

import "time"

// Faculty groups disciplines and courses. Slugs are the primary keys.
type Faculty struct {
	Slug        string       `gorm:"primaryKey;size:50" json:"slug"`
	Name        string       `gorm:"size:100;not null" json:"name"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Disciplines []Discipline `gorm:"foreignKey:FacultySlug;references:Slug;constraint:OnDelete:CASCADE" json:"disciplines,omitempty"`
	Courses     []Course     `gorm:"foreignKey:FacultySlug;references:Slug;constraint:OnDelete:CASCADE" json:"courses,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Discipline is an academic discipline offered by a faculty.
type Discipline struct {
	Slug        string    `gorm:"primaryKey;size:50" json:"slug"`
	FacultySlug string    `gorm:"size:50;not null;index" json:"faculty"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Course is a degree course run by a faculty.
type Course struct {
	Slug        string    `gorm:"primaryKey;size:50" json:"slug"`
	FacultySlug string    `gorm:"size:50;not null;index" json:"faculty"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EntryInput is the body accepted when creating or editing any catalogue
// entry. Faculty is ignored for faculties.
type EntryInput struct {
	Slug        string `json:"slug" validate:"required,slug,max=50"`
	Faculty     string `json:"faculty" validate:"omitempty,slug,max=50"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type EntryUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Description *string `json:"description,omitempty"`
}
