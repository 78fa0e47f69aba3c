package dto

import (
	"fmt"
	"time"

	"github.com/codeschool/accounts/internal/models"
	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

type ProfileRequest struct {
	Visibility  *models.Visibility `json:"visibility,omitempty" validate:"omitempty,visibility"`
	Phone       *string            `json:"phone,omitempty" validate:"omitempty,max=20"`
	Gender      *models.Gender     `json:"gender,omitempty" validate:"omitempty,gender"`
	DateOfBirth *string            `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Website     *string            `json:"website,omitempty" validate:"omitempty,url,max=200"`
	AboutMe     *string            `json:"about_me,omitempty"`
}

func (r *ProfileRequest) ToUpdate() (models.ProfileUpdate, error) {
	if r == nil {
		return models.ProfileUpdate{}, nil
	}
	u := models.ProfileUpdate{
		Visibility: r.Visibility,
		Phone:      r.Phone,
		Gender:     r.Gender,
		Website:    r.Website,
		AboutMe:    r.AboutMe,
	}
	if r.DateOfBirth != nil {
		if *r.DateOfBirth == "" {
			u.ClearDateOfBirth = true
			return u, nil
		}
		d, err := time.Parse(DateLayout, *r.DateOfBirth)
		if err != nil {
			return u, fmt.Errorf("date_of_birth: %w", err)
		}
		u.DateOfBirth = &d
	}
	return u, nil
}

type ProfileResponse struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	Display         string            `json:"display"`
	Username        string            `json:"username"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Visibility      models.Visibility `json:"visibility"`
	VisibilityLabel string            `json:"visibility_label"`
	Phone           *string           `json:"phone,omitempty"`
	Gender          *models.Gender    `json:"gender,omitempty"`
	DateOfBirth     *string           `json:"date_of_birth,omitempty"`
	Age             *int              `json:"age,omitempty"`
	Website         *string           `json:"website,omitempty"`
	AboutMe         string            `json:"about_me"`
}

func NewProfileResponse(p *models.Profile, today time.Time) ProfileResponse {
	resp := ProfileResponse{
		ID:              p.ID,
		UserID:          p.UserID,
		Display:         p.String(),
		Username:        p.Username(),
		Name:            p.Name(),
		Email:           p.Email(),
		Visibility:      p.Visibility,
		VisibilityLabel: p.Visibility.String(),
		Phone:           p.Phone,
		Gender:          p.Gender,
		Age:             p.Age(today),
		Website:         p.Website,
		AboutMe:         p.AboutMe,
	}
	if p.DateOfBirth != nil {
		s := p.DateOfBirth.Format(DateLayout)
		resp.DateOfBirth = &s
	}
	return resp
}

type ExtraEmailRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type ExtraEmailResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func NewExtraEmailResponse(e *models.ExtraEmail) ExtraEmailResponse {
	return ExtraEmailResponse{ID: e.ID, Email: e.Email, CreatedAt: e.CreatedAt}
}
