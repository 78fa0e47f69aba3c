package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the social information attached one-to-one to a User.
type Profile struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Visibility  Visibility `gorm:"type:smallint;not null" json:"visibility"`
	Phone       *string    `gorm:"size:20" json:"phone,omitempty"`
	Gender      *Gender    `gorm:"type:smallint" json:"gender,omitempty"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	Website     *string    `gorm:"size:200" json:"website,omitempty"`
	AboutMe     string     `gorm:"type:text;not null" json:"about_me"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewProfile returns an unsaved profile bound to u with default settings.
func NewProfile(u *User) *Profile {
	p := &Profile{User: u, Visibility: VisibilityFriends}
	if u != nil {
		p.UserID = u.ID
	}
	return p
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Profile) Username() string {
	if p.User == nil {
		return ""
	}
	return p.User.Username()
}

func (p *Profile) Name() string {
	if p.User == nil {
		return ""
	}
	return p.User.Name
}

func (p *Profile) Email() string {
	if p.User == nil {
		return ""
	}
	return p.User.Email
}

// Age returns the age in whole years on the given day, or nil when the
// birth date is unknown.
func (p *Profile) Age(today time.Time) *int {
	if p.DateOfBirth == nil {
		return nil
	}
	age := AgeOn(*p.DateOfBirth, today)
	return &age
}

// AgeOn counts completed years between birth and today, comparing calendar
// (month, day) pairs so a 29 February birthday completes on 1 March in
// common years.
func AgeOn(birth, today time.Time) int {
	years := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		years--
	}
	return years
}

func (p *Profile) String() string {
	if p.User == nil {
		return "Unbound profile"
	}
	name := p.User.FullName()
	if name == "" {
		name = p.User.Username()
	}
	return fmt.Sprintf("%s's profile", name)
}
