package models

import "time"

// ProfileUpdate carries the profile fields submitted by a form. Nil fields
// are left unchanged; an empty phone or website clears it.
type ProfileUpdate struct {
	Visibility  *Visibility
	Phone       *string
	Gender      *Gender
	DateOfBirth *time.Time
	Website     *string
	AboutMe     *string

	// ClearDateOfBirth unsets the birth date and wins over DateOfBirth.
	ClearDateOfBirth bool
}

func (u ProfileUpdate) Apply(p *Profile) {
	if u.Visibility != nil {
		p.Visibility = *u.Visibility
	}
	if u.Phone != nil {
		p.Phone = emptyToNil(*u.Phone)
	}
	if u.Gender != nil {
		g := *u.Gender
		p.Gender = &g
	}
	switch {
	case u.ClearDateOfBirth:
		p.DateOfBirth = nil
	case u.DateOfBirth != nil:
		d := *u.DateOfBirth
		p.DateOfBirth = &d
	}
	if u.Website != nil {
		p.Website = emptyToNil(*u.Website)
	}
	if u.AboutMe != nil {
		p.AboutMe = *u.AboutMe
	}
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
