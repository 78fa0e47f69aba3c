package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the codeschool account. Email is the login key; Alias is the
// public handle shown as the username.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string         `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Name        string         `gorm:"size:140;not null" json:"name"`
	Alias       string         `gorm:"size:20;not null;index" json:"alias"`
	SchoolID    *string        `gorm:"size:20;uniqueIndex" json:"school_id,omitempty"`
	Role        Role           `gorm:"type:smallint;not null" json:"role"`
	Password    string         `gorm:"size:128;not null" json:"-"`
	IsStaff     bool           `gorm:"not null" json:"is_staff"`
	IsSuperuser bool           `gorm:"not null" json:"is_superuser"`
	IsActive    bool           `gorm:"not null" json:"is_active"`
	DateJoined  time.Time      `gorm:"not null" json:"date_joined"`
	LastLogin   *time.Time     `json:"last_login,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// ProfileRef is in-memory state only; see PendingProfile.
	ProfileRef ProfileRef `gorm:"-" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now()
	}
	return nil
}

// IsNew reports whether the user has never been persisted.
func (u *User) IsNew() bool { return u.ID == uuid.Nil }

// Username is the alias; kept for callers that expect a username.
func (u *User) Username() string { return u.Alias }

func (u *User) FullName() string { return strings.TrimSpace(u.Name) }

func (u *User) ShortName() string { return u.Alias }

// SchoolCode returns the school id or "" when none is registered.
func (u *User) SchoolCode() string {
	if u.SchoolID == nil {
		return ""
	}
	return *u.SchoolID
}

// PendingProfile returns the transient profile of a user that has no
// identity yet. The placeholder is created on first access and then reused,
// so edits made before the first save are the ones persisted. It returns nil
// once the user has been saved.
func (u *User) PendingProfile() *Profile {
	if !u.IsNew() {
		return nil
	}
	if ref, ok := u.ProfileRef.(UnsavedProfile); ok && ref.Pending != nil {
		return ref.Pending
	}
	p := NewProfile(u)
	u.ProfileRef = UnsavedProfile{Pending: p}
	return p
}

// CachedProfile returns the persisted profile already loaded for this user
// instance, if any.
func (u *User) CachedProfile() (*Profile, bool) {
	ref, ok := u.ProfileRef.(SavedProfile)
	if !ok || ref.Record == nil {
		return nil, false
	}
	return ref.Record, true
}
