package models

import "github.com/google/uuid"

// ProfileRef records where a user's profile lives. It is one of
// UnsavedProfile or SavedProfile; a nil ProfileRef means nothing has been
// resolved for this instance yet.
type ProfileRef interface {
	profileRef()
}

// UnsavedProfile holds the profile of a user that has not been persisted.
// Pending is written in the same transaction as its user.
type UnsavedProfile struct {
	Pending *Profile
}

// SavedProfile points at a persisted profile. Record is filled once the row
// has been loaded for this user instance.
type SavedProfile struct {
	ID     uuid.UUID
	Record *Profile
}

func (UnsavedProfile) profileRef() {}
func (SavedProfile) profileRef()   {}
