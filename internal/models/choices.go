package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrUnknownRole       = errors.New("unknown role")
	ErrUnknownVisibility = errors.New("unknown visibility")
	ErrUnknownGender     = errors.New("unknown gender")
)

// Role is the user's main role on the platform. The integer codes are the
// stored representation and must stay stable.
type Role int

const (
	RoleStudent Role = iota
	RoleTeacher
	RoleStaff
	RoleAdmin
)

var roleLabels = [...]string{"Student", "Teacher", "School staff", "Administrator"}

// Roles lists every role in code order.
func Roles() []Role {
	return []Role{RoleStudent, RoleTeacher, RoleStaff, RoleAdmin}
}

func ParseRole(code int64) (Role, error) {
	r := Role(code)
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRole, code)
	}
	return r, nil
}

func (r Role) Valid() bool { return r >= RoleStudent && r <= RoleAdmin }

func (r Role) String() string {
	if !r.Valid() {
		return "Role(" + strconv.Itoa(int(r)) + ")"
	}
	return roleLabels[r]
}

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return int64(r), nil
}

func (r *Role) Scan(src any) error {
	code, err := scanCode(src)
	if err != nil {
		return fmt.Errorf("scan role: %w", err)
	}
	parsed, err := ParseRole(code)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return json.Marshal(int(r))
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var code int64
	if err := json.Unmarshal(b, &code); err != nil {
		return fmt.Errorf("role must be an integer code: %w", err)
	}
	parsed, err := ParseRole(code)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Visibility controls who may see a profile.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityFriends
	VisibilityHidden
)

var visibilityLabels = [...]string{"Any Codeschool user", "Only friends", "Private"}

func ParseVisibility(code int64) (Visibility, error) {
	v := Visibility(code)
	if !v.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownVisibility, code)
	}
	return v, nil
}

func (v Visibility) Valid() bool { return v >= VisibilityPublic && v <= VisibilityHidden }

func (v Visibility) String() string {
	if !v.Valid() {
		return "Visibility(" + strconv.Itoa(int(v)) + ")"
	}
	return visibilityLabels[v]
}

func (v Visibility) Value() (driver.Value, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVisibility, int(v))
	}
	return int64(v), nil
}

func (v *Visibility) Scan(src any) error {
	code, err := scanCode(src)
	if err != nil {
		return fmt.Errorf("scan visibility: %w", err)
	}
	parsed, err := ParseVisibility(code)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Visibility) MarshalJSON() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVisibility, int(v))
	}
	return json.Marshal(int(v))
}

func (v *Visibility) UnmarshalJSON(b []byte) error {
	var code int64
	if err := json.Unmarshal(b, &code); err != nil {
		return fmt.Errorf("visibility must be an integer code: %w", err)
	}
	parsed, err := ParseVisibility(code)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Gender is optional profile data; profiles store it as a nullable code.
type Gender int

const (
	GenderMale Gender = iota
	GenderFemale
	GenderOther
)

var genderLabels = [...]string{"Male", "Female", "Other"}

func ParseGender(code int64) (Gender, error) {
	g := Gender(code)
	if !g.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownGender, code)
	}
	return g, nil
}

func (g Gender) Valid() bool { return g >= GenderMale && g <= GenderOther }

func (g Gender) String() string {
	if !g.Valid() {
		return "Gender(" + strconv.Itoa(int(g)) + ")"
	}
	return genderLabels[g]
}

func (g Gender) Value() (driver.Value, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGender, int(g))
	}
	return int64(g), nil
}

func (g *Gender) Scan(src any) error {
	code, err := scanCode(src)
	if err != nil {
		return fmt.Errorf("scan gender: %w", err)
	}
	parsed, err := ParseGender(code)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

func (g Gender) MarshalJSON() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGender, int(g))
	}
	return json.Marshal(int(g))
}

func (g *Gender) UnmarshalJSON(b []byte) error {
	var code int64
	if err := json.Unmarshal(b, &code); err != nil {
		return fmt.Errorf("gender must be an integer code: %w", err)
	}
	parsed, err := ParseGender(code)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// scanCode normalizes the integer representations drivers hand back.
func scanCode(src any) (int64, error) {
	switch v := src.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, errors.New("unexpected NULL")
	default:
		return 0, fmt.Errorf("unsupported type %T", src)
	}
}
