package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codeschool/accounts/internal/models"
	"gorm.io/gorm"
)

// Settings is the ordered list of enabled backends.
type Settings struct {
	Backends []Backend
}

// NewSettings resolves backend names such as "email" and "school_id".
func NewSettings(names []string) (Settings, error) {
	var s Settings
	seen := map[string]bool{}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case BackendEmail:
			s.Backends = append(s.Backends, EmailBackend{})
		case BackendSchoolID:
			s.Backends = append(s.Backends, SchoolIDBackend{})
		default:
			return Settings{}, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
		}
	}
	if len(s.Backends) == 0 {
		return Settings{}, ErrNoBackends
	}
	return s, nil
}

func (s Settings) Names() []string {
	names := make([]string, len(s.Backends))
	for i, b := range s.Backends {
		names[i] = b.Name()
	}
	return names
}

type Authenticator struct {
	db       *gorm.DB
	settings Settings
}

func NewAuthenticator(db *gorm.DB, settings Settings) *Authenticator {
	return &Authenticator{db: db, settings: settings}
}

// Authenticate tries each backend in order. The first one that accepts the
// credentials wins and its name is returned with the user.
func (a *Authenticator) Authenticate(ctx context.Context, identifier, password string) (*models.User, string, error) {
	for _, b := range a.settings.Backends {
		user, err := b.Authenticate(ctx, a.db, identifier, password)
		if err == nil {
			return user, b.Name(), nil
		}
		if !errors.Is(err, ErrInvalidCredentials) {
			return nil, "", err
		}
	}
	return nil, "", ErrInvalidCredentials
}
