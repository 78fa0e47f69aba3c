package academic

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed is the YAML layout of a catalogue seed file:
//
//	faculties:
//	  - slug: computing
//	    name: Faculty of Computing
//	    disciplines:
//	      - {slug: algorithms, name: Algorithms}
//	    courses:
//	      - {slug: cs, name: Computer Science}
type Seed struct {
	Faculties []SeedFaculty `yaml:"faculties"`
}

type SeedFaculty struct {
	Slug        string      `yaml:"slug"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Disciplines []SeedEntry `yaml:"disciplines"`
	Courses     []SeedEntry `yaml:"courses"`
}

type SeedEntry struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, fmt.Errorf("parse catalogue seed: %w", err)
	}
	for _, f := range s.Faculties {
		if f.Slug == "" || f.Name == "" {
			return nil, fmt.Errorf("parse catalogue seed: faculty needs slug and name")
		}
	}
	return &s, nil
}

func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue seed: %w", err)
	}
	return ParseSeed(data)
}

// SeedFromFile loads the seed at path and applies it, returning the number
// of inserted rows.
func SeedFromFile(ctx context.Context, db *gorm.DB, path string) (int64, error) {
	seed, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}
	n, err := seed.Apply(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("apply catalogue seed: %w", err)
	}
	return n, nil
}

// Apply inserts the seeded entries that do not exist yet. Existing slugs are
// left untouched, so applying the same seed twice is a no-op.
func (s *Seed) Apply(ctx context.Context, db *gorm.DB) (int64, error) {
	var inserted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ignore := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).Session(&gorm.Session{})
		for _, sf := range s.Faculties {
			res := ignore.Omit(clause.Associations).Create(&Faculty{Slug: sf.Slug, Name: sf.Name, Description: sf.Description})
			if res.Error != nil {
				return res.Error
			}
			inserted += res.RowsAffected

			for _, e := range sf.Disciplines {
				res := ignore.Create(&Discipline{Slug: e.Slug, FacultySlug: sf.Slug, Name: e.Name, Description: e.Description})
				if res.Error != nil {
					return res.Error
				}
				inserted += res.RowsAffected
			}
			for _, e := range sf.Courses {
				res := ignore.Create(&Course{Slug: e.Slug, FacultySlug: sf.Slug, Name: e.Name, Description: e.Description})
				if res.Error != nil {
					return res.Error
				}
				inserted += res.RowsAffected
			}
		}
		return nil
	})
	return inserted, err
}
