package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/orgvalidity/modules/org/services"
)

// Fixture is the JSON form of a store: org units with their lifetime and
// parent slices, plus any other entity attribute keyed by name.
type Fixture struct {
	OrganisationID uuid.UUID       `json:"organisation" yaml:"organisation"`
	Units          []FixtureUnit   `json:"units" yaml:"units"`
	Entities       []FixtureEntity `json:"entities" yaml:"entities"`
}

type FixtureUnit struct {
	ID       uuid.UUID           `json:"id" yaml:"id"`
	Validity []services.RawSlice `json:"validity" yaml:"validity"`
	Parents  []services.RawSlice `json:"parents" yaml:"parents"`
}

type FixtureEntity struct {
	ID         uuid.UUID                                  `json:"id" yaml:"id"`
	Attributes map[services.Attribute][]services.RawSlice `json:"attributes" yaml:"attributes"`
}

func LoadFixture(r io.Reader, opts ...Option) (*Store, error) {
	var fx Fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return fx.Store(opts...)
}

func LoadFixtureYAML(r io.Reader, opts ...Option) (*Store, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return fx.Store(opts...)
}

// LoadFixtureFile reads a JSON fixture, or a YAML one when the file ends in
// .yaml or .yml.
func LoadFixtureFile(path string, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadFixtureYAML(f, opts...)
	default:
		return LoadFixture(f, opts...)
	}
}

// Store builds a store holding the fixture's registrations. Slices are checked
// up front so a broken fixture fails at load rather than mid-query.
func (fx Fixture) Store(opts ...Option) (*Store, error) {
	s := New(fx.OrganisationID, opts...)
	for _, u := range fx.Units {
		if u.ID == uuid.Nil {
			return nil, fmt.Errorf("fixture unit without id")
		}
		if _, err := services.ValidityTimeline(u.Validity); err != nil {
			return nil, fmt.Errorf("unit %s validity: %w", u.ID, err)
		}
		if _, err := services.RelationTimeline(u.Parents); err != nil {
			return nil, fmt.Errorf("unit %s parents: %w", u.ID, err)
		}
		s.AddUnit(u.ID, u.Validity...)
		if len(u.Parents) > 0 {
			s.Put(u.ID, services.AttrOrgUnitParent, u.Parents...)
		}
	}
	for _, e := range fx.Entities {
		for attr, raw := range e.Attributes {
			if _, err := services.RelationTimeline(raw); err != nil {
				return nil, fmt.Errorf("entity %s %s: %w", e.ID, attr, err)
			}
			s.Put(e.ID, attr, raw...)
		}
	}
	return s, nil
}

// Snapshot dumps the store back into fixture form.
func (s *Store) Snapshot() Fixture {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fx := Fixture{OrganisationID: s.organisationID}
	for id, byAttr := range s.attrs {
		if _, ok := s.units[id]; ok {
			fx.Units = append(fx.Units, FixtureUnit{
				ID:       id,
				Validity: byAttr[services.AttrOrgUnitValidity],
				Parents:  byAttr[services.AttrOrgUnitParent],
			})
			continue
		}
		e := FixtureEntity{ID: id, Attributes: map[services.Attribute][]services.RawSlice{}}
		for attr, raw := range byAttr {
			e.Attributes[attr] = raw
		}
		fx.Entities = append(fx.Entities, e)
	}
	slices.SortFunc(fx.Units, func(a, b FixtureUnit) int { return slices.Compare(a.ID[:], b.ID[:]) })
	slices.SortFunc(fx.Entities, func(a, b FixtureEntity) int { return slices.Compare(a.ID[:], b.ID[:]) })
	return fx
}
