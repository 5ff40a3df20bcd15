// Package memory is an in-process services.Store used by tests and by the CLI
// when it runs against a fixture file instead of Postgres.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
	"github.com/iota-uz/orgvalidity/modules/org/services"
)

var _ services.Store = (*Store)(nil)

type Option func(*Store)

// WithClock sets the source of RecordedAt stamps for updates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// RecordedUpdate is one accepted Update call.
type RecordedUpdate struct {
	EntityID uuid.UUID              `json:"entity_id"`
	Payload  services.UpdatePayload `json:"payload"`
}

type Store struct {
	mu             sync.RWMutex
	now            func() time.Time
	lastRecorded   time.Time
	organisationID uuid.UUID
	units          map[uuid.UUID]struct{}
	attrs          map[uuid.UUID]map[services.Attribute][]services.RawSlice
	updates        []RecordedUpdate
}

func New(organisationID uuid.UUID, opts ...Option) *Store {
	s := &Store{
		now:            time.Now,
		organisationID: organisationID,
		units:          map[uuid.UUID]struct{}{},
		attrs:          map[uuid.UUID]map[services.Attribute][]services.RawSlice{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) OrganisationID() uuid.UUID { return s.organisationID }

// AddUnit registers an org unit with its validity slices.
func (s *Store) AddUnit(id uuid.UUID, lifetime ...services.RawSlice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[id] = struct{}{}
	s.putLocked(id, services.AttrOrgUnitValidity, lifetime)
}

// Put appends raw slices to an attribute of any entity.
func (s *Store) Put(id uuid.UUID, attr services.Attribute, raw ...services.RawSlice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(id, attr, raw)
}

func (s *Store) putLocked(id uuid.UUID, attr services.Attribute, raw []services.RawSlice) {
	byAttr, ok := s.attrs[id]
	if !ok {
		byAttr = map[services.Attribute][]services.RawSlice{}
		s.attrs[id] = byAttr
	}
	byAttr[attr] = append(byAttr[attr], raw...)
	for _, r := range raw {
		if r.RecordedAt.After(s.lastRecorded) {
			s.lastRecorded = r.RecordedAt
		}
	}
}

// SetParent registers parentID as the parent of id over [from, to).
func (s *Store) SetParent(id, parentID uuid.UUID, from, to validity.Timestamp) {
	target := parentID
	s.Put(id, services.AttrOrgUnitParent, services.RawSlice{From: from, To: to, State: string(validity.Active), Target: &target})
}

func (s *Store) GetEffects(ctx context.Context, entityID uuid.UUID, attr services.Attribute, window validity.Interval) ([]services.RawSlice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.attrs[entityID][attr]
	if !ok {
		return nil, fmt.Errorf("%s of %s: %w", attr, entityID, services.ErrNotFound)
	}
	out := make([]services.RawSlice, 0, len(raw))
	for _, r := range raw {
		if overlaps(r, window) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, entityID uuid.UUID, asOf time.Time) (*services.NodeSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.units[entityID]; !ok {
		return nil, fmt.Errorf("org unit %s: %w", entityID, services.ErrNotFound)
	}
	node := &services.NodeSnapshot{
		ID:             entityID,
		OrganisationID: s.organisationID,
		Validity:       slices.Clone(s.attrs[entityID][services.AttrOrgUnitValidity]),
	}
	if parent, ok := s.parentAtLocked(entityID, asOf); ok {
		node.ParentID = &parent
	}
	return node, nil
}

func (s *Store) Children(ctx context.Context, unitID uuid.UUID, asOf time.Time) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.units[unitID]; !ok {
		return nil, fmt.Errorf("org unit %s: %w", unitID, services.ErrNotFound)
	}
	var out []uuid.UUID
	for id := range s.units {
		if parent, ok := s.parentAtLocked(id, asOf); ok && parent == unitID && id != unitID {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	return out, nil
}

// Update appends the payload's fragments as new registrations, stamped later
// than anything recorded before, loaded slices included.
func (s *Store) Update(ctx context.Context, entityID uuid.UUID, payload services.UpdatePayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attrs[entityID][payload.Attribute]; !ok {
		return fmt.Errorf("%s of %s: %w", payload.Attribute, entityID, services.ErrNotFound)
	}
	recorded := s.now().UTC()
	if !recorded.After(s.lastRecorded) {
		recorded = s.lastRecorded.Add(time.Nanosecond)
	}
	s.lastRecorded = recorded

	for _, f := range payload.Fragments {
		s.attrs[entityID][payload.Attribute] = append(s.attrs[entityID][payload.Attribute], services.RawSlice{
			From:       f.Interval.Start,
			To:         f.Interval.End,
			State:      f.State,
			Target:     f.Target,
			RecordedAt: recorded,
		})
	}
	s.updates = append(s.updates, RecordedUpdate{EntityID: entityID, Payload: payload})
	return nil
}

// Updates returns the accepted updates in submission order.
func (s *Store) Updates() []RecordedUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.updates)
}

func (s *Store) parentAtLocked(id uuid.UUID, asOf time.Time) (uuid.UUID, bool) {
	tl, err := services.RelationTimeline(s.attrs[id][services.AttrOrgUnitParent])
	if err != nil {
		return uuid.Nil, false
	}
	state, ok := validity.StateAt(tl, validity.At(asOf))
	if !ok || !state.IsActive() {
		return uuid.Nil, false
	}
	return state.Target, true
}

func overlaps(r services.RawSlice, window validity.Interval) bool {
	if window.IsInstant() {
		return !window.Start.Before(r.From) && window.Start.Before(r.To)
	}
	return r.From.Before(window.End) && window.Start.Before(r.To)
}
