package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
)

var ErrNotFound = errors.New("not found")

// Attribute names a bitemporal attribute of a stored entity.
type Attribute string

const (
	AttrOrgUnitValidity  Attribute = "org_unit_validity"
	AttrEmployeeValidity Attribute = "employee_validity"
	AttrOrgUnitParent    Attribute = "org_unit_parent"
	AttrFunctionValidity Attribute = "function_validity"
)

// Store is the registry holding validity registrations. Implementations return
// raw, unnormalized slices; the service projects them.
type Store interface {
	GetEffects(ctx context.Context, entityID uuid.UUID, attr Attribute, window validity.Interval) ([]RawSlice, error)
	Get(ctx context.Context, entityID uuid.UUID, asOf time.Time) (*NodeSnapshot, error)
	Children(ctx context.Context, unitID uuid.UUID, asOf time.Time) ([]uuid.UUID, error)
	Update(ctx context.Context, entityID uuid.UUID, payload UpdatePayload) error
}

type RawSlice struct {
	From       validity.Timestamp `json:"from" yaml:"from"`
	To         validity.Timestamp `json:"to" yaml:"to"`
	State      string             `json:"state" yaml:"state"`
	Target     *uuid.UUID         `json:"target,omitempty" yaml:"target,omitempty"`
	RecordedAt time.Time          `json:"recorded_at" yaml:"recorded_at,omitempty"`
}

func (r RawSlice) interval() (validity.Interval, error) {
	return validity.NewInterval(r.From, r.To)
}

// NodeSnapshot is an org unit as of one instant.
type NodeSnapshot struct {
	ID             uuid.UUID  `json:"id"`
	OrganisationID uuid.UUID  `json:"organisation_id"`
	ParentID       *uuid.UUID `json:"parent_id,omitempty"`
	Validity       []RawSlice `json:"validity"`
}

// IsRoot reports whether the unit hangs directly off its organisation.
func (n *NodeSnapshot) IsRoot() bool {
	return n.ParentID == nil || *n.ParentID == n.OrganisationID
}

// RelationState is the state of a relation attribute: its validity and the
// org unit it points at.
type RelationState struct {
	Validity validity.Validity `json:"validity"`
	Target   uuid.UUID         `json:"target"`
}

func (s RelationState) IsActive() bool { return s.Validity == validity.Active }

type Fragment struct {
	Interval validity.Interval `json:"interval"`
	State    string            `json:"state"`
	Target   *uuid.UUID        `json:"target,omitempty"`
}

type UpdatePayload struct {
	Attribute Attribute  `json:"attribute"`
	Note      string     `json:"note"`
	Fragments []Fragment `json:"fragments"`
}

func ValidityTimeline(raw []RawSlice) (validity.Timeline[validity.Validity], error) {
	tl := make(validity.Timeline[validity.Validity], 0, len(raw))
	for i, r := range raw {
		iv, err := r.interval()
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		state, ok := validity.ParseValidity(r.State)
		if !ok {
			return nil, fmt.Errorf("slice %d: unknown validity %q", i, r.State)
		}
		tl = append(tl, validity.Registration[validity.Validity]{Interval: iv, State: state, RecordedAt: r.RecordedAt})
	}
	return tl, nil
}

func RelationTimeline(raw []RawSlice) (validity.Timeline[RelationState], error) {
	tl := make(validity.Timeline[RelationState], 0, len(raw))
	for i, r := range raw {
		iv, err := r.interval()
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		state, ok := validity.ParseValidity(r.State)
		if !ok {
			return nil, fmt.Errorf("slice %d: unknown validity %q", i, r.State)
		}
		rs := RelationState{Validity: state}
		if r.Target != nil {
			rs.Target = *r.Target
		}
		tl = append(tl, validity.Registration[RelationState]{Interval: iv, State: rs, RecordedAt: r.RecordedAt})
	}
	return tl, nil
}

func relationFragments(regs validity.Timeline[RelationState]) []Fragment {
	out := make([]Fragment, 0, len(regs))
	for _, r := range regs {
		target := r.State.Target
		f := Fragment{Interval: r.Interval, State: string(r.State.Validity)}
		if target != uuid.Nil {
			f.Target = &target
		}
		out = append(out, f)
	}
	return out
}
