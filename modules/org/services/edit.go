package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
	"github.com/iota-uz/orgvalidity/pkg/constants"
)

// EditRequest moves the validity of one relation. Original is the interval the
// caller last read and acts as the edit precondition.
type EditRequest struct {
	RoleType   RoleType          `json:"type" validate:"required"`
	ID         uuid.UUID         `json:"uuid" validate:"required"`
	Original   validity.Interval `json:"original"`
	Validity   validity.Interval `json:"validity"`
	OrgUnitID  uuid.UUID         `json:"org_unit,omitempty"`
	EmployeeID uuid.UUID         `json:"person,omitempty"`
	Target     *uuid.UUID        `json:"target,omitempty"`
}

type TerminateRequest struct {
	RoleType RoleType           `json:"type" validate:"required"`
	ID       uuid.UUID          `json:"uuid" validate:"required"`
	Original validity.Interval  `json:"original"`
	At       validity.Timestamp `json:"at"`
}

type EditResult struct {
	ID      uuid.UUID     `json:"uuid"`
	Payload UpdatePayload `json:"payload"`
}

// Edit splices req.Validity into the relation's timeline and submits the result
// as one update. Every check runs before the store is written.
func (s *ValidityService) Edit(ctx context.Context, req EditRequest) (*EditResult, error) {
	if err := constants.Validate.Struct(req); err != nil {
		return nil, invalidBody("type and uuid are required", err)
	}
	h, err := HandlerFor(req.RoleType, s.cfg)
	if err != nil {
		return nil, err
	}

	current, err := s.currentRegistration(ctx, req.ID, h.Attribute, req.Original)
	if err != nil {
		return nil, s.rejectEdit(ctx, req.ID, req.Validity, err)
	}

	next := current.State
	if req.Target != nil {
		next.Target = *req.Target
	}
	res, err := validity.Splice(current, validity.Precondition{Claimed: req.Original}, req.Validity, next)
	if err != nil {
		return nil, s.rejectEdit(ctx, req.ID, req.Validity, err)
	}

	unitID := req.OrgUnitID
	if unitID == uuid.Nil {
		unitID = next.Target
	}
	if h.ValidateOrgUnit && unitID == uuid.Nil {
		return nil, invalidBody("org_unit is required", nil)
	}
	if h.ValidateEmployee && req.EmployeeID == uuid.Nil {
		return nil, invalidBody("person is required", nil)
	}
	if !h.ValidateOrgUnit {
		unitID = uuid.Nil
	}
	employeeID := req.EmployeeID
	if !h.ValidateEmployee {
		employeeID = uuid.Nil
	}
	if err := s.ValidateRelationRange(ctx, unitID, employeeID, req.Validity); err != nil {
		return nil, err
	}

	payload := UpdatePayload{Attribute: h.Attribute, Note: h.EditNote, Fragments: relationFragments(res.Fragments())}
	if err := s.update(ctx, req.ID, payload); err != nil {
		return nil, err
	}
	recordSplice("edit", res)
	logWithFields(ctx, logrus.InfoLevel, "org.validity.edit.submitted", logrus.Fields{
		"entity_id": req.ID.String(),
		"role_type": string(req.RoleType),
		"fragments": len(payload.Fragments),
	})
	return &EditResult{ID: req.ID, Payload: payload}, nil
}

// Terminate ends the relation at req.At, keeping its history before that date.
func (s *ValidityService) Terminate(ctx context.Context, req TerminateRequest) (*EditResult, error) {
	if err := constants.Validate.Struct(req); err != nil {
		return nil, invalidBody("type and uuid are required", err)
	}
	h, err := HandlerFor(req.RoleType, s.cfg)
	if err != nil {
		return nil, err
	}

	window := validity.Instant(req.At)
	current, err := s.currentRegistration(ctx, req.ID, h.Attribute, req.Original)
	if err != nil {
		return nil, s.rejectEdit(ctx, req.ID, window, err)
	}
	res, err := validity.Terminate(current, validity.Precondition{Claimed: req.Original}, req.At,
		RelationState{Validity: validity.Inactive, Target: current.State.Target})
	if err != nil {
		return nil, s.rejectEdit(ctx, req.ID, window, err)
	}

	payload := UpdatePayload{Attribute: h.Attribute, Note: h.TerminateNote, Fragments: relationFragments(res.Fragments())}
	if err := s.update(ctx, req.ID, payload); err != nil {
		return nil, err
	}
	recordSplice("terminate", res)
	logWithFields(ctx, logrus.InfoLevel, "org.validity.terminate.submitted", logrus.Fields{
		"entity_id": req.ID.String(),
		"role_type": string(req.RoleType),
		"at":        req.At.String(),
	})
	return &EditResult{ID: req.ID, Payload: payload}, nil
}

// currentRegistration finds the active effect of the relation that contains the
// start of the interval the caller claims to have read.
func (s *ValidityService) currentRegistration(ctx context.Context, id uuid.UUID, attr Attribute, claimed validity.Interval) (validity.Registration[RelationState], error) {
	if err := claimed.Validate(); err != nil {
		return validity.Registration[RelationState]{}, err
	}
	tl, err := s.relationTimeline(ctx, id, attr)
	if err != nil {
		return validity.Registration[RelationState]{}, err
	}
	for _, e := range validity.Project(tl, validity.Everything()) {
		if e.State.IsActive() && e.Interval.ContainsPoint(claimed.Start) {
			return validity.Registration[RelationState]{Interval: e.Interval, State: e.State}, nil
		}
	}
	return validity.Registration[RelationState]{}, newServiceError(http.StatusConflict, CodeStaleEdit,
		fmt.Sprintf("no active registration of %s at %s", id, claimed.Start), &validity.StaleEditError{Claimed: claimed})
}

func (s *ValidityService) rejectEdit(ctx context.Context, id uuid.UUID, iv validity.Interval, err error) error {
	mapped := mapValidityError(err)
	maybeLogRejected(ctx, "org.validity.edit.rejected", id, iv, mapped, nil)
	return mapped
}

func (s *ValidityService) update(ctx context.Context, id uuid.UUID, payload UpdatePayload) error {
	err := s.store.Update(ctx, id, payload)
	recordStoreCall("update", err)
	if err != nil {
		return storeError("update", err)
	}
	return nil
}
