package services

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
)

// IsCandidateParentValid checks that unitID may be moved under candidateID as of
// asOf: the unit must not be the root, the candidate must not lie below the unit,
// and every ancestor up to the root must be active at asOf.
func (s *ValidityService) IsCandidateParentValid(ctx context.Context, rootID, unitID, candidateID uuid.UUID, asOf time.Time) error {
	if unitID == uuid.Nil {
		return invalidBody("unit is required", nil)
	}
	at := validity.At(asOf)
	window := validity.Instant(at)

	reject := func(err *ServiceError, extra logrus.Fields) error {
		fields := logrus.Fields{"candidate_parent_id": candidateID.String()}
		for k, v := range extra {
			fields[k] = v
		}
		maybeLogRejected(ctx, "org.validity.move.rejected", unitID, window, err, fields)
		return err
	}

	isRoot := unitID == rootID
	if !isRoot {
		unit, err := s.getNode(ctx, unitID, asOf)
		if err != nil {
			return err
		}
		isRoot = unit.IsRoot()
	}
	if isRoot {
		return reject(newServiceError(http.StatusUnprocessableEntity, CodeCannotMoveRootOrgUnit, "cannot move the root org unit",
			&validity.InvalidOperationError{Op: "move", Reason: "unit is the root"}), nil)
	}
	if candidateID == uuid.Nil {
		return invalidBody("candidate parent is required", nil)
	}

	visited := make(map[uuid.UUID]struct{}, 8)
	current := candidateID
	for depth := 0; ; depth++ {
		if current == unitID {
			return reject(newServiceError(http.StatusUnprocessableEntity, CodeOrgUnitMoveToChild, "cannot move an org unit below itself",
				&CycleError{UnitID: unitID, At: current, Depth: depth}), nil)
		}
		if _, seen := visited[current]; seen || depth >= s.cfg.MaxHierarchyDepth {
			return reject(newServiceError(http.StatusUnprocessableEntity, CodeOrgUnitMoveToChild, "hierarchy above the candidate parent is cyclic",
				&CycleError{UnitID: unitID, At: current, Depth: depth}), logrus.Fields{"depth": depth})
		}
		visited[current] = struct{}{}

		node, err := s.getNode(ctx, current, asOf)
		if err != nil {
			return err
		}
		tl, err := ValidityTimeline(node.Validity)
		if err != nil {
			return err
		}
		if state, ok := validity.StateAt(tl, at); !ok || state != validity.Active {
			return reject(newServiceError(http.StatusUnprocessableEntity, CodeOrgUnitInactiveAncestor, "an ancestor of the candidate parent is inactive",
				&InactiveAncestorError{AncestorID: current}), logrus.Fields{"ancestor_id": current.String()})
		}
		if current == rootID || node.IsRoot() {
			return nil
		}
		current = *node.ParentID
	}
}

func (s *ValidityService) getNode(ctx context.Context, id uuid.UUID, asOf time.Time) (*NodeSnapshot, error) {
	node, err := s.store.Get(ctx, id, asOf)
	recordStoreCall("get", err)
	if err != nil {
		return nil, storeError("get", err)
	}
	return node, nil
}
