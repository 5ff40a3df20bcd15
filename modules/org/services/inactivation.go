package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
)

// IsInactivationDateValid checks that the org unit may be inactivated from end:
// end must fall after the unit's active start and no child unit may stay active
// beyond it.
func (s *ValidityService) IsInactivationDateValid(ctx context.Context, unitID uuid.UUID, end validity.Timestamp) error {
	window := validity.Instant(end)
	reject := func(msg string, extra logrus.Fields) error {
		svcErr := newServiceError(http.StatusUnprocessableEntity, CodeInvalidInactivationDate, msg, nil)
		maybeLogRejected(ctx, "org.validity.inactivation.rejected", unitID, window, svcErr, extra)
		return svcErr
	}

	if !end.IsFinite() {
		return reject("inactivation date must be a finite date", nil)
	}

	tl, err := s.validityTimeline(ctx, unitID, AttrOrgUnitValidity, validity.Everything())
	if err != nil {
		return err
	}
	start, ok := validity.EndpointDate(tl, validity.IsActive, false)
	if !ok {
		return reject("org unit has no active period", nil)
	}
	if !end.After(start) {
		return reject(fmt.Sprintf("inactivation date must be after %s", start), nil)
	}

	children, err := s.store.Children(ctx, unitID, end.Time())
	recordStoreCall("children", err)
	if err != nil {
		return storeError("children", err)
	}
	for _, childID := range children {
		childTL, err := s.validityTimeline(ctx, childID, AttrOrgUnitValidity, validity.Everything())
		if err != nil {
			return err
		}
		childEnd, ok := validity.EndpointDate(childTL, validity.IsActive, true)
		if !ok {
			continue
		}
		if end.Before(childEnd) {
			return reject(
				fmt.Sprintf("child org unit %s is active until %s", childID, childEnd),
				logrus.Fields{"child_id": childID.String()},
			)
		}
	}
	return nil
}
