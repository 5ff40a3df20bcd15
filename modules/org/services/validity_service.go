package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
	"github.com/iota-uz/orgvalidity/pkg/configuration"
)

const defaultMaxHierarchyDepth = 64

type Config struct {
	MaxHierarchyDepth int
	EditNote          string
	TerminateNote     string
}

func ConfigFromOptions(opts configuration.ValidityOptions) Config {
	return Config{
		MaxHierarchyDepth: opts.MaxHierarchyDepth,
		EditNote:          opts.EditNote,
		TerminateNote:     opts.TerminateNote,
	}
}

type ValidityService struct {
	store Store
	cfg   Config
}

func NewValidityService(store Store, cfg Config) *ValidityService {
	if cfg.MaxHierarchyDepth <= 0 {
		cfg.MaxHierarchyDepth = defaultMaxHierarchyDepth
	}
	return &ValidityService{store: store, cfg: cfg}
}

func (s *ValidityService) Config() Config { return s.cfg }

// IsDateRangeInOrgUnitRange checks that the org unit is active, without gaps,
// for the whole of iv.
func (s *ValidityService) IsDateRangeInOrgUnitRange(ctx context.Context, unitID uuid.UUID, iv validity.Interval) error {
	return s.checkLifetime(ctx, unitID, AttrOrgUnitValidity, iv, CodeDateOutsideOrgUnitRange, "org unit")
}

// IsDateRangeInEmployeeRange checks that the employee is active, without gaps,
// for the whole of iv.
func (s *ValidityService) IsDateRangeInEmployeeRange(ctx context.Context, employeeID uuid.UUID, iv validity.Interval) error {
	return s.checkLifetime(ctx, employeeID, AttrEmployeeValidity, iv, CodeDateOutsideEmplRange, "employee")
}

// ValidateRelationRange checks a relation's range against both ends of the
// relation concurrently. A uuid.Nil id skips that side.
func (s *ValidityService) ValidateRelationRange(ctx context.Context, unitID, employeeID uuid.UUID, iv validity.Interval) error {
	if err := iv.Validate(); err != nil {
		return s.rejectRange(ctx, uuid.Nil, iv, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	if unitID != uuid.Nil {
		g.Go(func() error { return s.IsDateRangeInOrgUnitRange(gctx, unitID, iv) })
	}
	if employeeID != uuid.Nil {
		g.Go(func() error { return s.IsDateRangeInEmployeeRange(gctx, employeeID, iv) })
	}
	return g.Wait()
}

func (s *ValidityService) checkLifetime(ctx context.Context, entityID uuid.UUID, attr Attribute, iv validity.Interval, code, kind string) error {
	if err := iv.Validate(); err != nil {
		return s.rejectRange(ctx, entityID, iv, err)
	}

	tl, err := s.validityTimeline(ctx, entityID, attr, iv)
	if err != nil {
		return err
	}

	if err := validity.CheckCoverage(tl, iv, validity.IsActive); err != nil {
		svcErr := newServiceError(
			http.StatusUnprocessableEntity,
			code,
			fmt.Sprintf("date range %s is outside the active range of %s %s", iv, kind, entityID),
			err,
		)
		maybeLogRejected(ctx, "org.validity.range.rejected", entityID, iv, svcErr, nil)
		return svcErr
	}
	return nil
}

func (s *ValidityService) rejectRange(ctx context.Context, entityID uuid.UUID, iv validity.Interval, err error) error {
	svcErr := mapValidityError(err)
	maybeLogRejected(ctx, "org.validity.range.rejected", entityID, iv, svcErr, nil)
	return svcErr
}

func (s *ValidityService) validityTimeline(ctx context.Context, entityID uuid.UUID, attr Attribute, window validity.Interval) (validity.Timeline[validity.Validity], error) {
	raw, err := s.store.GetEffects(ctx, entityID, attr, window)
	recordStoreCall("get_effects", err)
	if err != nil {
		return nil, storeError("get_effects", err)
	}
	tl, err := ValidityTimeline(raw)
	if err != nil {
		return nil, fmt.Errorf("%s of %s: %w", attr, entityID, err)
	}
	return tl, nil
}

func (s *ValidityService) relationTimeline(ctx context.Context, entityID uuid.UUID, attr Attribute) (validity.Timeline[RelationState], error) {
	raw, err := s.store.GetEffects(ctx, entityID, attr, validity.Everything())
	recordStoreCall("get_effects", err)
	if err != nil {
		return nil, storeError("get_effects", err)
	}
	tl, err := RelationTimeline(raw)
	if err != nil {
		return nil, fmt.Errorf("%s of %s: %w", attr, entityID, err)
	}
	return tl, nil
}
