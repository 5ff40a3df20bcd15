package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
	"github.com/iota-uz/orgvalidity/modules/org/infrastructure/memory"
	"github.com/iota-uz/orgvalidity/modules/org/services"
	"github.com/iota-uz/orgvalidity/pkg/composables"
	"github.com/iota-uz/orgvalidity/pkg/configuration"
)

var (
	d   = validity.Date
	inf = validity.PositiveInfinity
)

func slice(from, to validity.Timestamp, state validity.Validity) services.RawSlice {
	return services.RawSlice{From: from, To: to, State: string(state)}
}

func requireServiceCode(t *testing.T, err error, code string) *services.ServiceError {
	t.Helper()
	var svcErr *services.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, code, svcErr.Code)
	return svcErr
}

// orgUnitStore holds one unit active over [2017-01-01, 2017-08-29) and one
// employee active from 2015.
func orgUnitStore(t *testing.T) (*memory.Store, uuid.UUID, uuid.UUID) {
	t.Helper()
	s := memory.New(uuid.New())
	unit, employee := uuid.New(), uuid.New()
	s.AddUnit(unit,
		slice(validity.NegativeInfinity(), d(2017, 1, 1), validity.Inactive),
		slice(d(2017, 1, 1), d(2017, 8, 29), validity.Active),
		slice(d(2017, 8, 29), inf(), validity.Inactive),
	)
	s.Put(employee, services.AttrEmployeeValidity, slice(d(2015, 1, 1), inf(), validity.Active))
	return s, unit, employee
}

func TestIsDateRangeInOrgUnitRange_AcceptsExactActiveRange(t *testing.T) {
	s, unit, _ := orgUnitStore(t)
	svc := services.NewValidityService(s, services.Config{})

	err := svc.IsDateRangeInOrgUnitRange(context.Background(), unit, validity.MustInterval(d(2017, 1, 1), d(2017, 8, 29)))
	require.NoError(t, err)
}

func TestIsDateRangeInOrgUnitRange_RejectsRangeBeyondActiveEnd(t *testing.T) {
	s, unit, _ := orgUnitStore(t)
	svc := services.NewValidityService(s, services.Config{})

	logger, hook := test.NewNullLogger()
	ctx := composables.WithLogger(context.Background(), logrus.NewEntry(logger))
	before := testutil.ToFloat64(services.RejectionsCounter(services.CodeDateOutsideOrgUnitRange))

	err := svc.IsDateRangeInOrgUnitRange(ctx, unit, validity.MustInterval(d(2017, 1, 1), d(2017, 9, 1)))
	svcErr := requireServiceCode(t, err, services.CodeDateOutsideOrgUnitRange)
	require.Equal(t, 422, svcErr.Status)

	var gapErr *validity.CoverageGapError
	require.ErrorAs(t, err, &gapErr)
	require.True(t, gapErr.Offending.Start.Equal(d(2017, 8, 29)))

	require.InDelta(t, before+1, testutil.ToFloat64(services.RejectionsCounter(services.CodeDateOutsideOrgUnitRange)), 0.001)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, services.CodeDateOutsideOrgUnitRange, entry.Data["error_code"])
	require.Equal(t, unit.String(), entry.Data["entity_id"])
}

func TestIsDateRangeInOrgUnitRange_RejectsDegenerateRange(t *testing.T) {
	s, unit, _ := orgUnitStore(t)
	svc := services.NewValidityService(s, services.Config{})

	degenerate := validity.Interval{Start: d(2017, 2, 1), End: d(2017, 2, 1), StartInclusive: true}
	err := svc.IsDateRangeInOrgUnitRange(context.Background(), unit, degenerate)
	requireServiceCode(t, err, services.CodeInvalidRange)
	require.ErrorIs(t, err, validity.ErrInvalidRange)
}

func TestIsDateRangeInEmployeeRange_UnknownEmployeeIsNotFound(t *testing.T) {
	s, _, _ := orgUnitStore(t)
	svc := services.NewValidityService(s, services.Config{})

	err := svc.IsDateRangeInEmployeeRange(context.Background(), uuid.New(), validity.MustInterval(d(2017, 1, 1), d(2017, 2, 1)))
	requireServiceCode(t, err, services.CodeNotFound)
	require.ErrorIs(t, err, services.ErrNotFound)

	var storeErr *services.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "get_effects", storeErr.Op)
}

func TestValidateRelationRange_ChecksBothSides(t *testing.T) {
	s, unit, employee := orgUnitStore(t)
	svc := services.NewValidityService(s, services.Config{})
	ctx := context.Background()

	require.NoError(t, svc.ValidateRelationRange(ctx, unit, employee, validity.MustInterval(d(2017, 2, 1), d(2017, 3, 1))))

	err := svc.ValidateRelationRange(ctx, unit, employee, validity.MustInterval(d(2016, 2, 1), d(2017, 3, 1)))
	requireServiceCode(t, err, services.CodeDateOutsideOrgUnitRange)

	err = svc.ValidateRelationRange(ctx, uuid.Nil, employee, validity.MustInterval(d(2014, 2, 1), d(2014, 3, 1)))
	requireServiceCode(t, err, services.CodeDateOutsideEmplRange)

	require.NoError(t, svc.ValidateRelationRange(ctx, uuid.Nil, employee, validity.MustInterval(d(2016, 2, 1), inf())))
}

type failingStore struct {
	services.Store
	err error
}

func (f failingStore) GetEffects(context.Context, uuid.UUID, services.Attribute, validity.Interval) ([]services.RawSlice, error) {
	return nil, f.err
}

func TestValidateRelationRange_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	svc := services.NewValidityService(failingStore{err: boom}, services.Config{})

	err := svc.ValidateRelationRange(context.Background(), uuid.New(), uuid.New(), validity.MustInterval(d(2017, 1, 1), d(2018, 1, 1)))
	require.ErrorIs(t, err, boom)
	var storeErr *services.StoreError
	require.ErrorAs(t, err, &storeErr)
	var svcErr *services.ServiceError
	assert.False(t, errors.As(err, &svcErr))
}

func TestNewValidityService_DefaultsDepth(t *testing.T) {
	svc := services.NewValidityService(memory.New(uuid.New()), services.Config{})
	require.Equal(t, 64, svc.Config().MaxHierarchyDepth)
}

func TestIsInactivationDateValid(t *testing.T) {
	ctx := context.Background()
	s := memory.New(uuid.New())
	parent, child := uuid.New(), uuid.New()
	s.AddUnit(parent, slice(d(2016, 1, 1), inf(), validity.Active))
	s.AddUnit(child, slice(d(2016, 6, 1), d(2018, 1, 1), validity.Active))
	s.SetParent(child, parent, validity.NegativeInfinity(), inf())
	svc := services.NewValidityService(s, services.Config{})

	require.NoError(t, svc.IsInactivationDateValid(ctx, parent, d(2018, 1, 1)))
	require.NoError(t, svc.IsInactivationDateValid(ctx, parent, d(2019, 1, 1)))

	err := svc.IsInactivationDateValid(ctx, parent, d(2017, 6, 1))
	svcErr := requireServiceCode(t, err, services.CodeInvalidInactivationDate)
	require.Contains(t, svcErr.Message, child.String())

	err = svc.IsInactivationDateValid(ctx, parent, d(2016, 1, 1))
	requireServiceCode(t, err, services.CodeInvalidInactivationDate)

	err = svc.IsInactivationDateValid(ctx, parent, inf())
	requireServiceCode(t, err, services.CodeInvalidInactivationDate)
}

func TestIsInactivationDateValid_UnitWithoutActivePeriod(t *testing.T) {
	s := memory.New(uuid.New())
	unit := uuid.New()
	s.AddUnit(unit, slice(validity.NegativeInfinity(), inf(), validity.Inactive))
	svc := services.NewValidityService(s, services.Config{})

	err := svc.IsInactivationDateValid(context.Background(), unit, d(2020, 1, 1))
	requireServiceCode(t, err, services.CodeInvalidInactivationDate)
}

func TestConfigFromOptions(t *testing.T) {
	cfg := services.ConfigFromOptions(configuration.ValidityOptions{MaxHierarchyDepth: 3, EditNote: "e", TerminateNote: "t"})
	svc := services.NewValidityService(memory.New(uuid.New()), cfg)
	require.Equal(t, services.Config{MaxHierarchyDepth: 3, EditNote: "e", TerminateNote: "t"}, svc.Config())
}
