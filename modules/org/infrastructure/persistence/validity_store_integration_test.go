package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
	"github.com/iota-uz/orgvalidity/modules/org/infrastructure/memory"
	"github.com/iota-uz/orgvalidity/modules/org/services"
	"github.com/iota-uz/orgvalidity/pkg/composables"
)

func setupValidityDB(t *testing.T) context.Context {
	t.Helper()
	dsn := os.Getenv("ORG_VALIDITY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ORG_VALIDITY_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() { _ = db.Close() })
	goose.SetBaseFS(Migrations)
	t.Cleanup(func() { goose.SetBaseFS(nil) })
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Reset(db, MigrationsDir))
	require.NoError(t, goose.Up(db, MigrationsDir))

	return composables.WithPool(ctx, pool)
}

func TestValidityStore_Integration(t *testing.T) {
	ctx := setupValidityDB(t)
	store := NewValidityStore()
	svc := services.NewValidityService(store, services.Config{})

	org, root, unit, rel := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{root, unit} {
		require.NoError(t, store.CreateUnit(ctx, id, org))
	}
	require.NoError(t, store.Put(ctx, root, services.AttrOrgUnitValidity,
		services.RawSlice{From: validity.NegativeInfinity(), To: validity.PositiveInfinity(), State: "active"}))
	require.NoError(t, store.Put(ctx, root, services.AttrOrgUnitParent,
		services.RawSlice{From: validity.NegativeInfinity(), To: validity.PositiveInfinity(), State: "active", Target: &org}))
	require.NoError(t, store.Put(ctx, unit, services.AttrOrgUnitValidity,
		services.RawSlice{From: validity.Date(2017, 1, 1), To: validity.Date(2017, 8, 29), State: "active"}))
	require.NoError(t, store.Put(ctx, unit, services.AttrOrgUnitParent,
		services.RawSlice{From: validity.NegativeInfinity(), To: validity.PositiveInfinity(), State: "active", Target: &root}))
	require.NoError(t, store.Put(ctx, rel, services.AttrFunctionValidity,
		services.RawSlice{From: validity.Date(2017, 2, 1), To: validity.Date(2017, 6, 1), State: "active", Target: &unit}))

	require.NoError(t, svc.IsDateRangeInOrgUnitRange(ctx, unit, validity.MustInterval(validity.Date(2017, 1, 1), validity.Date(2017, 8, 29))))
	err := svc.IsDateRangeInOrgUnitRange(ctx, unit, validity.MustInterval(validity.Date(2017, 1, 1), validity.Date(2017, 9, 1)))
	require.Error(t, err)

	asOf := time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC)
	node, err := store.Get(ctx, unit, asOf)
	require.NoError(t, err)
	require.Equal(t, root, *node.ParentID)

	rootNode, err := store.Get(ctx, root, asOf)
	require.NoError(t, err)
	require.True(t, rootNode.IsRoot())

	kids, err := store.Children(ctx, root, asOf)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{unit}, kids)

	_, err = svc.Edit(ctx, services.EditRequest{
		RoleType: services.RoleManager,
		ID:       rel,
		Original: validity.MustInterval(validity.Date(2017, 2, 1), validity.Date(2017, 6, 1)),
		Validity: validity.MustInterval(validity.Date(2017, 3, 1), validity.Date(2017, 8, 1)),
	})
	require.NoError(t, err)

	raw, err := store.GetEffects(ctx, rel, services.AttrFunctionValidity, validity.Everything())
	require.NoError(t, err)
	require.Len(t, raw, 3)

	_, err = store.Get(ctx, uuid.New(), asOf)
	require.ErrorIs(t, err, services.ErrNotFound)
}

func projectValidity(t *testing.T, raw []services.RawSlice) []validity.Effect[validity.Validity] {
	t.Helper()
	tl, err := services.ValidityTimeline(raw)
	require.NoError(t, err)
	return validity.Project(tl, validity.Everything())
}

func TestValidityStore_UnstampedOverlapsProjectLikeMemory(t *testing.T) {
	ctx := setupValidityDB(t)
	store := NewValidityStore()
	mem := memory.New(uuid.New())
	emp := uuid.New()

	raw := []services.RawSlice{
		{From: validity.Date(2017, 1, 1), To: validity.Date(2018, 1, 1), State: "inactive"},
		{From: validity.Date(2016, 1, 1), To: validity.PositiveInfinity(), State: "active"},
	}
	require.NoError(t, store.Put(ctx, emp, services.AttrEmployeeValidity, raw...))
	mem.Put(emp, services.AttrEmployeeValidity, raw...)

	fromDB, err := store.GetEffects(ctx, emp, services.AttrEmployeeValidity, validity.Everything())
	require.NoError(t, err)
	fromMem, err := mem.GetEffects(ctx, emp, services.AttrEmployeeValidity, validity.Everything())
	require.NoError(t, err)

	want := projectValidity(t, fromMem)
	require.Len(t, want, 3)
	require.Equal(t, validity.Inactive, want[1].State)
	got := projectValidity(t, fromDB)
	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, want[i].Interval.SameBounds(got[i].Interval), "%s != %s", want[i].Interval, got[i].Interval)
		require.Equal(t, want[i].State, got[i].State)
	}
}

func TestValidityStore_UpdateWinsOverFutureStamps(t *testing.T) {
	ctx := setupValidityDB(t)
	store := NewValidityStore()
	rel := uuid.New()
	ahead := time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, rel, services.AttrFunctionValidity,
		services.RawSlice{From: validity.Date(2016, 1, 1), To: validity.Date(2018, 1, 1), State: "active", RecordedAt: ahead}))

	require.NoError(t, store.Update(ctx, rel, services.UpdatePayload{
		Attribute: services.AttrFunctionValidity,
		Fragments: []services.Fragment{{Interval: validity.MustInterval(validity.Date(2016, 1, 1), validity.Date(2017, 1, 1)), State: "inactive"}},
	}))

	raw, err := store.GetEffects(ctx, rel, services.AttrFunctionValidity, validity.Everything())
	require.NoError(t, err)
	require.Len(t, raw, 2)
	require.True(t, raw[1].RecordedAt.After(ahead))
}
