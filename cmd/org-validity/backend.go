package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgvalidity/modules/org/infrastructure/memory"
	"github.com/iota-uz/orgvalidity/modules/org/infrastructure/persistence"
	"github.com/iota-uz/orgvalidity/modules/org/services"
	"github.com/iota-uz/orgvalidity/pkg/composables"
	"github.com/iota-uz/orgvalidity/pkg/configuration"
)

// backend is the store a command runs against: a fixture held in memory, or
// Postgres when no fixture is given.
type backend struct {
	ctx   context.Context
	store services.Store
	svc   *services.ValidityService
	close func()
}

func openBackend(cmd *cobra.Command, opts *rootOptions) (*backend, error) {
	conf := configuration.Use()
	ctx := composables.WithLogger(cmd.Context(), logrus.NewEntry(conf.Logger()))
	cfg := services.ConfigFromOptions(conf.Validity)

	if opts.fixture != "" {
		mem, err := memory.LoadFixtureFile(opts.fixture)
		if err != nil {
			return nil, withCode(exitUsage, err)
		}
		return &backend{ctx: ctx, store: mem, svc: services.NewValidityService(mem, cfg), close: func() {}}, nil
	}

	pool, err := connectDB(ctx, conf)
	if err != nil {
		return nil, err
	}
	store := persistence.NewValidityStore()
	return &backend{
		ctx:   composables.WithPool(ctx, pool),
		store: store,
		svc:   services.NewValidityService(store, cfg),
		close: pool.Close,
	}, nil
}
