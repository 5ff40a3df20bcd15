package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgvalidity/modules/org/infrastructure/memory"
	"github.com/iota-uz/orgvalidity/modules/org/infrastructure/persistence"
	"github.com/iota-uz/orgvalidity/modules/org/services"
	"github.com/iota-uz/orgvalidity/pkg/composables"
	"github.com/iota-uz/orgvalidity/pkg/configuration"
)

type importOutput struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	Units      int    `json:"units"`
	Entities   int    `json:"entities"`
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Load the --fixture file into the database in one transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.fixture == "" {
				return withCode(exitUsage, errors.New("--fixture is required"))
			}
			mem, err := memory.LoadFixtureFile(opts.fixture)
			if err != nil {
				return withCode(exitUsage, err)
			}
			fx := mem.Snapshot()

			conf := configuration.Use()
			pool, err := connectDB(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithLogger(composables.WithPool(cmd.Context(), pool), logrus.NewEntry(conf.Logger()))
			start := time.Now()
			if err := importFixture(ctx, persistence.NewValidityStore(), fx); err != nil {
				return withCode(exitDBWrite, err)
			}
			composables.UseLogger(ctx).WithField("units", len(fx.Units)).Info("org.validity.import.done")
			return writeJSON(cmd.OutOrStdout(), importOutput{
				Command:    "import",
				DurationMS: time.Since(start).Milliseconds(),
				Units:      len(fx.Units),
				Entities:   len(fx.Entities),
			})
		},
	}
}

func importFixture(ctx context.Context, store *persistence.ValidityStore, fx memory.Fixture) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		for _, u := range fx.Units {
			if err := store.CreateUnit(txCtx, u.ID, fx.OrganisationID); err != nil {
				return fmt.Errorf("unit %s: %w", u.ID, err)
			}
			if err := store.Put(txCtx, u.ID, services.AttrOrgUnitValidity, u.Validity...); err != nil {
				return fmt.Errorf("unit %s: %w", u.ID, err)
			}
			if len(u.Parents) > 0 {
				if err := store.Put(txCtx, u.ID, services.AttrOrgUnitParent, u.Parents...); err != nil {
					return fmt.Errorf("unit %s: %w", u.ID, err)
				}
			}
		}
		for _, e := range fx.Entities {
			for attr, raw := range e.Attributes {
				if err := store.Put(txCtx, e.ID, attr, raw...); err != nil {
					return fmt.Errorf("entity %s: %w", e.ID, err)
				}
			}
		}
		return nil
	})
}
