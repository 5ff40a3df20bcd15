package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgvalidity/modules/org/infrastructure/persistence"
	"github.com/iota-uz/orgvalidity/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:       "migrate [up|down|status|reset]",
		Short:     "Apply the validity table migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			if dir == "" {
				dir = conf.MigrationsDir
			}
			fsys, path := migrationsSource(dir)

			pool, err := connectDB(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer pool.Close()

			db := stdlib.OpenDBFromPool(pool)
			defer db.Close()

			goose.SetBaseFS(fsys)
			defer goose.SetBaseFS(nil)
			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}

			switch args[0] {
			case "up":
				err = goose.UpContext(cmd.Context(), db, path)
			case "down":
				err = goose.DownContext(cmd.Context(), db, path)
			case "status":
				err = goose.StatusContext(cmd.Context(), db, path)
			case "reset":
				err = goose.ResetContext(cmd.Context(), db, path)
			}
			if err != nil {
				return withCode(exitDBWrite, fmt.Errorf("migrate %s: %w", args[0], err))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory on disk (default MIGRATIONS_DIR, falling back to the embedded set)")
	return cmd
}

// migrationsSource prefers a directory on disk and falls back to the
// migrations compiled into the binary.
func migrationsSource(dir string) (fs.FS, string) {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return nil, dir
	}
	return persistence.Migrations, persistence.MigrationsDir
}
