package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
)

type coversDetails struct {
	Entity uuid.UUID         `json:"entity"`
	Kind   string            `json:"kind"`
	Range  validity.Interval `json:"range"`
}

func newCoversCmd(opts *rootOptions) *cobra.Command {
	var (
		entity string
		kind   string
		from   string
		to     string
	)

	cmd := &cobra.Command{
		Use:   "covers",
		Short: "Check that an org unit or employee is active, without gaps, over a range",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(entity)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid --entity: %w", err))
			}
			iv, err := parseRange(from, to)
			if err != nil {
				return err
			}
			if kind != "org-unit" && kind != "employee" {
				return withCode(exitUsage, fmt.Errorf("invalid --kind %q (expected org-unit|employee)", kind))
			}

			b, err := openBackend(cmd, opts)
			if err != nil {
				return err
			}
			defer b.close()

			if kind == "org-unit" {
				err = b.svc.IsDateRangeInOrgUnitRange(b.ctx, id, iv)
			} else {
				err = b.svc.IsDateRangeInEmployeeRange(b.ctx, id, iv)
			}
			return writeCheck(cmd, "covers", coversDetails{Entity: id, Kind: kind, Range: iv}, err)
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "Org unit or employee UUID (required)")
	cmd.Flags().StringVar(&kind, "kind", "org-unit", "Entity kind: org-unit|employee")
	cmd.Flags().StringVar(&from, "from", "", "Range start (ISO-8601; empty means -infinity)")
	cmd.Flags().StringVar(&to, "to", "", "Range end, exclusive (ISO-8601; empty means infinity)")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}
