package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wI2L/jsondiff"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
	"github.com/iota-uz/orgvalidity/modules/org/services"
)

type spliceOutput struct {
	Command string               `json:"command"`
	Result  *services.EditResult `json:"result"`
	Diff    jsondiff.Patch       `json:"diff,omitempty"`
}

type relationFlags struct {
	roleType     string
	id           string
	originalFrom string
	originalTo   string
	diff         bool
}

func (f *relationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.roleType, "type", string(services.RoleEngagement), "Relation role type")
	cmd.Flags().StringVar(&f.id, "uuid", "", "Relation UUID (required)")
	cmd.Flags().StringVar(&f.originalFrom, "original-from", "", "Start of the registration as last read (required)")
	cmd.Flags().StringVar(&f.originalTo, "original-to", "", "End of the registration as last read (empty means infinity)")
	cmd.Flags().BoolVar(&f.diff, "diff", false, "Print a JSON patch between the effects before and after")
	_ = cmd.MarkFlagRequired("uuid")
	_ = cmd.MarkFlagRequired("original-from")
}

func (f *relationFlags) parse() (uuid.UUID, validity.Interval, error) {
	id, err := uuid.Parse(f.id)
	if err != nil {
		return uuid.Nil, validity.Interval{}, withCode(exitUsage, fmt.Errorf("invalid --uuid: %w", err))
	}
	original, err := parseRange(f.originalFrom, f.originalTo)
	if err != nil {
		return uuid.Nil, validity.Interval{}, err
	}
	return id, original, nil
}

func parseOptionalUUID(flag, v string) (uuid.UUID, error) {
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, withCode(exitUsage, fmt.Errorf("invalid --%s: %w", flag, err))
	}
	return id, nil
}

func newSpliceCmd(opts *rootOptions) *cobra.Command {
	var (
		rel     relationFlags
		from    string
		to      string
		orgUnit string
		person  string
		target  string
	)

	cmd := &cobra.Command{
		Use:   "splice",
		Short: "Move the validity of a relation (truncate + insert)",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, original, err := rel.parse()
			if err != nil {
				return err
			}
			next, err := parseRange(from, to)
			if err != nil {
				return err
			}
			req := services.EditRequest{RoleType: services.RoleType(rel.roleType), ID: id, Original: original, Validity: next}
			if req.OrgUnitID, err = parseOptionalUUID("org-unit", orgUnit); err != nil {
				return err
			}
			if req.EmployeeID, err = parseOptionalUUID("person", person); err != nil {
				return err
			}
			if target != "" {
				t, err := parseOptionalUUID("target", target)
				if err != nil {
					return err
				}
				req.Target = &t
			}

			b, err := openBackend(cmd, opts)
			if err != nil {
				return err
			}
			defer b.close()

			return runRelationChange(cmd, b, "splice", id, rel.diff, func() (*services.EditResult, error) {
				return b.svc.Edit(b.ctx, req)
			})
		},
	}

	rel.register(cmd)
	cmd.Flags().StringVar(&from, "from", "", "New start (required)")
	cmd.Flags().StringVar(&to, "to", "", "New end, exclusive (empty means infinity)")
	cmd.Flags().StringVar(&orgUnit, "org-unit", "", "Org unit to validate against (defaults to the relation target)")
	cmd.Flags().StringVar(&person, "person", "", "Employee to validate against")
	cmd.Flags().StringVar(&target, "target", "", "New target org unit")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newTerminateCmd(opts *rootOptions) *cobra.Command {
	var (
		rel relationFlags
		at  string
	)

	cmd := &cobra.Command{
		Use:   "terminate",
		Short: "End a relation at a date, keeping its history",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, original, err := rel.parse()
			if err != nil {
				return err
			}
			ts, err := validity.ParseTimestamp(at)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid --at: %w", err))
			}

			b, err := openBackend(cmd, opts)
			if err != nil {
				return err
			}
			defer b.close()

			req := services.TerminateRequest{RoleType: services.RoleType(rel.roleType), ID: id, Original: original, At: ts}
			return runRelationChange(cmd, b, "terminate", id, rel.diff, func() (*services.EditResult, error) {
				return b.svc.Terminate(b.ctx, req)
			})
		},
	}

	rel.register(cmd)
	cmd.Flags().StringVar(&at, "at", "", "Termination date (required)")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func runRelationChange(cmd *cobra.Command, b *backend, command string, id uuid.UUID, diff bool, run func() (*services.EditResult, error)) error {
	var before any
	if diff {
		effects, err := projectAttribute(b, id, services.AttrFunctionValidity, validity.Everything())
		if err != nil {
			return err
		}
		before = effects
	}

	res, err := run()
	if err != nil {
		return writeCheck(cmd, command, nil, err)
	}

	out := spliceOutput{Command: command, Result: res}
	if diff {
		after, err := projectAttribute(b, id, services.AttrFunctionValidity, validity.Everything())
		if err != nil {
			return err
		}
		if out.Diff, err = jsondiff.Compare(before, after); err != nil {
			return err
		}
	}
	return writeJSON(cmd.OutOrStdout(), out)
}
