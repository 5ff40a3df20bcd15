package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
	"github.com/iota-uz/orgvalidity/modules/org/services"
)

type projectOutput struct {
	Entity    uuid.UUID          `json:"entity"`
	Attribute services.Attribute `json:"attribute"`
	Window    validity.Interval  `json:"window"`
	Effects   any                `json:"effects"`
}

func newProjectCmd(opts *rootOptions) *cobra.Command {
	var (
		entity string
		attr   string
		from   string
		to     string
		asOf   string
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Print the effective timeline of one entity attribute",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(entity)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid --entity: %w", err))
			}
			window, err := parseRange(from, to)
			if err != nil {
				return err
			}
			if asOf != "" {
				ts, err := validity.ParseTimestamp(asOf)
				if err != nil {
					return withCode(exitUsage, fmt.Errorf("invalid --as-of: %w", err))
				}
				window = validity.Instant(ts)
			}

			b, err := openBackend(cmd, opts)
			if err != nil {
				return err
			}
			defer b.close()

			effects, err := projectAttribute(b, id, services.Attribute(attr), window)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), projectOutput{Entity: id, Attribute: services.Attribute(attr), Window: window, Effects: effects})
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "Entity UUID (required)")
	cmd.Flags().StringVar(&attr, "attr", string(services.AttrOrgUnitValidity), "Attribute to project")
	cmd.Flags().StringVar(&from, "from", "", "Window start (ISO-8601; empty means -infinity)")
	cmd.Flags().StringVar(&to, "to", "", "Window end, exclusive (ISO-8601; empty means infinity)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Project a single instant instead of a window")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

// projectAttribute projects lifetime attributes as plain validity and
// relation attributes with their target.
func projectAttribute(b *backend, id uuid.UUID, attr services.Attribute, window validity.Interval) (any, error) {
	raw, err := b.store.GetEffects(b.ctx, id, attr, window)
	if err != nil {
		return nil, err
	}
	switch attr {
	case services.AttrOrgUnitValidity, services.AttrEmployeeValidity:
		tl, err := services.ValidityTimeline(raw)
		if err != nil {
			return nil, err
		}
		return nonNil(validity.Project(tl, window)), nil
	default:
		tl, err := services.RelationTimeline(raw)
		if err != nil {
			return nil, err
		}
		return nonNil(validity.Project(tl, window)), nil
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
