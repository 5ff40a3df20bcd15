package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
)

type checkParentDetails struct {
	Root      uuid.UUID `json:"root"`
	Unit      uuid.UUID `json:"unit"`
	Candidate uuid.UUID `json:"candidate"`
	AsOf      string    `json:"as_of"`
}

func newCheckParentCmd(opts *rootOptions) *cobra.Command {
	var (
		root      string
		unit      string
		candidate string
		asOfDate  string
	)

	cmd := &cobra.Command{
		Use:   "check-parent",
		Short: "Check that an org unit may be moved under a candidate parent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 3)
			for i, v := range []struct{ flag, value string }{{"root", root}, {"unit", unit}, {"candidate", candidate}} {
				id, err := uuid.Parse(v.value)
				if err != nil {
					return withCode(exitUsage, fmt.Errorf("invalid --%s: %w", v.flag, err))
				}
				ids[i] = id
			}
			asOf, err := parseDateUTC(asOfDate)
			if err != nil {
				return withCode(exitUsage, err)
			}

			b, err := openBackend(cmd, opts)
			if err != nil {
				return err
			}
			defer b.close()

			err = b.svc.IsCandidateParentValid(b.ctx, ids[0], ids[1], ids[2], asOf)
			details := checkParentDetails{Root: ids[0], Unit: ids[1], Candidate: ids[2], AsOf: asOf.Format("2006-01-02")}
			return writeCheck(cmd, "check-parent", details, err)
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Root org unit UUID (required)")
	cmd.Flags().StringVar(&unit, "unit", "", "Org unit being moved (required)")
	cmd.Flags().StringVar(&candidate, "candidate", "", "Candidate parent org unit (required)")
	cmd.Flags().StringVar(&asOfDate, "as-of-date", time.Now().UTC().Format("2006-01-02"), "Move date (UTC, YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("root")
	_ = cmd.MarkFlagRequired("unit")
	_ = cmd.MarkFlagRequired("candidate")
	return cmd
}

type checkInactivationDetails struct {
	Unit uuid.UUID          `json:"unit"`
	Date validity.Timestamp `json:"date"`
}

func newCheckInactivationCmd(opts *rootOptions) *cobra.Command {
	var (
		unit string
		date string
	)

	cmd := &cobra.Command{
		Use:   "check-inactivation",
		Short: "Check that an org unit may be inactivated from a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(unit)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid --unit: %w", err))
			}
			end, err := validity.ParseTimestamp(date)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid --date: %w", err))
			}

			b, err := openBackend(cmd, opts)
			if err != nil {
				return err
			}
			defer b.close()

			err = b.svc.IsInactivationDateValid(b.ctx, id, end)
			return writeCheck(cmd, "check-inactivation", checkInactivationDetails{Unit: id, Date: end}, err)
		},
	}

	cmd.Flags().StringVar(&unit, "unit", "", "Org unit UUID (required)")
	cmd.Flags().StringVar(&date, "date", "", "First inactive date (required)")
	_ = cmd.MarkFlagRequired("unit")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
