package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
	"github.com/iota-uz/orgvalidity/modules/org/services"
)

type checkOutput struct {
	Command string       `json:"command"`
	OK      bool         `json:"ok"`
	Details any          `json:"details,omitempty"`
	Error   *errorOutput `json:"error,omitempty"`
}

type errorOutput struct {
	Code      string             `json:"code"`
	Status    int                `json:"status"`
	Message   string             `json:"message"`
	Cause     string             `json:"cause,omitempty"`
	Gap       *validity.Interval `json:"gap,omitempty"`
	GapReason string             `json:"gap_reason,omitempty"`
}

func newErrorOutput(svcErr *services.ServiceError) *errorOutput {
	out := &errorOutput{Code: svcErr.Code, Status: svcErr.Status, Message: svcErr.Message}
	if svcErr.Cause != nil {
		out.Cause = svcErr.Cause.Error()
	}
	var gapErr *validity.CoverageGapError
	if errors.As(svcErr, &gapErr) {
		gap := gapErr.Offending
		out.Gap = &gap
		out.GapReason = string(gapErr.Reason)
	}
	return out
}

// writeCheck prints the outcome of a validation. A rejection is printed and
// returned with the validation exit code; a lookup or store failure is only
// returned.
func writeCheck(cmd *cobra.Command, command string, details any, err error) error {
	out := checkOutput{Command: command, OK: err == nil, Details: details}
	if err != nil {
		var svcErr *services.ServiceError
		if !errors.As(err, &svcErr) || svcErr.Code == services.CodeNotFound {
			return err
		}
		out.Error = newErrorOutput(svcErr)
	}
	if werr := writeJSON(cmd.OutOrStdout(), out); werr != nil {
		return werr
	}
	if err != nil {
		return withCode(exitValidation, err)
	}
	return nil
}
