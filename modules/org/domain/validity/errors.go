package validity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange     = errors.New("invalid range")
	ErrStaleEdit        = errors.New("stale edit")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrCoverageGap      = errors.New("coverage gap")
)

// InvalidRangeError reports an interval whose start is not strictly before its end.
type InvalidRangeError struct {
	Start  Timestamp
	End    Timestamp
	Reason string
}

func (e *InvalidRangeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid range [%s, %s): start must be before end", e.Start, e.End)
	}
	return fmt.Sprintf("invalid range [%s, %s): %s", e.Start, e.End, e.Reason)
}

func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidRange }

// InvalidBoundaryError reports a boundary that could not be parsed.
// It is a kind of ErrInvalidRange.
type InvalidBoundaryError struct {
	Value  string
	Reason string
	Cause  error
}

func (e *InvalidBoundaryError) Error() string {
	return fmt.Sprintf("invalid boundary %q: %s", e.Value, e.Reason)
}

func (e *InvalidBoundaryError) Unwrap() error { return e.Cause }

func (e *InvalidBoundaryError) Is(target error) bool { return target == ErrInvalidRange }

// StaleEditError means the interval echoed back by the caller no longer matches the stored one.
type StaleEditError struct {
	Claimed Interval
	Current Interval
}

func (e *StaleEditError) Error() string {
	return fmt.Sprintf("stale edit: claimed %s but current is %s", e.Claimed, e.Current)
}

func (e *StaleEditError) Is(target error) bool { return target == ErrStaleEdit }

type InvalidOperationError struct {
	Op     string
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("invalid operation %s: %s", e.Op, e.Reason)
}

func (e *InvalidOperationError) Is(target error) bool { return target == ErrInvalidOperation }

// GapReason names the first coverage rule a candidate range violated.
type GapReason string

const (
	GapEmpty        GapReason = "no_coverage"
	GapLeftEdge     GapReason = "left_edge_uncovered"
	GapInterior     GapReason = "gap"
	GapStateRejects GapReason = "state_rejected"
	GapRightEdge    GapReason = "right_edge_uncovered"
)

// CoverageGapError identifies the first offending sub-range of a candidate range.
type CoverageGapError struct {
	Candidate Interval
	Offending Interval
	Reason    GapReason
}

func (e *CoverageGapError) Error() string {
	return fmt.Sprintf("%s not covered: %s at %s", e.Candidate, e.Reason, e.Offending)
}

func (e *CoverageGapError) Is(target error) bool { return target == ErrCoverageGap }
