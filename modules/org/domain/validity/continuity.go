package validity

// CheckCoverage verifies that candidate is exactly and gaplessly spanned by
// effects of tl whose state satisfies pred. It returns a *CoverageGapError
// naming the first violation, or an *InvalidRangeError for a degenerate candidate.
func CheckCoverage[S comparable](tl Timeline[S], candidate Interval, pred func(S) bool) error {
	if err := candidate.Validate(); err != nil {
		return err
	}

	effects := Project(tl, candidate)
	if len(effects) == 0 {
		return &CoverageGapError{Candidate: candidate, Offending: candidate, Reason: GapEmpty}
	}

	first := effects[0]
	if first.Interval.Start.After(candidate.Start) {
		return &CoverageGapError{
			Candidate: candidate,
			Offending: Interval{Start: candidate.Start, End: first.Interval.Start, StartInclusive: true},
			Reason:    GapLeftEdge,
		}
	}

	for i, e := range effects {
		if i > 0 {
			prevEnd := effects[i-1].Interval.End
			if !prevEnd.Equal(e.Interval.Start) {
				return &CoverageGapError{
					Candidate: candidate,
					Offending: Interval{Start: prevEnd, End: e.Interval.Start, StartInclusive: true},
					Reason:    GapInterior,
				}
			}
		}
		if !pred(e.State) {
			return &CoverageGapError{Candidate: candidate, Offending: e.Interval, Reason: GapStateRejects}
		}
	}

	last := effects[len(effects)-1]
	if last.Interval.End.Before(candidate.End) {
		return &CoverageGapError{
			Candidate: candidate,
			Offending: Interval{Start: last.Interval.End, End: candidate.End, StartInclusive: true},
			Reason:    GapRightEdge,
		}
	}
	return nil
}

// Covers reports whether CheckCoverage succeeds.
func Covers[S comparable](tl Timeline[S], candidate Interval, pred func(S) bool) bool {
	return CheckCoverage(tl, candidate, pred) == nil
}
