package validity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func orgUnitLifetime() Timeline[Validity] {
	return Timeline[Validity]{
		reg(Date(2017, 1, 1), Date(2017, 8, 29), Active),
		reg(NegativeInfinity(), Date(2017, 1, 1), Inactive),
		reg(Date(2017, 8, 29), PositiveInfinity(), Inactive),
	}
}

func TestCovers_ExactActiveRange(t *testing.T) {
	require.True(t, Covers(orgUnitLifetime(), MustInterval(Date(2017, 1, 1), Date(2017, 8, 29)), IsActive))
}

func TestCovers_RightEdgeBeyondActiveRange(t *testing.T) {
	candidate := MustInterval(Date(2017, 1, 1), Date(2017, 9, 1))
	require.False(t, Covers(orgUnitLifetime(), candidate, IsActive))

	err := CheckCoverage(orgUnitLifetime(), candidate, IsActive)
	var gapErr *CoverageGapError
	require.ErrorAs(t, err, &gapErr)
	require.Equal(t, GapStateRejects, gapErr.Reason)
	require.True(t, gapErr.Offending.SameBounds(MustInterval(Date(2017, 8, 29), Date(2017, 9, 1))))
}

func TestCovers_SingleRegistrationIsReflexive(t *testing.T) {
	candidate := MustInterval(Date(2016, 2, 29), Date(2020, 1, 1))
	tl := Timeline[Validity]{{Interval: candidate, State: Active}}
	require.True(t, Covers(tl, candidate, IsActive))

	unbounded := MustInterval(Date(2016, 2, 29), PositiveInfinity())
	require.True(t, Covers(Timeline[Validity]{{Interval: unbounded, State: Active}}, unbounded, IsActive))
}

func TestCovers_DetectsInteriorGap(t *testing.T) {
	t1 := Date(2017, 6, 1)
	tl := Timeline[Validity]{
		reg(Date(2017, 1, 1), t1, Active),
		reg(At(t1.Time().Add(time.Nanosecond)), Date(2018, 1, 1), Active),
	}
	candidate := MustInterval(Date(2017, 1, 1), Date(2018, 1, 1))
	require.False(t, Covers(tl, candidate, IsActive))

	err := CheckCoverage(tl, candidate, IsActive)
	var gapErr *CoverageGapError
	require.ErrorAs(t, err, &gapErr)
	require.Equal(t, GapInterior, gapErr.Reason)
	require.True(t, gapErr.Offending.Start.Equal(t1))
}

func TestCovers_DetectsLeftEdgeGap(t *testing.T) {
	tl := Timeline[Validity]{reg(Date(2017, 2, 1), PositiveInfinity(), Active)}
	err := CheckCoverage(tl, MustInterval(Date(2017, 1, 1), Date(2017, 3, 1)), IsActive)
	var gapErr *CoverageGapError
	require.ErrorAs(t, err, &gapErr)
	require.Equal(t, GapLeftEdge, gapErr.Reason)
	require.ErrorIs(t, err, ErrCoverageGap)
}

func TestCovers_DetectsRightEdgeShortfall(t *testing.T) {
	tl := Timeline[Validity]{reg(Date(2017, 1, 1), Date(2017, 2, 1), Active)}
	err := CheckCoverage(tl, MustInterval(Date(2017, 1, 1), Date(2017, 3, 1)), IsActive)
	var gapErr *CoverageGapError
	require.ErrorAs(t, err, &gapErr)
	require.Equal(t, GapRightEdge, gapErr.Reason)
}

func TestCovers_AdjacentActiveRegistrationsAreContiguous(t *testing.T) {
	recorded := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tl := Timeline[Validity]{
		{Interval: MustInterval(Date(2017, 1, 1), Date(2017, 6, 1)), State: Active, RecordedAt: recorded},
		{Interval: MustInterval(Date(2017, 6, 1), PositiveInfinity()), State: Active, RecordedAt: recorded.Add(time.Hour)},
	}
	require.True(t, Covers(tl, MustInterval(Date(2017, 2, 1), Date(2019, 1, 1)), IsActive))
}

func TestCovers_EmptyTimelineAndDegenerateCandidate(t *testing.T) {
	require.False(t, Covers(Timeline[Validity]{}, MustInterval(Date(2017, 1, 1), Date(2018, 1, 1)), IsActive))

	degenerate := Interval{Start: Date(2017, 1, 1), End: Date(2017, 1, 1), StartInclusive: true}
	require.False(t, Covers(orgUnitLifetime(), degenerate, IsActive))
	var rangeErr *InvalidRangeError
	require.ErrorAs(t, CheckCoverage(orgUnitLifetime(), degenerate, IsActive), &rangeErr)
}

func TestCovers_InstantWindow(t *testing.T) {
	require.True(t, Covers(orgUnitLifetime(), Instant(Date(2017, 5, 5)), IsActive))
	require.False(t, Covers(orgUnitLifetime(), Instant(Date(2017, 8, 29)), IsActive))
}

func TestCovers_RelationStatePredicate(t *testing.T) {
	type relation struct {
		Validity Validity
		Target   string
	}
	tl := Timeline[relation]{
		{Interval: MustInterval(Date(2017, 1, 1), Date(2018, 1, 1)), State: relation{Active, "unit-a"}},
		{Interval: MustInterval(Date(2018, 1, 1), PositiveInfinity()), State: relation{Active, "unit-b"}},
	}
	candidate := MustInterval(Date(2017, 6, 1), Date(2018, 6, 1))
	require.True(t, Covers(tl, candidate, func(r relation) bool { return r.Validity == Active }))
	require.False(t, Covers(tl, candidate, func(r relation) bool { return r.Target == "unit-a" }))
	require.Len(t, Project(tl, candidate), 2)
}
