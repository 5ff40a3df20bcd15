package validity

import (
	"slices"
	"time"
)

// Validity is the state of a lifetime attribute.
type Validity string

const (
	Active   Validity = "active"
	Inactive Validity = "inactive"
)

func ParseValidity(s string) (Validity, bool) {
	switch Validity(s) {
	case Active, Inactive:
		return Validity(s), true
	}
	return "", false
}

func IsActive(v Validity) bool { return v == Active }

// Registration is one stored fact: State held during Interval, asserted at RecordedAt.
type Registration[S comparable] struct {
	Interval   Interval  `json:"interval"`
	State      S         `json:"state"`
	RecordedAt time.Time `json:"recorded_at,omitempty"`
}

// Timeline is the raw set of registrations for one entity attribute.
// It may overlap or leave gaps; Project normalizes it.
type Timeline[S comparable] []Registration[S]

// Effect is a maximal, homogeneous slice of a projected timeline.
type Effect[S comparable] struct {
	Interval Interval `json:"interval"`
	State    S        `json:"state"`
}

// FromEffects converts projected effects back into registrations.
func FromEffects[S comparable](effects []Effect[S]) Timeline[S] {
	out := make(Timeline[S], 0, len(effects))
	for _, e := range effects {
		out = append(out, Registration[S]{Interval: e.Interval, State: e.State})
	}
	return out
}

// supersedes reports whether registration j takes precedence over registration i
// where both cover the same instant. Later assertions win; between facts asserted
// together the shorter interval wins; otherwise the later one in the timeline wins.
func (tl Timeline[S]) supersedes(j, i int) bool {
	a, b := tl[i], tl[j]
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return b.RecordedAt.After(a.RecordedAt)
	}
	if b.Interval.shorterThan(a.Interval) {
		return true
	}
	if a.Interval.shorterThan(b.Interval) {
		return false
	}
	return j > i
}

// Sorted returns a copy ordered by interval.
func (tl Timeline[S]) Sorted() Timeline[S] {
	out := slices.Clone(tl)
	slices.SortStableFunc(out, func(a, b Registration[S]) int {
		return a.Interval.Compare(b.Interval)
	})
	return out
}

// EndpointDate returns the end (or start, when end is false) of the first
// registration whose state satisfies pred, ignoring inclusivity flags.
func EndpointDate[S comparable](tl Timeline[S], pred func(S) bool, end bool) (Timestamp, bool) {
	for _, r := range tl.Sorted() {
		if !pred(r.State) {
			continue
		}
		if end {
			return r.Interval.End, true
		}
		return r.Interval.Start, true
	}
	return Timestamp{}, false
}
