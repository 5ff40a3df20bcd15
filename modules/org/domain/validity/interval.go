package validity

import "fmt"

// Interval is a validity range. Intervals built by this package are half-open,
// [Start, End), unless explicit flags are given; the flags are carried for store
// endpoint lookups but projection treats every interval as half-open.
type Interval struct {
	Start          Timestamp `json:"from"`
	End            Timestamp `json:"to"`
	StartInclusive bool      `json:"from_included"`
	EndInclusive   bool      `json:"to_included"`
}

func NewInterval(start, end Timestamp) (Interval, error) {
	return NewIntervalWithBounds(start, end, true, false)
}

func NewIntervalWithBounds(start, end Timestamp, startInclusive, endInclusive bool) (Interval, error) {
	iv := Interval{Start: start, End: end, StartInclusive: startInclusive, EndInclusive: endInclusive}
	if !start.Before(end) {
		return Interval{}, &InvalidRangeError{Start: start, End: end}
	}
	return iv, nil
}

func MustInterval(start, end Timestamp) Interval {
	iv, err := NewInterval(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

// ParseInterval parses both boundaries and builds a half-open interval.
func ParseInterval(from, to string) (Interval, error) {
	start, err := ParseTimestamp(from)
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseTimestamp(to)
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(start, end)
}

// Everything is (-infinity, infinity).
func Everything() Interval {
	return Interval{Start: NegativeInfinity(), End: PositiveInfinity(), StartInclusive: true}
}

// Instant is the closed single-point window [t, t] used for as-of lookups.
// It is the only interval whose start may equal its end.
func Instant(t Timestamp) Interval {
	return Interval{Start: t, End: t, StartInclusive: true, EndInclusive: true}
}

func (iv Interval) IsInstant() bool {
	return iv.Start.Equal(iv.End) && iv.StartInclusive && iv.EndInclusive && iv.Start.IsFinite()
}

func (iv Interval) Validate() error {
	if iv.IsInstant() || iv.Start.Before(iv.End) {
		return nil
	}
	return &InvalidRangeError{Start: iv.Start, End: iv.End}
}

func (iv Interval) halfOpen() Interval {
	iv.StartInclusive = true
	iv.EndInclusive = false
	return iv
}

// SameBounds compares start and end only, ignoring inclusivity flags.
func (iv Interval) SameBounds(other Interval) bool {
	return iv.Start.Equal(other.Start) && iv.End.Equal(other.End)
}

func (iv Interval) Equal(other Interval) bool {
	return iv.SameBounds(other) && iv.StartInclusive == other.StartInclusive && iv.EndInclusive == other.EndInclusive
}

func (iv Interval) ContainsPoint(t Timestamp) bool {
	afterStart := iv.Start.Before(t) || (iv.StartInclusive && iv.Start.Equal(t))
	beforeEnd := t.Before(iv.End) || (iv.EndInclusive && iv.End.Equal(t))
	return afterStart && beforeEnd
}

func startsBeforeEndOf(a, b Interval) bool {
	if a.Start.Before(b.End) {
		return true
	}
	return a.Start.Equal(b.End) && a.StartInclusive && b.EndInclusive
}

func (iv Interval) Overlaps(other Interval) bool {
	return startsBeforeEndOf(iv, other) && startsBeforeEndOf(other, iv)
}

// Compare orders by start, then start inclusivity (inclusive first), then end,
// then end inclusivity (exclusive first).
func (iv Interval) Compare(other Interval) int {
	if c := iv.Start.Compare(other.Start); c != 0 {
		return c
	}
	if iv.StartInclusive != other.StartInclusive {
		if iv.StartInclusive {
			return -1
		}
		return 1
	}
	if c := iv.End.Compare(other.End); c != 0 {
		return c
	}
	if iv.EndInclusive != other.EndInclusive {
		if iv.EndInclusive {
			return 1
		}
		return -1
	}
	return 0
}

// Intersect clips two intervals under the half-open convention.
func (iv Interval) Intersect(other Interval) (Interval, bool) {
	start := iv.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := iv.End
	if other.End.Before(end) {
		end = other.End
	}
	if !start.Before(end) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end, StartInclusive: true}, true
}

// shorterThan reports whether iv spans strictly less time than other.
// An unbounded interval is longer than any bounded one.
func (iv Interval) shorterThan(other Interval) bool {
	ivBounded := iv.Start.IsFinite() && iv.End.IsFinite()
	otherBounded := other.Start.IsFinite() && other.End.IsFinite()
	switch {
	case ivBounded && !otherBounded:
		return true
	case !ivBounded:
		return false
	}
	return iv.End.Time().Sub(iv.Start.Time()) < other.End.Time().Sub(other.Start.Time())
}

func (iv Interval) String() string {
	open, closing := "(", ")"
	if iv.StartInclusive {
		open = "["
	}
	if iv.EndInclusive {
		closing = "]"
	}
	return fmt.Sprintf("%s%s, %s%s", open, iv.Start, iv.End, closing)
}
