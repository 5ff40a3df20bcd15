package validity

import (
	"strings"
	"time"
)

const (
	negativeInfinityText = "-infinity"
	positiveInfinityText = "infinity"
)

// Timestamp is a validity boundary: a UTC instant or one of the two infinity sentinels.
// The zero value is the zero time.Time (0001-01-01 UTC); use At, NegativeInfinity or PositiveInfinity.
type Timestamp struct {
	t   time.Time
	inf int8
}

func At(t time.Time) Timestamp {
	return Timestamp{t: t.UTC()}
}

func Date(year int, month time.Month, day int) Timestamp {
	return Timestamp{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func NegativeInfinity() Timestamp { return Timestamp{inf: -1} }

func PositiveInfinity() Timestamp { return Timestamp{inf: 1} }

func (ts Timestamp) IsNegativeInfinity() bool { return ts.inf < 0 }

func (ts Timestamp) IsPositiveInfinity() bool { return ts.inf > 0 }

func (ts Timestamp) IsFinite() bool { return ts.inf == 0 }

// Time returns the finite instant. It is the zero time.Time for either infinity.
func (ts Timestamp) Time() time.Time {
	if !ts.IsFinite() {
		return time.Time{}
	}
	return ts.t
}

func (ts Timestamp) Compare(other Timestamp) int {
	switch {
	case ts.inf < other.inf:
		return -1
	case ts.inf > other.inf:
		return 1
	case ts.inf != 0:
		return 0
	}
	return ts.t.Compare(other.t)
}

func (ts Timestamp) Before(other Timestamp) bool { return ts.Compare(other) < 0 }

func (ts Timestamp) After(other Timestamp) bool { return ts.Compare(other) > 0 }

func (ts Timestamp) Equal(other Timestamp) bool { return ts.Compare(other) == 0 }

func (ts Timestamp) String() string {
	switch {
	case ts.IsNegativeInfinity():
		return negativeInfinityText
	case ts.IsPositiveInfinity():
		return positiveInfinityText
	}
	return ts.t.Format(time.RFC3339Nano)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07",
	"2006-01-02 15:04:05.999999Z07",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts ISO-8601 timestamps, bare dates (taken as UTC midnight)
// and the store sentinels "-infinity" and "infinity".
func ParseTimestamp(s string) (Timestamp, error) {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case negativeInfinityText:
		return NegativeInfinity(), nil
	case positiveInfinityText, "+infinity":
		return PositiveInfinity(), nil
	case "":
		return Timestamp{}, &InvalidBoundaryError{Value: s, Reason: "boundary is required"}
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, v, time.UTC)
		if err == nil {
			return At(t), nil
		}
		lastErr = err
	}
	return Timestamp{}, &InvalidBoundaryError{Value: s, Reason: "expected ISO-8601 or ±infinity", Cause: lastErr}
}

func MustParseTimestamp(s string) Timestamp {
	ts, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

func (ts Timestamp) MarshalText() ([]byte, error) {
	return []byte(ts.String()), nil
}

func (ts *Timestamp) UnmarshalText(b []byte) error {
	parsed, err := ParseTimestamp(string(b))
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
