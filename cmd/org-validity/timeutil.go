package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
)

func parseDateUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t.UTC(), nil
}

// parseRange reads a --from/--to pair; an empty bound is unbounded on that side.
func parseRange(from, to string) (validity.Interval, error) {
	if strings.TrimSpace(from) == "" {
		from = "-infinity"
	}
	if strings.TrimSpace(to) == "" {
		to = "infinity"
	}
	iv, err := validity.ParseInterval(from, to)
	if err != nil {
		return validity.Interval{}, withCode(exitUsage, err)
	}
	return iv, nil
}
