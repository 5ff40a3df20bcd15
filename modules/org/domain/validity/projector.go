package validity

import "slices"

// Project normalizes a timeline over window into ordered, non-overlapping,
// maximal effects. Sub-ranges no registration covers produce no effect.
//
// Where registrations overlap, the one that supersedes the others holds the
// state for the overlapping part (see Timeline.supersedes).
func Project[S comparable](tl Timeline[S], window Interval) []Effect[S] {
	if window.Validate() != nil {
		return nil
	}
	if window.IsInstant() {
		return projectInstant(tl, window)
	}

	type clip struct {
		iv  Interval
		reg int
	}
	clips := make([]clip, 0, len(tl))
	cuts := make([]Timestamp, 0, 2*len(tl))
	for i, r := range tl {
		c, ok := r.Interval.halfOpen().Intersect(window.halfOpen())
		if !ok {
			continue
		}
		clips = append(clips, clip{iv: c, reg: i})
		cuts = append(cuts, c.Start, c.End)
	}
	if len(clips) == 0 {
		return nil
	}

	slices.SortFunc(cuts, Timestamp.Compare)
	cuts = slices.CompactFunc(cuts, Timestamp.Equal)

	var out []Effect[S]
	for k := 0; k+1 < len(cuts); k++ {
		seg := Interval{Start: cuts[k], End: cuts[k+1], StartInclusive: true}

		winner := -1
		for _, c := range clips {
			if c.iv.Start.After(seg.Start) || c.iv.End.Before(seg.End) {
				continue
			}
			if winner < 0 || tl.supersedes(c.reg, winner) {
				winner = c.reg
			}
		}
		if winner < 0 {
			continue
		}

		state := tl[winner].State
		if n := len(out); n > 0 && out[n-1].State == state && out[n-1].Interval.End.Equal(seg.Start) {
			out[n-1].Interval.End = seg.End
			continue
		}
		out = append(out, Effect[S]{Interval: seg, State: state})
	}
	return out
}

func projectInstant[S comparable](tl Timeline[S], window Interval) []Effect[S] {
	winner := -1
	for i, r := range tl {
		if !r.Interval.halfOpen().ContainsPoint(window.Start) {
			continue
		}
		if winner < 0 || tl.supersedes(i, winner) {
			winner = i
		}
	}
	if winner < 0 {
		return nil
	}
	return []Effect[S]{{Interval: window, State: tl[winner].State}}
}

// StateAt returns the projected state at a single instant.
func StateAt[S comparable](tl Timeline[S], t Timestamp) (S, bool) {
	effects := Project(tl, Instant(t))
	if len(effects) == 0 {
		var zero S
		return zero, false
	}
	return effects[0].State, true
}
