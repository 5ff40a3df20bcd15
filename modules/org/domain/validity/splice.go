package validity

// Precondition is the caller's echo of the interval it last read for the
// registration being edited. A mismatch with the stored interval makes the
// edit stale. The check is client-side only; a concurrent writer can still
// slip in between the read and the store update.
type Precondition struct {
	Claimed Interval
}

func (p Precondition) check(current Interval) error {
	if !p.Claimed.SameBounds(current) {
		return &StaleEditError{Claimed: p.Claimed, Current: current}
	}
	return nil
}

// SpliceResult is the replacement set for one edited registration.
// Truncate keeps the old state up to the new start and is nil when the new
// interval supersedes the old one from its start.
type SpliceResult[S comparable] struct {
	Truncate *Registration[S] `json:"truncate"`
	Insert   Registration[S]  `json:"insert"`
}

// Fragments lists the registrations to submit, in time order.
func (r SpliceResult[S]) Fragments() []Registration[S] {
	if r.Truncate == nil {
		return []Registration[S]{r.Insert}
	}
	return []Registration[S]{*r.Truncate, r.Insert}
}

// Splice replaces old with state over next. next must start before old ends
// and must not end before old does: shortening validity is Terminate's job.
func Splice[S comparable](old Registration[S], pre Precondition, next Interval, state S) (SpliceResult[S], error) {
	if err := next.Validate(); err != nil {
		return SpliceResult[S]{}, err
	}
	if next.IsInstant() {
		return SpliceResult[S]{}, &InvalidRangeError{Start: next.Start, End: next.End, Reason: "an instant cannot be inserted"}
	}
	if err := pre.check(old.Interval); err != nil {
		return SpliceResult[S]{}, err
	}
	if !next.Start.Before(old.Interval.End) {
		return SpliceResult[S]{}, &InvalidRangeError{
			Start:  next.Start,
			End:    next.End,
			Reason: "new interval starts after the edited registration ends",
		}
	}
	if next.End.Before(old.Interval.End) {
		return SpliceResult[S]{}, &InvalidOperationError{Op: "edit", Reason: "narrowing validity requires termination"}
	}
	return splice(old, next, state), nil
}

// Terminate ends old at `at`: the old state is kept on [old.Start, at) and
// inactive holds from `at` onwards.
func Terminate[S comparable](old Registration[S], pre Precondition, at Timestamp, inactive S) (SpliceResult[S], error) {
	if err := pre.check(old.Interval); err != nil {
		return SpliceResult[S]{}, err
	}
	if !at.IsFinite() {
		return SpliceResult[S]{}, &InvalidRangeError{Start: at, End: PositiveInfinity(), Reason: "termination date must be finite"}
	}
	if at.Before(old.Interval.Start) || !at.Before(old.Interval.End) {
		return SpliceResult[S]{}, &InvalidRangeError{
			Start:  old.Interval.Start,
			End:    old.Interval.End,
			Reason: "termination date " + at.String() + " is outside the registration",
		}
	}
	next := Interval{Start: at, End: PositiveInfinity(), StartInclusive: true}
	return splice(old, next, inactive), nil
}

func splice[S comparable](old Registration[S], next Interval, state S) SpliceResult[S] {
	res := SpliceResult[S]{
		Insert: Registration[S]{Interval: next.halfOpen(), State: state},
	}
	if next.Start.After(old.Interval.Start) {
		res.Truncate = &Registration[S]{
			Interval: Interval{Start: old.Interval.Start, End: next.Start, StartInclusive: true},
			State:    old.State,
		}
	}
	return res
}
