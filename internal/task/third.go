package task

import "time"

// ThirdDateConstraint selects how a task's third date is enforced.
type ThirdDateConstraint int

const (
	ThirdNone ThirdDateConstraint = iota
	// ThirdEarliestBegin is a hard lower bound on the start. It takes part in
	// propagation like a dependency and may push dependency-driven dates later.
	ThirdEarliestBegin
	// ThirdDeadline never moves dates; a task ending after the third date is
	// flagged through DeadlineMissed.
	ThirdDeadline
)

// ThirdDateConstraintFromCode decodes a persisted value, falling back to ThirdNone.
func ThirdDateConstraintFromCode(code int) ThirdDateConstraint {
	if c := ThirdDateConstraint(code); c >= ThirdNone && c <= ThirdDeadline {
		return c
	}
	return ThirdNone
}

func (c ThirdDateConstraint) String() string {
	switch c {
	case ThirdEarliestBegin:
		return "earliest-begin"
	case ThirdDeadline:
		return "deadline"
	default:
		return "none"
	}
}

// SetThirdDate stages and commits a new third date.
func (t *Task) SetThirdDate(d time.Time) error {
	m := t.CreateMutator()
	m.SetThird(d)
	return m.Commit()
}

// SetThirdDateConstraint stages and commits a new third-date constraint kind.
func (t *Task) SetThirdDateConstraint(c ThirdDateConstraint) error {
	m := t.CreateMutator()
	m.SetThirdConstraint(c)
	return m.Commit()
}

// ApplyThirdDateConstraint re-runs the engine for t so that its third date is
// enforced against the current dependency-driven dates.
func (t *Task) ApplyThirdDateConstraint() error {
	return t.CreateMutator().Commit()
}

// thirdBound returns the lower bound an earliest-begin third date imposes.
func (s *state) thirdBound() (time.Time, bool) {
	if s.thirdKind != ThirdEarliestBegin || s.third.IsZero() {
		return time.Time{}, false
	}
	return s.third, true
}

// missesDeadline reports whether the task ends after its inclusive deadline.
func (s *state) missesDeadline() bool {
	if s.thirdKind != ThirdDeadline || s.third.IsZero() {
		return false
	}
	return s.displayEnd().After(s.third)
}
