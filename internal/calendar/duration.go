package calendar

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is the granularity a Duration is expressed in.
type Unit int

const (
	UnitDay Unit = iota
	UnitWeek
)

// Duration is a length of working time, not a wall-clock interval.
type Duration struct {
	Length int  `json:"length"`
	Unit   Unit `json:"unit"`
}

// Days returns a duration of n working days.
func Days(n int) Duration { return Duration{Length: n, Unit: UnitDay} }

// Weeks returns a duration of n working weeks.
func Weeks(n int) Duration { return Duration{Length: n, Unit: UnitWeek} }

// IsZero reports whether the duration covers no working time.
func (d Duration) IsZero() bool { return d.Length == 0 }

func (d Duration) String() string {
	if d.Unit == UnitWeek {
		return fmt.Sprintf("%dw", d.Length)
	}
	return fmt.Sprintf("%dd", d.Length)
}

// WorkingDays converts d into a number of working days on cal.
func WorkingDays(cal Calendar, d Duration) int {
	if d.Unit == UnitWeek {
		return d.Length * cal.WorkingDaysPerWeek()
	}
	return d.Length
}

// Translate expresses d in working days on cal.
func Translate(cal Calendar, d Duration) Duration {
	return Days(WorkingDays(cal, d))
}

// ParseDuration accepts "5", "5d" or "2w".
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	unit := UnitDay
	switch {
	case strings.HasSuffix(s, "w"):
		unit = UnitWeek
		s = strings.TrimSuffix(s, "w")
	case strings.HasSuffix(s, "d"):
		s = strings.TrimSuffix(s, "d")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Duration{}, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return Duration{Length: n, Unit: unit}, nil
}
