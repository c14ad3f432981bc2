// Package calendar provides day-granular working-time arithmetic for the scheduler.
package calendar

import (
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrOutOfRange is returned when date arithmetic leaves [MinDate, MaxDate].
var ErrOutOfRange = errors.New("date out of range")

// ErrNoWorkingDays is returned for a calendar whose every weekday is off.
var ErrNoWorkingDays = errors.New("calendar has no working days")

var (
	MinDate = time.Date(1, time.January, 2, 0, 0, 0, 0, time.UTC)
	MaxDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

const countCacheSize = 4096

// Calendar decides which days count as working time.
type Calendar interface {
	IsWorkingDay(t time.Time) bool
	WorkingDaysPerWeek() int
}

// Day returns the UTC midnight of the given civil date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Normalize truncates t to UTC midnight of its civil date.
func Normalize(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return Day(y, m, d)
}

// CheckRange reports ErrOutOfRange for dates outside [MinDate, MaxDate].
func CheckRange(t time.Time) error {
	if t.Before(MinDate) || t.After(MaxDate) {
		return fmt.Errorf("%s: %w", t.Format(time.DateOnly), ErrOutOfRange)
	}
	return nil
}

// AddDays moves t by n calendar days.
func AddDays(t time.Time, n int) (time.Time, error) {
	out := t.AddDate(0, 0, n)
	if err := CheckRange(out); err != nil {
		return time.Time{}, err
	}
	return out, nil
}

// Weekly is a calendar with a fixed weekend and an optional holiday list.
type Weekly struct {
	weekend  map[time.Weekday]bool
	holidays map[time.Time]bool
	counts   *lru.Cache[[2]int64, int]
}

// NewWeekly builds a weekly calendar. Holidays are normalised to whole days.
func NewWeekly(weekend []time.Weekday, holidays []time.Time) (*Weekly, error) {
	w := &Weekly{
		weekend:  make(map[time.Weekday]bool),
		holidays: make(map[time.Time]bool),
	}
	for _, d := range weekend {
		w.weekend[d] = true
	}
	if len(w.weekend) >= 7 {
		return nil, ErrNoWorkingDays
	}
	for _, h := range holidays {
		w.holidays[Normalize(h)] = true
	}
	cache, err := lru.New[[2]int64, int](countCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create count cache: %w", err)
	}
	w.counts = cache
	return w, nil
}

// AllDays returns a calendar on which every day is a working day.
func AllDays() *Weekly {
	w, _ := NewWeekly(nil, nil)
	return w
}

// Standard returns a Monday–Friday calendar without holidays.
func Standard() *Weekly {
	w, _ := NewWeekly([]time.Weekday{time.Saturday, time.Sunday}, nil)
	return w
}

// IsWorkingDay implements Calendar.
func (w *Weekly) IsWorkingDay(t time.Time) bool {
	t = Normalize(t)
	return !w.weekend[t.Weekday()] && !w.holidays[t]
}

// WorkingDaysPerWeek implements Calendar.
func (w *Weekly) WorkingDaysPerWeek() int {
	return 7 - len(w.weekend)
}

// WorkingDaysBetween counts working days in [start, end). Results are memoised.
func (w *Weekly) WorkingDaysBetween(start, end time.Time) int {
	key := [2]int64{start.Unix(), end.Unix()}
	if n, ok := w.counts.Get(key); ok {
		return n
	}
	n := countWorking(w, start, end)
	w.counts.Add(key, n)
	return n
}

func countWorking(cal Calendar, start, end time.Time) int {
	n := 0
	for t := start; t.Before(end); t = t.AddDate(0, 0, 1) {
		if cal.IsWorkingDay(t) {
			n++
		}
	}
	return n
}

// Between returns the signed number of working days in [start, end).
func Between(cal Calendar, start, end time.Time) int {
	start, end = Normalize(start), Normalize(end)
	if end.Before(start) {
		return -Between(cal, end, start)
	}
	if c, ok := cal.(interface {
		WorkingDaysBetween(start, end time.Time) int
	}); ok {
		return c.WorkingDaysBetween(start, end)
	}
	return countWorking(cal, start, end)
}

// Shift returns the exclusive end of a span of n working days beginning at start.
// A negative n shifts backwards.
func Shift(cal Calendar, start time.Time, n int) (time.Time, error) {
	if n < 0 {
		return ShiftBack(cal, start, -n)
	}
	t := Normalize(start)
	if err := CheckRange(t); err != nil {
		return time.Time{}, err
	}
	for counted := 0; counted < n; {
		if cal.IsWorkingDay(t) {
			counted++
		}
		next, err := AddDays(t, 1)
		if err != nil {
			return time.Time{}, err
		}
		t = next
	}
	return t, nil
}

// ShiftBack returns the start of a span of n working days ending (exclusively) at end.
func ShiftBack(cal Calendar, end time.Time, n int) (time.Time, error) {
	if n < 0 {
		return Shift(cal, end, -n)
	}
	t := Normalize(end)
	if err := CheckRange(t); err != nil {
		return time.Time{}, err
	}
	for counted := 0; counted < n; {
		prev, err := AddDays(t, -1)
		if err != nil {
			return time.Time{}, err
		}
		t = prev
		if cal.IsWorkingDay(t) {
			counted++
		}
	}
	return t, nil
}

// NextWorkingDay returns t itself when it is a working day, otherwise the first working day after it.
func NextWorkingDay(cal Calendar, t time.Time) (time.Time, error) {
	t = Normalize(t)
	for !cal.IsWorkingDay(t) {
		next, err := AddDays(t, 1)
		if err != nil {
			return time.Time{}, err
		}
		t = next
	}
	return t, nil
}

// Span is a maximal run of working or non-working days, [Start, End).
type Span struct {
	Start   time.Time
	End     time.Time
	Working bool
}

// Split cuts [start, end) into alternating working and non-working spans.
func Split(cal Calendar, start, end time.Time) []Span {
	start, end = Normalize(start), Normalize(end)
	if !start.Before(end) {
		return nil
	}
	var spans []Span
	cur := Span{Start: start, Working: cal.IsWorkingDay(start)}
	for t := start.AddDate(0, 0, 1); t.Before(end); t = t.AddDate(0, 0, 1) {
		if working := cal.IsWorkingDay(t); working != cur.Working {
			cur.End = t
			spans = append(spans, cur)
			cur = Span{Start: t, Working: working}
		}
	}
	cur.End = end
	return append(spans, cur)
}
