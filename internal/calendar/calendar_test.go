package calendar

import (
	"errors"
	"testing"
	"time"
)

// 2024-01-01 is a Monday.
var monday = Day(2024, time.January, 1)

func TestShiftSkipsWeekend(t *testing.T) {
	cal := Standard()

	end, err := Shift(cal, monday, 5)
	if err != nil {
		t.Fatalf("Shift failed: %v", err)
	}
	if want := Day(2024, time.January, 6); !end.Equal(want) {
		t.Errorf("Expected end %s, got %s", want.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	end, err = Shift(cal, monday, 6)
	if err != nil {
		t.Fatalf("Shift failed: %v", err)
	}
	if want := Day(2024, time.January, 9); !end.Equal(want) {
		t.Errorf("Expected end %s, got %s", want.Format(time.DateOnly), end.Format(time.DateOnly))
	}
}

func TestShiftBackInvertsShift(t *testing.T) {
	cal := Standard()
	for n := 0; n < 15; n++ {
		end, err := Shift(cal, monday, n)
		if err != nil {
			t.Fatalf("Shift(%d) failed: %v", n, err)
		}
		start, err := ShiftBack(cal, end, n)
		if err != nil {
			t.Fatalf("ShiftBack(%d) failed: %v", n, err)
		}
		if !start.Equal(monday) {
			t.Errorf("n=%d: expected %s, got %s", n, monday.Format(time.DateOnly), start.Format(time.DateOnly))
		}
	}
}

func TestBetween(t *testing.T) {
	cal := Standard()
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"same day", monday, monday, 0},
		{"one week", monday, monday.AddDate(0, 0, 7), 5},
		{"weekend only", Day(2024, time.January, 6), Day(2024, time.January, 8), 0},
		{"reversed", monday.AddDate(0, 0, 7), monday, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Between(cal, tt.start, tt.end); got != tt.want {
				t.Errorf("Between = %d, want %d", got, tt.want)
			}
			// second call is served from the cache
			if got := Between(cal, tt.start, tt.end); got != tt.want {
				t.Errorf("cached Between = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHolidays(t *testing.T) {
	cal, err := NewWeekly([]time.Weekday{time.Saturday, time.Sunday}, []time.Time{monday.Add(13 * time.Hour)})
	if err != nil {
		t.Fatalf("NewWeekly failed: %v", err)
	}
	if cal.IsWorkingDay(monday) {
		t.Error("Expected holiday to be non-working")
	}
	next, err := NextWorkingDay(cal, monday)
	if err != nil {
		t.Fatalf("NextWorkingDay failed: %v", err)
	}
	if want := monday.AddDate(0, 0, 1); !next.Equal(want) {
		t.Errorf("Expected %s, got %s", want.Format(time.DateOnly), next.Format(time.DateOnly))
	}
}

func TestNoWorkingDays(t *testing.T) {
	all := []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
	if _, err := NewWeekly(all, nil); !errors.Is(err, ErrNoWorkingDays) {
		t.Errorf("Expected ErrNoWorkingDays, got %v", err)
	}
}

func TestSplit(t *testing.T) {
	cal := Standard()
	spans := Split(cal, monday, monday.AddDate(0, 0, 10))
	if len(spans) != 3 {
		t.Fatalf("Expected 3 spans, got %d", len(spans))
	}
	if !spans[0].Working || spans[1].Working || !spans[2].Working {
		t.Errorf("Unexpected working pattern: %+v", spans)
	}
	if !spans[1].Start.Equal(Day(2024, time.January, 6)) || !spans[1].End.Equal(Day(2024, time.January, 8)) {
		t.Errorf("Unexpected weekend span: %+v", spans[1])
	}
	if got := Split(cal, monday, monday); got != nil {
		t.Errorf("Expected no spans for empty range, got %+v", got)
	}
}

func TestShiftOutOfRange(t *testing.T) {
	_, err := Shift(AllDays(), MaxDate.AddDate(0, 0, -1), 5)
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
}

func TestDurations(t *testing.T) {
	if got := WorkingDays(Standard(), Weeks(2)); got != 10 {
		t.Errorf("Expected 10 working days, got %d", got)
	}
	if got := WorkingDays(AllDays(), Weeks(1)); got != 7 {
		t.Errorf("Expected 7 working days, got %d", got)
	}
	d, err := ParseDuration("3w")
	if err != nil {
		t.Fatalf("ParseDuration failed: %v", err)
	}
	if d != Weeks(3) {
		t.Errorf("Expected 3w, got %s", d)
	}
	if _, err := ParseDuration("soon"); err == nil {
		t.Error("Expected error for invalid duration")
	}
}
