package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDayBit(t *testing.T) {
	if DayBit(time.Sunday) != 1 {
		t.Errorf("Sunday bit = %d, want 1", DayBit(time.Sunday))
	}
	if DayBit(time.Saturday) != 64 {
		t.Errorf("Saturday bit = %d, want 64", DayBit(time.Saturday))
	}
}

func TestHasDay(t *testing.T) {
	weekdays := DayBit(time.Monday) | DayBit(time.Tuesday) | DayBit(time.Wednesday) |
		DayBit(time.Thursday) | DayBit(time.Friday)

	if !HasDay(weekdays, time.Wednesday) {
		t.Error("Wednesday should be set")
	}
	if HasDay(weekdays, time.Sunday) {
		t.Error("Sunday should not be set")
	}
	if !HasDay(AllDays, time.Saturday) {
		t.Error("AllDays should include Saturday")
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name      string
		in        time.Time
		weekStart time.Weekday
		want      time.Time
	}{
		{"wednesday monday-start", date(2024, 6, 5), time.Monday, date(2024, 6, 3)},
		{"monday monday-start", date(2024, 6, 3), time.Monday, date(2024, 6, 3)},
		{"sunday monday-start", date(2024, 6, 9), time.Monday, date(2024, 6, 3)},
		{"wednesday sunday-start", date(2024, 6, 5), time.Sunday, date(2024, 6, 2)},
		{"sunday sunday-start", date(2024, 6, 2), time.Sunday, date(2024, 6, 2)},
		{"saturday saturday-start", date(2024, 6, 8), time.Saturday, date(2024, 6, 8)},
		{"year boundary", date(2025, 1, 1), time.Monday, date(2024, 12, 30)},
		{"leap february", date(2024, 3, 1), time.Monday, date(2024, 2, 26)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekStart(tt.in, tt.weekStart)
			if !got.Equal(tt.want) {
				t.Errorf("WeekStart(%s, %s) = %s, want %s",
					FormatDate(tt.in), tt.weekStart, FormatDate(got), FormatDate(tt.want))
			}
		})
	}
}

func TestWeekEnd(t *testing.T) {
	got := WeekEnd(date(2024, 6, 5), time.Monday)
	want := date(2024, 6, 9)
	if !got.Equal(want) {
		t.Errorf("WeekEnd = %s, want %s", FormatDate(got), FormatDate(want))
	}

	// Week spanning a year boundary.
	got = WeekEnd(date(2024, 12, 31), time.Monday)
	want = date(2025, 1, 5)
	if !got.Equal(want) {
		t.Errorf("WeekEnd across year = %s, want %s", FormatDate(got), FormatDate(want))
	}
}

func TestWeekContainsSevenDays(t *testing.T) {
	for ws := time.Sunday; ws <= time.Saturday; ws++ {
		start := WeekStart(date(2024, 6, 5), ws)
		end := WeekEnd(date(2024, 6, 5), ws)
		if days := int(end.Sub(start).Hours()/24) + 1; days != 7 {
			t.Errorf("week-start %s: %d days, want 7", ws, days)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	d, err := ParseDate("2024-06-03")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Weekday() != time.Monday {
		t.Errorf("2024-06-03 weekday = %s, want Monday", d.Weekday())
	}
	if FormatDate(d) != "2024-06-03" {
		t.Errorf("round trip = %q", FormatDate(d))
	}

	if _, err := ParseDate("not-a-date"); err == nil {
		t.Error("expected error for invalid date")
	}
}
