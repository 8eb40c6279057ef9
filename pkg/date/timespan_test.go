package date

import (
	"testing"
	"time"
)

func timeDate(year int, month time.Month, day int, hour int, min int, seconds int) time.Time {
	return time.Date(year, month, day, hour, min, seconds, 0, time.UTC)
}

func TestTimespan_IntersectsWith(t *testing.T) {
	base := Timespan{Start: timeDate(2021, 3, 1, 10, 0, 0), End: timeDate(2021, 3, 1, 11, 0, 0)}

	var intersectionTests = []struct {
		name  string
		other Timespan
		out   bool
	}{
		{"overlapping end", Timespan{Start: timeDate(2021, 3, 1, 10, 30, 0), End: timeDate(2021, 3, 1, 11, 30, 0)}, true},
		{"overlapping start", Timespan{Start: timeDate(2021, 3, 1, 9, 30, 0), End: timeDate(2021, 3, 1, 10, 1, 0)}, true},
		{"contained", Timespan{Start: timeDate(2021, 3, 1, 10, 15, 0), End: timeDate(2021, 3, 1, 10, 45, 0)}, true},
		{"containing", Timespan{Start: timeDate(2021, 3, 1, 9, 0, 0), End: timeDate(2021, 3, 1, 12, 0, 0)}, true},
		{"touching end", Timespan{Start: timeDate(2021, 3, 1, 11, 0, 0), End: timeDate(2021, 3, 1, 12, 0, 0)}, false},
		{"touching start", Timespan{Start: timeDate(2021, 3, 1, 9, 0, 0), End: timeDate(2021, 3, 1, 10, 0, 0)}, false},
		{"other day", Timespan{Start: timeDate(2021, 3, 2, 10, 0, 0), End: timeDate(2021, 3, 2, 11, 0, 0)}, false},
	}

	for _, tt := range intersectionTests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.IntersectsWith(tt.other); got != tt.out {
				t.Errorf("IntersectsWith() = %v, want %v", got, tt.out)
			}
			if got := tt.other.IntersectsWith(base); got != tt.out {
				t.Errorf("IntersectsWith() reversed = %v, want %v", got, tt.out)
			}
		})
	}
}

func TestTimespan_Contains(t *testing.T) {
	day := Timespan{Start: timeDate(2021, 3, 1, 0, 0, 0), End: timeDate(2021, 3, 2, 0, 0, 0)}

	if !day.Contains(Timespan{Start: timeDate(2021, 3, 1, 0, 0, 0), End: timeDate(2021, 3, 1, 1, 0, 0)}) {
		t.Error("day should contain its first hour")
	}

	if day.Contains(Timespan{Start: timeDate(2021, 3, 1, 23, 30, 0), End: timeDate(2021, 3, 2, 0, 30, 0)}) {
		t.Error("day should not contain a timespan crossing midnight")
	}
}

func TestTimespan_Minutes(t *testing.T) {
	span := Timespan{Start: timeDate(2021, 3, 1, 10, 0, 0), End: timeDate(2021, 3, 1, 11, 30, 0)}
	if span.Minutes() != 90 {
		t.Errorf("Minutes() = %d, want 90", span.Minutes())
	}

	if !span.IsStartBeforeEnd() {
		t.Error("expected start before end")
	}
}

func TestStartOfDay(t *testing.T) {
	location := time.FixedZone("UTC+2", 2*60*60)
	got := StartOfDay(timeDate(2021, 3, 1, 23, 0, 0), location)
	want := time.Date(2021, 3, 2, 0, 0, 0, 0, location)

	if !got.Equal(want) {
		t.Errorf("StartOfDay() = %s, want %s", got, want)
	}
}
