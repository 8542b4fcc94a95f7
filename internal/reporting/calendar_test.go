package reporting

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestCalendar_CutoverFollowsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	cal := newCalendar(Options{Location: ny, CutoverHour: 4})

	t.Run("day start is 04:00 local", func(t *testing.T) {
		for _, d := range []struct {
			m   time.Month
			day int
		}{
			{time.March, 9},
			{time.March, 10}, // clocks spring forward at 02:00
			{time.November, 3}, // clocks fall back at 02:00
		} {
			start := cal.DayStart(2024, d.m, d.day)
			if start.Hour() != 4 || start.Minute() != 0 {
				t.Errorf("%s %d: expected 04:00 local, got %s", d.m, d.day, start)
			}
		}
	})

	t.Run("day lengths around transitions", func(t *testing.T) {
		spring := cal.DayStart(2024, time.March, 10).Sub(cal.DayStart(2024, time.March, 9))
		if spring != 23*time.Hour {
			t.Errorf("expected 23h business day, got %s", spring)
		}
		fall := cal.DayStart(2024, time.November, 3).Sub(cal.DayStart(2024, time.November, 2))
		if fall != 25*time.Hour {
			t.Errorf("expected 25h business day, got %s", fall)
		}
	})

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"after cutover on spring-forward day", time.Date(2024, time.March, 10, 4, 30, 0, 0, ny), "2024-03-10"},
		{"before cutover on spring-forward day", time.Date(2024, time.March, 10, 3, 30, 0, 0, ny), "2024-03-09"},
		{"after cutover on fall-back day", time.Date(2024, time.November, 3, 4, 0, 0, 0, ny), "2024-11-03"},
		{"before cutover on fall-back day", time.Date(2024, time.November, 3, 3, 59, 0, 0, ny), "2024-11-02"},
		{"just after midnight", time.Date(2024, time.January, 1, 0, 15, 0, 0, ny), "2023-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, m, d := cal.BusinessDay(tt.at)
			got := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
			if got != tt.want {
				t.Errorf("expected business day %s, got %s", tt.want, got)
			}
		})
	}
}
