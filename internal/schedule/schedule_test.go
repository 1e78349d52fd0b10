package schedule

import (
	"encoding/json"
	"testing"
	"time"
)

var ict = time.FixedZone("ICT", 7*3600)

// --- rendering ---

func TestScheduleString(t *testing.T) {
	tests := []struct {
		name string
		s    Schedule
		want string
	}{
		{"daily", Schedule{Days: everyDay, At: "09:00"}, "Daily 09:00"},
		{"interval", Schedule{Every: 3, At: "21:00"}, "Every 3 days 21:00"},
		{"single day", Schedule{Days: 1 << uint(time.Friday), At: "15:00"}, "Friday 15:00"},
		{
			"days render monday first",
			Schedule{Days: 1<<uint(time.Sunday) | 1<<uint(time.Tuesday) | 1<<uint(time.Thursday), At: "20:00"},
			"Tuesday,Thursday,Sunday 20:00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- matching ---

func TestMatchesDaily(t *testing.T) {
	s := Schedule{Days: everyDay, At: "09:00"}
	day := time.Date(2026, 2, 16, 9, 5, 0, 0, ict)
	for i := 0; i < 7; i++ {
		if !s.Matches(day.AddDate(0, 0, i)) {
			t.Errorf("daily schedule missed %s", day.AddDate(0, 0, i).Format("2006-01-02"))
		}
	}
}

func TestMatchesWeekdays(t *testing.T) {
	s := Schedule{Days: 1<<uint(time.Tuesday) | 1<<uint(time.Thursday), At: "20:00"}
	monday := time.Date(2026, 2, 16, 20, 0, 0, 0, ict)
	want := map[int]bool{1: true, 3: true}
	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i)
		if got := s.Matches(day); got != want[i] {
			t.Errorf("Matches(%s %s) = %v, want %v", day.Weekday(), day.Format("2006-01-02"), got, want[i])
		}
	}
}

func TestMatchesInterval(t *testing.T) {
	s := Schedule{Every: 3, At: "09:00"}
	start := time.Date(2026, 2, 16, 9, 0, 0, 0, ict)
	var hits []int
	for i := 0; i < 9; i++ {
		if s.Matches(start.AddDate(0, 0, i)) {
			hits = append(hits, i)
		}
	}
	if len(hits) != 3 {
		t.Fatalf("9-day window hit %d times, want 3 (offsets %v)", len(hits), hits)
	}
	if hits[1]-hits[0] != 3 || hits[2]-hits[1] != 3 {
		t.Errorf("hits %v are not 3 days apart", hits)
	}
}

// --- day index ---

func TestDayIndex(t *testing.T) {
	day := time.Date(2026, 2, 16, 0, 0, 0, 0, ict)
	if got, want := DayIndex(day.AddDate(0, 0, 1)), DayIndex(day)+1; got != want {
		t.Errorf("next day index = %d, want %d", got, want)
	}
	if DayIndex(day) != DayIndex(day.Add(23*time.Hour+59*time.Minute)) {
		t.Error("day index changed within one calendar day")
	}

	// The index follows the wall-clock date, so the same instant can land
	// on different days in different zones.
	instant := time.Date(2026, 2, 16, 17, 30, 0, 0, time.UTC)
	if got, want := DayIndex(instant.In(ict)), DayIndex(instant)+1; got != want {
		t.Errorf("Bangkok index = %d, want UTC index + 1 = %d", got, want)
	}
}

// --- JSON ---

func TestScheduleJSON(t *testing.T) {
	s := Schedule{Days: 1<<uint(time.Tuesday) | 1<<uint(time.Thursday), At: "20:00"}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"Tuesday,Thursday 20:00"` {
		t.Errorf("marshal = %s", b)
	}
	var back Schedule
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != s {
		t.Errorf("round trip = %+v, want %+v", back, s)
	}
}
