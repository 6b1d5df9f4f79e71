package slots

import (
	"testing"
	"time"

	"zapisnik/internal/model"
)

func workWeek(startTime, endTime string, workingDays ...int) map[int]model.WorkDay {
	schedule := make(map[int]model.WorkDay, 7)
	for wd := 0; wd < 7; wd++ {
		schedule[wd] = model.WorkDay{Weekday: wd, StartTime: "00:00", EndTime: "00:00"}
	}
	for _, wd := range workingDays {
		schedule[wd] = model.WorkDay{Weekday: wd, StartTime: startTime, EndTime: endTime, IsWorking: true}
	}
	return schedule
}

func TestMondayIndex(t *testing.T) {
	cases := map[time.Weekday]int{
		time.Monday:    0,
		time.Tuesday:   1,
		time.Wednesday: 2,
		time.Thursday:  3,
		time.Friday:    4,
		time.Saturday:  5,
		time.Sunday:    6,
	}
	for wd, want := range cases {
		if got := MondayIndex(wd); got != want {
			t.Errorf("MondayIndex(%v) = %d, want %d", wd, got, want)
		}
	}
}

func TestAvailableDatesSkipsNonWorkingAndHolidays(t *testing.T) {
	// Saturday start, Sunday non-working, Wednesday holiday, 7-day horizon.
	today := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC) // Saturday
	schedule := workWeek("09:00", "18:00", 0, 1, 2, 3, 4, 5)
	holidays := map[string]struct{}{
		"2026-03-11": {}, // the following Wednesday
	}

	dates := AvailableDates(today, 7, schedule, holidays)

	want := []string{
		"2026-03-07", // Sat
		"2026-03-09", // Mon
		"2026-03-10", // Tue
		"2026-03-12", // Thu
		"2026-03-13", // Fri
	}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d: %v", len(want), len(dates), dates)
	}
	for i, d := range dates {
		if DateKey(d) != want[i] {
			t.Errorf("date %d: expected %s, got %s", i, want[i], DateKey(d))
		}
	}
}

func TestAvailableDatesNeverInPast(t *testing.T) {
	today := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	schedule := workWeek("09:00", "18:00", 0, 1, 2, 3, 4, 5, 6)

	dates := AvailableDates(today, 30, schedule, nil)
	if len(dates) != 30 {
		t.Fatalf("expected 30 dates, got %d", len(dates))
	}
	for _, d := range dates {
		if d.Before(today) {
			t.Errorf("date %s is before today", DateKey(d))
		}
	}
}

func TestAvailableDatesAscending(t *testing.T) {
	today := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	schedule := workWeek("09:00", "18:00", 0, 2, 4)

	dates := AvailableDates(today, 21, schedule, nil)
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			t.Errorf("dates not ascending at index %d", i)
		}
	}
}

func TestAvailableTimesFullDay(t *testing.T) {
	// Monday 09:00-18:00, 60-minute service, no appointments:
	// slots 09:00, 09:30, ..., 17:00.
	loc := time.UTC
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, loc) // Monday
	day := model.WorkDay{Weekday: 0, StartTime: "09:00", EndTime: "18:00", IsWorking: true}
	now := date.Add(-12 * time.Hour) // well before the work day

	times, err := AvailableTimes(day, nil, 60, date, loc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(times) != 17 {
		t.Fatalf("expected 17 slots, got %d", len(times))
	}
	if FormatClock(times[0]) != "09:00" {
		t.Errorf("first slot: expected 09:00, got %s", FormatClock(times[0]))
	}
	if FormatClock(times[len(times)-1]) != "17:00" {
		t.Errorf("last slot: expected 17:00, got %s", FormatClock(times[len(times)-1]))
	}
}

func TestAvailableTimesExcludesOverlaps(t *testing.T) {
	loc := time.UTC
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	day := model.WorkDay{Weekday: 0, StartTime: "09:00", EndTime: "18:00", IsWorking: true}
	now := date.Add(-12 * time.Hour)

	appts := []model.Appointment{
		{
			StartTime: time.Date(2026, 3, 9, 10, 0, 0, 0, loc),
			EndTime:   time.Date(2026, 3, 9, 11, 0, 0, 0, loc),
			Status:    model.StatusConfirmed,
		},
	}

	times, err := AvailableTimes(day, appts, 60, date, loc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ContainsClock(times, "09:30") {
		t.Error("09:30 overlaps 10:00-11:00 and must be excluded")
	}
	if ContainsClock(times, "10:00") || ContainsClock(times, "10:30") {
		t.Error("slots inside the busy interval must be excluded")
	}
	if !ContainsClock(times, "09:00") {
		t.Error("09:00 ends exactly at 10:00 and must remain available")
	}
	if !ContainsClock(times, "11:00") {
		t.Error("11:00 starts exactly at the busy end and must remain available")
	}
}

func TestAvailableTimesIgnoresNonConfirmed(t *testing.T) {
	loc := time.UTC
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	day := model.WorkDay{Weekday: 0, StartTime: "09:00", EndTime: "12:00", IsWorking: true}
	now := date.Add(-12 * time.Hour)

	appts := []model.Appointment{
		{
			StartTime: time.Date(2026, 3, 9, 9, 0, 0, 0, loc),
			EndTime:   time.Date(2026, 3, 9, 10, 0, 0, 0, loc),
			Status:    model.StatusCancelled,
		},
	}

	times, err := AvailableTimes(day, appts, 60, date, loc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ContainsClock(times, "09:00") {
		t.Error("cancelled appointments must not block slots")
	}
}

func TestAvailableTimesTodayRoundsUp(t *testing.T) {
	loc := time.UTC
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	day := model.WorkDay{Weekday: 0, StartTime: "09:00", EndTime: "18:00", IsWorking: true}

	cases := []struct {
		now       time.Time
		firstSlot string
	}{
		{time.Date(2026, 3, 9, 10, 10, 0, 0, loc), "10:30"},
		{time.Date(2026, 3, 9, 10, 31, 0, 0, loc), "11:00"},
		{time.Date(2026, 3, 9, 10, 30, 0, 0, loc), "10:30"},
		{time.Date(2026, 3, 9, 11, 0, 0, 0, loc), "11:00"},
		{time.Date(2026, 3, 9, 8, 0, 0, 0, loc), "09:00"}, // before opening
	}

	for _, tc := range cases {
		times, err := AvailableTimes(day, nil, 30, date, loc, tc.now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(times) == 0 {
			t.Fatalf("now=%s: expected slots", tc.now.Format("15:04"))
		}
		if got := FormatClock(times[0]); got != tc.firstSlot {
			t.Errorf("now=%s: first slot %s, want %s", tc.now.Format("15:04"), got, tc.firstSlot)
		}
	}
}

func TestAvailableTimesNonWorkingDayEmpty(t *testing.T) {
	loc := time.UTC
	date := time.Date(2026, 3, 8, 0, 0, 0, 0, loc)
	day := model.WorkDay{Weekday: 6, StartTime: "00:00", EndTime: "00:00"}

	times, err := AvailableTimes(day, nil, 30, date, loc, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(times) != 0 {
		t.Errorf("expected no slots on a non-working day, got %d", len(times))
	}
}

func TestAvailableTimesDurationMustFit(t *testing.T) {
	loc := time.UTC
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	day := model.WorkDay{Weekday: 0, StartTime: "09:00", EndTime: "10:00", IsWorking: true}
	now := date.Add(-12 * time.Hour)

	times, err := AvailableTimes(day, nil, 90, date, loc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(times) != 0 {
		t.Errorf("90-minute service cannot fit into a one-hour day, got %d slots", len(times))
	}
}

func TestAvailableTimesIdempotent(t *testing.T) {
	loc := time.UTC
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	day := model.WorkDay{Weekday: 0, StartTime: "09:00", EndTime: "18:00", IsWorking: true}
	now := date.Add(-12 * time.Hour)
	appts := []model.Appointment{
		{
			StartTime: time.Date(2026, 3, 9, 12, 0, 0, 0, loc),
			EndTime:   time.Date(2026, 3, 9, 13, 30, 0, 0, loc),
			Status:    model.StatusConfirmed,
		},
	}

	first, err := AvailableTimes(day, appts, 45, date, loc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := AvailableTimes(day, appts, 45, date, loc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("results differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Errorf("slot %d differs between runs", i)
		}
	}
}

func TestAvailableTimesConvertsStoredUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	day := model.WorkDay{Weekday: 0, StartTime: "09:00", EndTime: "18:00", IsWorking: true}
	now := date.Add(-12 * time.Hour)

	// 10:00-11:00 local stored as 07:00-08:00 UTC.
	appts := []model.Appointment{
		{
			StartTime: time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC),
			Status:    model.StatusConfirmed,
		},
	}

	times, err := AvailableTimes(day, appts, 60, date, loc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ContainsClock(times, "10:00") {
		t.Error("UTC-stored appointment must block the 10:00 local slot")
	}
	if !ContainsClock(times, "11:00") {
		t.Error("11:00 local must remain available")
	}
}

func TestParseClock(t *testing.T) {
	if h, m, err := ParseClock("09:30"); err != nil || h != 9 || m != 30 {
		t.Errorf("ParseClock(09:30) = %d:%d, %v", h, m, err)
	}
	for _, bad := range []string{"9", "24:00", "12:60", "ab:cd", ""} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q) should fail", bad)
		}
	}
}
