package slots

import (
	"time"

	"zapisnik/internal/model"
)

// AvailableDates returns the bookable dates within the planning horizon,
// ascending. A date is bookable iff its weekday is marked working and it
// is not a holiday. Dates before today are never produced.
func AvailableDates(today time.Time, horizonDays int, schedule map[int]model.WorkDay, holidays map[string]struct{}) []time.Time {
	if horizonDays < 0 {
		horizonDays = 0
	}

	var dates []time.Time
	for i := 0; i < horizonDays; i++ {
		candidate := today.AddDate(0, 0, i)

		day, ok := schedule[MondayIndex(candidate.Weekday())]
		if !ok || !day.IsWorking {
			continue
		}
		if _, holiday := holidays[DateKey(candidate)]; holiday {
			continue
		}
		dates = append(dates, candidate)
	}
	return dates
}

// HolidaySet builds the lookup set AvailableDates expects.
func HolidaySet(holidays []model.Holiday) map[string]struct{} {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[DateKey(h.Date)] = struct{}{}
	}
	return set
}

// ScheduleByWeekday indexes weekly schedule rows by their weekday.
func ScheduleByWeekday(days []model.WorkDay) map[int]model.WorkDay {
	byDay := make(map[int]model.WorkDay, len(days))
	for _, d := range days {
		byDay[d.Weekday] = d
	}
	return byDay
}
