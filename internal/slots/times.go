package slots

import (
	"fmt"
	"time"

	"zapisnik/internal/model"
)

// Grid spacing between candidate slot starts. Slot starts are always
// aligned to this grid regardless of service duration; a duration that
// is not a multiple of it simply produces an off-grid end time.
const slotStep = 30 * time.Minute

// AvailableTimes returns the bookable slot start instants for a date,
// ascending, localized to loc.
//
// day must be the schedule entry for date's weekday; callers are expected
// to have excluded holidays and non-working days via AvailableDates, but
// a non-working day still yields an empty result. appts are the
// already-booked appointments of that date, stored in UTC; only those
// with status confirmed block slots. When date is today and now is past
// the work start, the scan begins at now rounded up to the half-hour
// grid, so past-dated slots are never offered.
func AvailableTimes(day model.WorkDay, appts []model.Appointment, durationMin int, date time.Time, loc *time.Location, now time.Time) ([]time.Time, error) {
	if !day.IsWorking {
		return nil, nil
	}
	if durationMin <= 0 {
		return nil, fmt.Errorf("service duration must be positive, got %d", durationMin)
	}

	workStart, err := ClockOnDate(date, day.StartTime, loc)
	if err != nil {
		return nil, fmt.Errorf("parse work start: %w", err)
	}
	workEnd, err := ClockOnDate(date, day.EndTime, loc)
	if err != nil {
		return nil, fmt.Errorf("parse work end: %w", err)
	}

	cursor := workStart
	localNow := now.In(loc)
	if SameDate(date, localNow, loc) && localNow.After(workStart) {
		cursor = nextHalfHour(localNow)
	}

	duration := time.Duration(durationMin) * time.Minute
	var times []time.Time
	for ; !cursor.Add(duration).After(workEnd); cursor = cursor.Add(slotStep) {
		if slotFree(cursor, cursor.Add(duration), appts, loc) {
			times = append(times, cursor)
		}
	}
	return times, nil
}

func slotFree(start, end time.Time, appts []model.Appointment, loc *time.Location) bool {
	for i := range appts {
		a := &appts[i]
		if a.Status != model.StatusConfirmed {
			continue
		}
		// Stored instants are UTC; compare in local time of the day.
		busy := model.Appointment{StartTime: a.StartTime.In(loc), EndTime: a.EndTime.In(loc), Status: a.Status}
		if busy.Overlaps(start, end) {
			return false
		}
	}
	return true
}

// ContainsClock reports whether the "HH:MM" label matches one of the
// computed slot starts. Used to validate picked callback values.
func ContainsClock(times []time.Time, clock string) bool {
	for _, t := range times {
		if FormatClock(t) == clock {
			return true
		}
	}
	return false
}
