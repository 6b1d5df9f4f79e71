package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zapisnik/internal/model"
	"zapisnik/internal/slots"
)

// GetWorkDay returns the schedule entry for a weekday (Monday=0).
func (db *DB) GetWorkDay(ctx context.Context, weekday int) (*model.WorkDay, error) {
	var d model.WorkDay
	err := db.QueryRowContext(ctx,
		"SELECT id, weekday, start_time, end_time, is_working FROM work_schedule WHERE weekday = ?",
		weekday,
	).Scan(&d.ID, &d.Weekday, &d.StartTime, &d.EndTime, &d.IsWorking)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetWorkDayForDate returns the schedule entry effective for a date.
func (db *DB) GetWorkDayForDate(ctx context.Context, date time.Time) (*model.WorkDay, error) {
	return db.GetWorkDay(ctx, slots.MondayIndex(date.Weekday()))
}

// ListWorkSchedule returns all seven weekly entries ordered by weekday.
func (db *DB) ListWorkSchedule(ctx context.Context) ([]model.WorkDay, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, weekday, start_time, end_time, is_working FROM work_schedule ORDER BY weekday",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []model.WorkDay
	for rows.Next() {
		var d model.WorkDay
		if err := rows.Scan(&d.ID, &d.Weekday, &d.StartTime, &d.EndTime, &d.IsWorking); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// UpdateWorkDay replaces hours and the working flag for a weekday.
func (db *DB) UpdateWorkDay(ctx context.Context, d *model.WorkDay) error {
	if d.Weekday < 0 || d.Weekday > 6 {
		return fmt.Errorf("weekday out of range: %d", d.Weekday)
	}
	_, err := db.ExecContext(ctx,
		"UPDATE work_schedule SET start_time = ?, end_time = ?, is_working = ? WHERE weekday = ?",
		d.StartTime, d.EndTime, d.IsWorking, d.Weekday,
	)
	return err
}

// IsHoliday reports whether the date is marked as a holiday.
func (db *DB) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM holidays WHERE date = ?",
		slots.DateKey(date),
	).Scan(&count)
	return count > 0, err
}

// ListHolidays returns all holidays ordered by date.
func (db *DB) ListHolidays(ctx context.Context) ([]model.Holiday, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, date, reason FROM holidays ORDER BY date")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []model.Holiday
	for rows.Next() {
		var h model.Holiday
		var dateStr string
		var reason sql.NullString
		if err := rows.Scan(&h.ID, &dateStr, &reason); err != nil {
			return nil, err
		}
		h.Date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse holiday date %q: %w", dateStr, err)
		}
		h.Reason = reason.String
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// CreateHoliday marks a date as a holiday. The unique index rejects
// duplicates.
func (db *DB) CreateHoliday(ctx context.Context, h *model.Holiday) error {
	res, err := db.ExecContext(ctx,
		"INSERT INTO holidays (date, reason) VALUES (?, ?)",
		slots.DateKey(h.Date), h.Reason,
	)
	if err != nil {
		return err
	}
	h.ID, err = res.LastInsertId()
	return err
}

// DeleteHoliday removes a holiday by id.
func (db *DB) DeleteHoliday(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// GetSettings returns the settings singleton.
func (db *DB) GetSettings(ctx context.Context) (*model.Settings, error) {
	var s model.Settings
	err := db.QueryRowContext(ctx,
		"SELECT id, admin_chat_id, planning_horizon_days, timezone FROM settings WHERE id = 1",
	).Scan(&s.ID, &s.AdminChatID, &s.PlanningHorizonDays, &s.Timezone)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSettings replaces the mutable settings fields. The timezone must
// resolve and the horizon must stay within 1..365.
func (db *DB) UpdateSettings(ctx context.Context, s *model.Settings) error {
	if s.PlanningHorizonDays < 1 || s.PlanningHorizonDays > 365 {
		return fmt.Errorf("planning horizon out of range: %d", s.PlanningHorizonDays)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	_, err := db.ExecContext(ctx,
		"UPDATE settings SET planning_horizon_days = ?, timezone = ? WHERE id = 1",
		s.PlanningHorizonDays, s.Timezone,
	)
	return err
}
