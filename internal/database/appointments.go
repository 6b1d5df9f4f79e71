package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zapisnik/internal/model"
)

// ErrSlotTaken is returned when the commit-time overlap re-check finds a
// conflicting confirmed appointment. Slot computation and insertion are
// separate steps, so this guard is what prevents two clients from
// completing overlapping bookings.
var ErrSlotTaken = errors.New("slot already booked")

// ReminderHorizon names the reminder look-ahead marker columns.
type ReminderHorizon string

const (
	Horizon24h ReminderHorizon = "24h"
	Horizon2h  ReminderHorizon = "2h"
)

func (h ReminderHorizon) column() string {
	if h == Horizon2h {
		return "reminded_2h"
	}
	return "reminded_24h"
}

// CreateAppointmentIfFree inserts the appointment only if no confirmed
// appointment overlaps its [start, end) interval. The check and the
// insert run inside one immediate transaction so concurrent bookings of
// the same slot cannot both succeed.
func (db *DB) CreateAppointmentIfFree(ctx context.Context, a *model.Appointment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var conflicts int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE status = ? AND start_time < ? AND end_time > ?`,
		model.StatusConfirmed, a.EndTime.UTC(), a.StartTime.UTC(),
	).Scan(&conflicts)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if conflicts > 0 {
		return ErrSlotTaken
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO appointments (reference, client_id, service_id, start_time, end_time, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Reference, a.ClientID, a.ServiceID, a.StartTime.UTC(), a.EndTime.UTC(), a.Status,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	return tx.Commit()
}

// GetAppointment returns an appointment by id with its service name,
// nil if not found.
func (db *DB) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	row := db.QueryRowContext(ctx, `
		SELECT a.id, a.reference, a.client_id, a.service_id, s.name,
		       a.start_time, a.end_time, a.status, a.google_event_id,
		       a.reminded_24h, a.reminded_2h, a.created_at
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.id = ?`,
		id,
	)
	a, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// ListAppointmentsBetween returns appointments whose start falls in
// [start, end), ascending. Pass UTC instants.
func (db *DB) ListAppointmentsBetween(ctx context.Context, start, end time.Time) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT a.id, a.reference, a.client_id, a.service_id, s.name,
		       a.start_time, a.end_time, a.status, a.google_event_id,
		       a.reminded_24h, a.reminded_2h, a.created_at
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.start_time >= ? AND a.start_time < ?
		ORDER BY a.start_time`,
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListUpcomingByClient returns the client's confirmed future
// appointments, ascending by start.
func (db *DB) ListUpcomingByClient(ctx context.Context, clientID int64, now time.Time) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT a.id, a.reference, a.client_id, a.service_id, s.name,
		       a.start_time, a.end_time, a.status, a.google_event_id,
		       a.reminded_24h, a.reminded_2h, a.created_at
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.client_id = ? AND a.status = ? AND a.start_time >= ?
		ORDER BY a.start_time`,
		clientID, model.StatusConfirmed, now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// UpdateAppointmentStatus sets the status of one appointment.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, id int64, status string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE appointments SET status = ? WHERE id = ?",
		status, id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetGoogleEventID records the external calendar event created for an
// appointment.
func (db *DB) SetGoogleEventID(ctx context.Context, id int64, eventID string) error {
	_, err := db.ExecContext(ctx,
		"UPDATE appointments SET google_event_id = ? WHERE id = ?",
		eventID, id,
	)
	return err
}

// ListDueReminders returns confirmed appointments whose start falls in
// [windowStart, windowEnd] and that have not yet been reminded at the
// given horizon.
func (db *DB) ListDueReminders(ctx context.Context, windowStart, windowEnd time.Time, horizon ReminderHorizon) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT a.id, a.reference, a.client_id, a.service_id, s.name,
		       a.start_time, a.end_time, a.status, a.google_event_id,
		       a.reminded_24h, a.reminded_2h, a.created_at
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.status = ?
		  AND a.start_time >= ? AND a.start_time <= ?
		  AND a.`+horizon.column()+` = 0
		ORDER BY a.start_time`,
		model.StatusConfirmed, windowStart.UTC(), windowEnd.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// MarkReminded records that the horizon reminder went out, so adjacent
// sweep runs do not repeat it.
func (db *DB) MarkReminded(ctx context.Context, id int64, horizon ReminderHorizon) error {
	_, err := db.ExecContext(ctx,
		"UPDATE appointments SET "+horizon.column()+" = 1 WHERE id = ?",
		id,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var a model.Appointment
	var googleEventID sql.NullString
	err := row.Scan(
		&a.ID, &a.Reference, &a.ClientID, &a.ServiceID, &a.ServiceName,
		&a.StartTime, &a.EndTime, &a.Status, &googleEventID,
		&a.Reminded24h, &a.Reminded2h, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.GoogleEventID = googleEventID.String
	return &a, nil
}

func collectAppointments(rows *sql.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	return appts, rows.Err()
}
