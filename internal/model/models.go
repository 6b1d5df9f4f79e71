package model

import "time"

// Appointment statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Client is a Telegram user who books appointments.
type Client struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username,omitempty"`
	FullName   string    `json:"full_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service is a bookable service of the master.
// Services are never hard-deleted: deactivation keeps history of past
// appointments referencing them intact.
type Service struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	Description     string  `json:"description,omitempty"`
	Active          bool    `json:"active"`
}

// WorkDay is the weekly schedule entry for one weekday.
// Weekday uses Monday=0 .. Sunday=6. Exactly one row per weekday exists
// at all times; database seeding guarantees it.
type WorkDay struct {
	ID        int64  `json:"id"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"` // "09:00"
	EndTime   string `json:"end_time"`   // "18:00"
	IsWorking bool   `json:"is_working"`
}

// Holiday overrides the weekly schedule for a single date, forcing it
// non-bookable regardless of weekday.
type Holiday struct {
	ID     int64     `json:"id"`
	Date   time.Time `json:"date"` // date only, midnight UTC
	Reason string    `json:"reason,omitempty"`
}

// Settings is the singleton application settings row (id=1).
type Settings struct {
	ID                  int64  `json:"id"`
	AdminChatID         int64  `json:"admin_chat_id"`
	PlanningHorizonDays int    `json:"planning_horizon_days"` // 1..365
	Timezone            string `json:"timezone"`              // IANA name
}

// Appointment is one booked time interval. Start and End are absolute
// UTC instants; End-Start equals the service duration frozen at booking
// time even if the service is edited later.
type Appointment struct {
	ID            int64     `json:"id"`
	Reference     string    `json:"reference"` // public booking code
	ClientID      int64     `json:"client_id"`
	ServiceID     int64     `json:"service_id"`
	ServiceName   string    `json:"service_name,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	GoogleEventID string    `json:"google_event_id,omitempty"`
	Reminded24h   bool      `json:"reminded_24h"`
	Reminded2h    bool      `json:"reminded_2h"`
	CreatedAt     time.Time `json:"created_at"`
}

// Overlaps reports whether [a.StartTime, a.EndTime) intersects
// [start, end) under the half-open interval rule.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	s := a.StartTime
	if start.After(s) {
		s = start
	}
	e := a.EndTime
	if end.Before(e) {
		e = end
	}
	return s.Before(e)
}

// IsUpcoming reports whether the appointment is confirmed and starts
// after now. Only such appointments are offered for self-cancellation.
func (a *Appointment) IsUpcoming(now time.Time) bool {
	return a.Status == StatusConfirmed && a.StartTime.After(now)
}
