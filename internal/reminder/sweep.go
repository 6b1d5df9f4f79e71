// Package reminder implements the periodic sweep that notifies clients
// about soon-due appointments at fixed look-ahead horizons.
package reminder

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"zapisnik/internal/database"
	"zapisnik/internal/metrics"
	"zapisnik/internal/model"
)

// Tolerance is the half-width of the match window around now+horizon.
const Tolerance = 15 * time.Minute

// DefaultInterval is how often the sweep runs.
const DefaultInterval = 30 * time.Minute

// horizonSpec is one fixed look-ahead horizon.
type horizonSpec struct {
	lookAhead time.Duration
	marker    database.ReminderHorizon
	label     string
}

var horizons = []horizonSpec{
	{24 * time.Hour, database.Horizon24h, "24 часа"},
	{2 * time.Hour, database.Horizon2h, "2 часа"},
}

// Event is one reminder emitted by a sweep run.
type Event struct {
	AppointmentID int64
	ClientID      int64
	Horizon       string
}

// Store is the ledger surface the sweep needs. *database.DB satisfies it.
type Store interface {
	ListDueReminders(ctx context.Context, windowStart, windowEnd time.Time, horizon database.ReminderHorizon) ([]model.Appointment, error)
	MarkReminded(ctx context.Context, id int64, horizon database.ReminderHorizon) error
	GetClient(ctx context.Context, id int64) (*model.Client, error)
	GetSettings(ctx context.Context) (*model.Settings, error)
}

// Notifier delivers one reminder to a client.
type Notifier interface {
	SendReminder(ctx context.Context, chatID int64, appt model.Appointment, timeLeft string) error
}

// Sweep scans confirmed appointments and fires reminders. Each horizon
// is marked on the appointment after a successful send, so an
// appointment staying inside the tolerance window across two adjacent
// runs is reminded once per horizon.
type Sweep struct {
	store    Store
	notifier Notifier
	limiter  *rate.Limiter
	interval time.Duration
	logger   zerolog.Logger
}

// New creates a sweep. interval <= 0 falls back to DefaultInterval.
func New(store Store, notifier Notifier, interval time.Duration, logger zerolog.Logger) *Sweep {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweep{
		store:    store,
		notifier: notifier,
		// Telegram flood control: well under 30 messages/second.
		limiter:  rate.NewLimiter(rate.Limit(20), 5),
		interval: interval,
		logger:   logger,
	}
}

// Start runs the sweep loop until ctx is cancelled. The first run fires
// immediately.
func (s *Sweep) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("reminder sweep started")

	if _, err := s.RunOnce(ctx, time.Now()); err != nil {
		s.logger.Error().Err(err).Msg("reminder sweep run failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder sweep stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx, time.Now()); err != nil {
				s.logger.Error().Err(err).Msg("reminder sweep run failed")
			}
		}
	}
}

// RunOnce performs a single sweep around now and returns the reminders
// that were sent. Failing to notify one appointment does not stop the
// run; the appointment stays unmarked and is retried next run.
func (s *Sweep) RunOnce(ctx context.Context, now time.Time) ([]Event, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, h := range horizons {
		target := now.Add(h.lookAhead)
		due, err := s.store.ListDueReminders(ctx, target.Add(-Tolerance), target.Add(Tolerance), h.marker)
		if err != nil {
			s.logger.Error().Err(err).Str("horizon", h.label).Msg("list due reminders")
			continue
		}

		for i := range due {
			appt := due[i]
			delivered, err := s.remind(ctx, appt, h, loc)
			if err != nil {
				s.logger.Error().Err(err).
					Int64("appointment_id", appt.ID).
					Str("horizon", h.label).
					Msg("send reminder")
				continue
			}
			if !delivered {
				continue
			}
			events = append(events, Event{
				AppointmentID: appt.ID,
				ClientID:      appt.ClientID,
				Horizon:       h.label,
			})
		}
	}
	return events, nil
}

// remind delivers one reminder. It reports whether a notification was
// actually sent; orphaned rows are marked without a send.
func (s *Sweep) remind(ctx context.Context, appt model.Appointment, h horizonSpec, loc *time.Location) (bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}

	client, err := s.store.GetClient(ctx, appt.ClientID)
	if err != nil {
		return false, err
	}
	if client == nil {
		// Orphaned row; mark so the sweep stops retrying it.
		return false, s.store.MarkReminded(ctx, appt.ID, h.marker)
	}

	appt.StartTime = appt.StartTime.In(loc)
	appt.EndTime = appt.EndTime.In(loc)
	if err := s.notifier.SendReminder(ctx, client.TelegramID, appt, h.label); err != nil {
		return false, err
	}

	if err := s.store.MarkReminded(ctx, appt.ID, h.marker); err != nil {
		// The notification went out; log and move on rather than resend.
		s.logger.Error().Err(err).Int64("appointment_id", appt.ID).Msg("mark reminded")
	}

	metrics.IncReminderSent(string(h.marker))
	s.logger.Info().
		Int64("appointment_id", appt.ID).
		Int64("chat_id", client.TelegramID).
		Str("horizon", h.label).
		Msg("reminder sent")
	return true, nil
}
