package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zapisnik/internal/database"
	"zapisnik/internal/metrics"
	"zapisnik/internal/model"
	"zapisnik/internal/slots"
)

// Store is the calendar-store surface the booking flow needs.
// *database.DB satisfies it.
type Store interface {
	GetService(ctx context.Context, id int64) (*model.Service, error)
	ListActiveServices(ctx context.Context) ([]model.Service, error)
	ListWorkSchedule(ctx context.Context) ([]model.WorkDay, error)
	GetWorkDayForDate(ctx context.Context, date time.Time) (*model.WorkDay, error)
	ListHolidays(ctx context.Context) ([]model.Holiday, error)
	GetSettings(ctx context.Context) (*model.Settings, error)
	ListAppointmentsBetween(ctx context.Context, start, end time.Time) ([]model.Appointment, error)
	UpsertClient(ctx context.Context, telegramID int64, username, fullName string) (*model.Client, error)
	CreateAppointmentIfFree(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id int64) (*model.Appointment, error)
	ListUpcomingByClient(ctx context.Context, clientID int64, now time.Time) ([]model.Appointment, error)
	GetClientByTelegramID(ctx context.Context, telegramID int64) (*model.Client, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status string) error
}

// Result is the outcome of applying one action: the state after the
// transition plus the data the next prompt needs.
type Result struct {
	State    State
	Session  *Session
	Services []model.Service
	Dates    []time.Time
	Times    []time.Time
	// NoSlots is set when a picked date yielded zero free slots; the
	// session stays in StateChoosingDate.
	NoSlots bool
	// Appointment is set when the action committed a booking.
	Appointment *model.Appointment
	Timezone    string
}

// Flow drives booking sessions against the calendar store.
type Flow struct {
	store    Store
	sessions *SessionStore
	now      func() time.Time
	logger   zerolog.Logger
}

// NewFlow creates a booking flow.
func NewFlow(store Store, sessions *SessionStore, logger zerolog.Logger) *Flow {
	return &Flow{
		store:    store,
		sessions: sessions,
		now:      time.Now,
		logger:   logger,
	}
}

// Start opens a fresh session for the client and returns the active
// services to choose from. Any previous in-flight session is discarded.
func (f *Flow) Start(ctx context.Context, telegramID int64, username, fullName string) (Result, error) {
	services, err := f.store.ListActiveServices(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list services: %w", err)
	}
	if len(services) == 0 {
		return Result{}, fmt.Errorf("no active services: %w", ErrNotFound)
	}
	s := f.sessions.Start(telegramID, username, fullName)
	return Result{State: s.State, Session: s, Services: services}, nil
}

// Apply runs one action through the transition function. Actions that do
// not match the session's current state return ErrInvalidTransition and
// leave the stored selections unchanged.
func (f *Flow) Apply(ctx context.Context, telegramID int64, action Action) (Result, error) {
	s := f.sessions.Get(telegramID)
	if s == nil {
		return Result{}, fmt.Errorf("no active session: %w", ErrInvalidTransition)
	}
	if !allowed(s.State, action) {
		return Result{State: s.State, Session: s}, ErrInvalidTransition
	}
	s.UpdatedAt = f.now()

	switch a := action.(type) {
	case PickService:
		return f.pickService(ctx, s, a)
	case Navigate:
		return f.navigate(ctx, s)
	case PickDate:
		return f.pickDate(ctx, s, a)
	case PickTime:
		return f.pickTime(ctx, s, a)
	case Back:
		return f.back(ctx, s)
	case Confirm:
		return f.confirm(ctx, s)
	case Cancel:
		f.sessions.Delete(s.TelegramID)
		return Result{State: StateCancelled}, nil
	default:
		return Result{State: s.State, Session: s}, ErrInvalidTransition
	}
}

func (f *Flow) pickService(ctx context.Context, s *Session, a PickService) (Result, error) {
	svc, err := f.store.GetService(ctx, a.ServiceID)
	if err != nil {
		return Result{}, fmt.Errorf("get service: %w", err)
	}
	if svc == nil || !svc.Active {
		return Result{State: s.State, Session: s}, ErrNotFound
	}

	s.ServiceID = svc.ID
	s.ServiceName = svc.Name
	s.DurationMin = svc.DurationMinutes
	s.State = StateChoosingDate

	return f.datesResult(ctx, s)
}

// navigate repaints the calendar without touching selections.
func (f *Flow) navigate(ctx context.Context, s *Session) (Result, error) {
	return f.datesResult(ctx, s)
}

func (f *Flow) pickDate(ctx context.Context, s *Session, a PickDate) (Result, error) {
	settings, loc, err := f.settings(ctx)
	if err != nil {
		return Result{}, err
	}

	parsed, err := time.ParseInLocation("2006-01-02", a.Date, loc)
	if err != nil {
		return Result{State: s.State, Session: s}, fmt.Errorf("bad date %q: %w", a.Date, ErrValidation)
	}

	dates, err := f.availableDates(ctx, settings, loc)
	if err != nil {
		return Result{}, err
	}
	if !containsDate(dates, parsed) {
		return Result{State: s.State, Session: s}, ErrSlotUnavailable
	}

	times, err := f.timesFor(ctx, parsed, s.DurationMin, loc)
	if err != nil {
		return Result{}, err
	}
	if len(times) == 0 {
		// Stay on the calendar; the client picks another date.
		return Result{State: s.State, Session: s, Dates: dates, NoSlots: true, Timezone: settings.Timezone}, nil
	}

	s.Date = parsed
	s.State = StateChoosingTime
	return Result{State: s.State, Session: s, Times: times, Timezone: settings.Timezone}, nil
}

func (f *Flow) pickTime(ctx context.Context, s *Session, a PickTime) (Result, error) {
	settings, loc, err := f.settings(ctx)
	if err != nil {
		return Result{}, err
	}
	if _, _, err := slots.ParseClock(a.Clock); err != nil {
		return Result{State: s.State, Session: s}, fmt.Errorf("%s: %w", a.Clock, ErrValidation)
	}

	times, err := f.timesFor(ctx, s.Date, s.DurationMin, loc)
	if err != nil {
		return Result{}, err
	}
	if !slots.ContainsClock(times, a.Clock) {
		return Result{State: s.State, Session: s, Times: times}, ErrSlotUnavailable
	}

	s.Clock = a.Clock
	s.State = StateConfirming
	return Result{State: s.State, Session: s, Timezone: settings.Timezone}, nil
}

func (f *Flow) back(ctx context.Context, s *Session) (Result, error) {
	s.State = StateChoosingDate
	s.Clock = ""
	return f.datesResult(ctx, s)
}

// confirm commits the booking. The slot is re-checked transactionally at
// insert time: a conflict moves the session back to choosing a time with
// a fresh slot list instead of double-booking.
func (f *Flow) confirm(ctx context.Context, s *Session) (Result, error) {
	settings, loc, err := f.settings(ctx)
	if err != nil {
		return Result{}, err
	}

	svc, err := f.store.GetService(ctx, s.ServiceID)
	if err != nil {
		return Result{}, fmt.Errorf("get service: %w", err)
	}
	if svc == nil || !svc.Active {
		f.sessions.Delete(s.TelegramID)
		return Result{State: StateCancelled}, ErrNotFound
	}

	start, err := slots.ClockOnDate(s.Date, s.Clock, loc)
	if err != nil {
		return Result{State: s.State, Session: s}, fmt.Errorf("%s: %w", s.Clock, ErrValidation)
	}
	end := start.Add(time.Duration(s.DurationMin) * time.Minute)

	client, err := f.store.UpsertClient(ctx, s.TelegramID, s.Username, s.FullName)
	if err != nil {
		return Result{}, fmt.Errorf("upsert client: %w", err)
	}

	appt := &model.Appointment{
		Reference: uuid.NewString(),
		ClientID:  client.ID,
		ServiceID: svc.ID,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Status:    model.StatusConfirmed,
	}
	if err := f.store.CreateAppointmentIfFree(ctx, appt); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncSlotConflict()
			s.State = StateChoosingTime
			s.Clock = ""
			times, terr := f.timesFor(ctx, s.Date, s.DurationMin, loc)
			if terr != nil {
				return Result{}, terr
			}
			return Result{State: s.State, Session: s, Times: times}, ErrSlotUnavailable
		}
		return Result{}, fmt.Errorf("create appointment: %w", err)
	}
	appt.ServiceName = svc.Name

	metrics.IncAppointmentCreated(appt.Status)
	f.logger.Info().
		Int64("appointment_id", appt.ID).
		Int64("client_id", client.ID).
		Str("service", svc.Name).
		Time("start", appt.StartTime).
		Msg("appointment committed")

	f.sessions.Delete(s.TelegramID)
	return Result{State: StateCommitted, Appointment: appt, Timezone: settings.Timezone}, nil
}

// CancelAppointment runs the separate two-step self-cancellation commit:
// only the owner's confirmed future appointment may be cancelled.
func (f *Flow) CancelAppointment(ctx context.Context, telegramID, appointmentID int64) (*model.Appointment, error) {
	appt, err := f.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return nil, ErrNotFound
	}
	client, err := f.store.GetClientByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil || appt.ClientID != client.ID || !appt.IsUpcoming(f.now()) {
		return nil, ErrNotFound
	}

	if err := f.store.UpdateAppointmentStatus(ctx, appt.ID, model.StatusCancelled); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	appt.Status = model.StatusCancelled

	metrics.IncAppointmentCancelled()
	f.logger.Info().Int64("appointment_id", appt.ID).Msg("appointment cancelled by client")
	return appt, nil
}

// UpcomingAppointments lists the client's confirmed future appointments.
func (f *Flow) UpcomingAppointments(ctx context.Context, telegramID int64) ([]model.Appointment, error) {
	client, err := f.store.GetClientByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil {
		return nil, nil
	}
	return f.store.ListUpcomingByClient(ctx, client.ID, f.now())
}

func (f *Flow) settings(ctx context.Context) (*model.Settings, *time.Location, error) {
	settings, err := f.store.GetSettings(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("get settings: %w", err)
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("load timezone %q: %w", settings.Timezone, err)
	}
	return settings, loc, nil
}

func (f *Flow) availableDates(ctx context.Context, settings *model.Settings, loc *time.Location) ([]time.Time, error) {
	schedule, err := f.store.ListWorkSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	holidays, err := f.store.ListHolidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}

	localNow := f.now().In(loc)
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)
	return slots.AvailableDates(today, settings.PlanningHorizonDays,
		slots.ScheduleByWeekday(schedule), slots.HolidaySet(holidays)), nil
}

func (f *Flow) timesFor(ctx context.Context, date time.Time, durationMin int, loc *time.Location) ([]time.Time, error) {
	day, err := f.store.GetWorkDayForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("get work day: %w", err)
	}
	if day == nil {
		return nil, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	appts, err := f.store.ListAppointmentsBetween(ctx, dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC())
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	return slots.AvailableTimes(*day, appts, durationMin, date, loc, f.now())
}

func (f *Flow) datesResult(ctx context.Context, s *Session) (Result, error) {
	settings, loc, err := f.settings(ctx)
	if err != nil {
		return Result{}, err
	}
	dates, err := f.availableDates(ctx, settings, loc)
	if err != nil {
		return Result{}, err
	}
	return Result{State: s.State, Session: s, Dates: dates, Timezone: settings.Timezone}, nil
}

func containsDate(dates []time.Time, date time.Time) bool {
	key := slots.DateKey(date)
	for _, d := range dates {
		if slots.DateKey(d) == key {
			return true
		}
	}
	return false
}
