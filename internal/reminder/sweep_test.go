package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapisnik/internal/database"
	"zapisnik/internal/model"
)

type memStore struct {
	appts   []*model.Appointment
	clients map[int64]*model.Client
}

func newMemStore() *memStore {
	return &memStore{clients: map[int64]*model.Client{
		1: {ID: 1, TelegramID: 1001, FullName: "Мария"},
	}}
}

func (m *memStore) add(id int64, start time.Time) *model.Appointment {
	a := &model.Appointment{
		ID:        id,
		ClientID:  1,
		ServiceID: 1,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    model.StatusConfirmed,
	}
	m.appts = append(m.appts, a)
	return a
}

func (m *memStore) ListDueReminders(_ context.Context, ws, we time.Time, horizon database.ReminderHorizon) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range m.appts {
		if a.Status != model.StatusConfirmed {
			continue
		}
		if a.StartTime.Before(ws) || a.StartTime.After(we) {
			continue
		}
		if horizon == database.Horizon24h && a.Reminded24h {
			continue
		}
		if horizon == database.Horizon2h && a.Reminded2h {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memStore) MarkReminded(_ context.Context, id int64, horizon database.ReminderHorizon) error {
	for _, a := range m.appts {
		if a.ID == id {
			if horizon == database.Horizon24h {
				a.Reminded24h = true
			} else {
				a.Reminded2h = true
			}
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memStore) GetClient(_ context.Context, id int64) (*model.Client, error) {
	return m.clients[id], nil
}

func (m *memStore) GetSettings(context.Context) (*model.Settings, error) {
	return &model.Settings{ID: 1, PlanningHorizonDays: 14, Timezone: "UTC"}, nil
}

type sent struct {
	chatID   int64
	apptID   int64
	timeLeft string
}

type fakeNotifier struct {
	sent []sent
	fail bool
}

func (n *fakeNotifier) SendReminder(_ context.Context, chatID int64, appt model.Appointment, timeLeft string) error {
	if n.fail {
		return errors.New("telegram unavailable")
	}
	n.sent = append(n.sent, sent{chatID: chatID, apptID: appt.ID, timeLeft: timeLeft})
	return nil
}

var sweepNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestRunOnceMatchesWithinTolerance(t *testing.T) {
	store := newMemStore()
	store.add(1, sweepNow.Add(24*time.Hour+10*time.Minute)) // inside ±15min
	store.add(2, sweepNow.Add(24*time.Hour+20*time.Minute)) // outside
	store.add(3, sweepNow.Add(2*time.Hour))                 // exact 2h match

	notifier := &fakeNotifier{}
	s := New(store, notifier, 0, zerolog.Nop())

	events, err := s.RunOnce(context.Background(), sweepNow)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].AppointmentID)
	assert.Equal(t, "24 часа", events[0].Horizon)
	assert.Equal(t, int64(3), events[1].AppointmentID)
	assert.Equal(t, "2 часа", events[1].Horizon)

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, int64(1001), notifier.sent[0].chatID)
}

func TestRunOnceIsIdempotentPerHorizon(t *testing.T) {
	store := newMemStore()
	store.add(1, sweepNow.Add(24*time.Hour))

	notifier := &fakeNotifier{}
	s := New(store, notifier, 0, zerolog.Nop())

	events, err := s.RunOnce(context.Background(), sweepNow)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// The appointment is still inside the window on the next run, but the
	// marker suppresses a second send.
	events, err = s.RunOnce(context.Background(), sweepNow.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Len(t, notifier.sent, 1)
}

func TestBothHorizonsFireIndependently(t *testing.T) {
	store := newMemStore()
	a := store.add(1, sweepNow.Add(24*time.Hour))

	notifier := &fakeNotifier{}
	s := New(store, notifier, 0, zerolog.Nop())

	_, err := s.RunOnce(context.Background(), sweepNow)
	require.NoError(t, err)
	assert.True(t, a.Reminded24h)
	assert.False(t, a.Reminded2h)

	// 22 hours later the same appointment hits the 2h horizon.
	events, err := s.RunOnce(context.Background(), sweepNow.Add(22*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2 часа", events[0].Horizon)
	assert.True(t, a.Reminded2h)
}

func TestFailedSendIsRetriedNextRun(t *testing.T) {
	store := newMemStore()
	a := store.add(1, sweepNow.Add(24*time.Hour))

	notifier := &fakeNotifier{fail: true}
	s := New(store, notifier, 0, zerolog.Nop())

	events, err := s.RunOnce(context.Background(), sweepNow)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.False(t, a.Reminded24h, "failed send must not mark the appointment")

	notifier.fail = false
	events, err = s.RunOnce(context.Background(), sweepNow.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.True(t, a.Reminded24h)
}

func TestOrphanedAppointmentIsMarkedWithoutSend(t *testing.T) {
	store := newMemStore()
	a := store.add(1, sweepNow.Add(24*time.Hour))
	a.ClientID = 999 // no such client

	notifier := &fakeNotifier{}
	s := New(store, notifier, 0, zerolog.Nop())

	events, err := s.RunOnce(context.Background(), sweepNow)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, notifier.sent)
	assert.True(t, a.Reminded24h)
}
