// Package booking implements the multi-step booking conversation as a
// finite state machine with per-client transient sessions.
package booking

import (
	"sync"
	"time"
)

// State is the current step of the booking dialog.
type State string

const (
	StateChoosingService State = "choosing_service"
	StateChoosingDate    State = "choosing_date"
	StateChoosingTime    State = "choosing_time"
	StateConfirming      State = "confirming_appointment"
	StateCommitted       State = "committed"
	StateCancelled       State = "cancelled"
)

// Action is one client input to the state machine. The tagged variants
// replace stringly-typed callback dispatch: the transition function
// switches over (state, action) and anything else is rejected.
type Action interface {
	isAction()
}

// PickService selects a service while choosing a service.
type PickService struct {
	ServiceID int64
}

// Navigate pages the calendar to another month. A self-transition: it
// never mutates stored selections.
type Navigate struct {
	Year  int
	Month time.Month
}

// PickDate selects a date (YYYY-MM-DD) while choosing a date.
type PickDate struct {
	Date string
}

// PickTime selects a slot start ("HH:MM") while choosing a time.
type PickTime struct {
	Clock string
}

// Back returns from choosing a time to choosing a date, keeping the
// stored service.
type Back struct{}

// Confirm commits the booking from the confirmation step.
type Confirm struct{}

// Cancel abandons the dialog from any state.
type Cancel struct{}

func (PickService) isAction() {}
func (Navigate) isAction()    {}
func (PickDate) isAction()    {}
func (PickTime) isAction()    {}
func (Back) isAction()        {}
func (Confirm) isAction()     {}
func (Cancel) isAction()      {}

// Session is the transient per-client booking state. It lives only in
// memory: a process restart drops in-flight bookings by design.
type Session struct {
	TelegramID int64
	Username   string
	FullName   string

	State       State
	ServiceID   int64
	ServiceName string
	DurationMin int
	Date        time.Time // chosen date, midnight in the configured timezone
	Clock       string    // chosen slot start, "HH:MM"

	StartedAt time.Time
	UpdatedAt time.Time
}

// SessionStore keeps sessions keyed by client telegram id. Access is
// guarded per store; handlers for one client never run concurrently, so
// no per-session lock is needed.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	ttl      time.Duration
}

// NewSessionStore creates a store. Sessions idle longer than ttl are
// dropped by Cleanup; zero ttl defaults to 30 minutes.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
	}
}

// Get returns the live session for a client, nil if none or expired.
func (ss *SessionStore) Get(telegramID int64) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s := ss.sessions[telegramID]
	if s == nil || time.Since(s.UpdatedAt) > ss.ttl {
		return nil
	}
	return s
}

// Start creates a fresh session for the client, overwriting any previous
// in-flight one.
func (ss *SessionStore) Start(telegramID int64, username, fullName string) *Session {
	now := time.Now()
	s := &Session{
		TelegramID: telegramID,
		Username:   username,
		FullName:   fullName,
		State:      StateChoosingService,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	ss.mu.Lock()
	ss.sessions[telegramID] = s
	ss.mu.Unlock()
	return s
}

// Delete removes the client's session.
func (ss *SessionStore) Delete(telegramID int64) {
	ss.mu.Lock()
	delete(ss.sessions, telegramID)
	ss.mu.Unlock()
}

// Cleanup drops expired sessions and returns how many were removed.
func (ss *SessionStore) Cleanup() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	removed := 0
	for id, s := range ss.sessions {
		if time.Since(s.UpdatedAt) > ss.ttl {
			delete(ss.sessions, id)
			removed++
		}
	}
	return removed
}

// allowed reports whether the action kind may be applied in the state.
func allowed(state State, action Action) bool {
	switch action.(type) {
	case Cancel:
		return state == StateChoosingService || state == StateChoosingDate ||
			state == StateChoosingTime || state == StateConfirming
	case PickService:
		return state == StateChoosingService
	case Navigate, PickDate:
		return state == StateChoosingDate
	case PickTime, Back:
		return state == StateChoosingTime
	case Confirm:
		return state == StateConfirming
	default:
		return false
	}
}
