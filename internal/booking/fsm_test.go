package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowedTransitions(t *testing.T) {
	tests := []struct {
		name   string
		state  State
		action Action
		want   bool
	}{
		{"pick service while choosing service", StateChoosingService, PickService{ServiceID: 1}, true},
		{"pick service while choosing date", StateChoosingDate, PickService{ServiceID: 1}, false},
		{"pick date while choosing date", StateChoosingDate, PickDate{Date: "2026-03-03"}, true},
		{"navigate while choosing date", StateChoosingDate, Navigate{Year: 2026, Month: time.March}, true},
		{"navigate while confirming", StateConfirming, Navigate{Year: 2026, Month: time.March}, false},
		{"pick date while choosing time", StateChoosingTime, PickDate{Date: "2026-03-03"}, false},
		{"pick time while choosing time", StateChoosingTime, PickTime{Clock: "10:00"}, true},
		{"back while choosing time", StateChoosingTime, Back{}, true},
		{"back while choosing date", StateChoosingDate, Back{}, false},
		{"confirm while confirming", StateConfirming, Confirm{}, true},
		{"confirm while choosing time", StateChoosingTime, Confirm{}, false},
		{"cancel while choosing service", StateChoosingService, Cancel{}, true},
		{"cancel while confirming", StateConfirming, Cancel{}, true},
		{"cancel after commit", StateCommitted, Cancel{}, false},
		{"confirm after cancel", StateCancelled, Confirm{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, allowed(tt.state, tt.action))
		})
	}
}

func TestSessionStoreStartOverwrites(t *testing.T) {
	ss := NewSessionStore(time.Hour)

	first := ss.Start(42, "masha", "Мария")
	first.State = StateConfirming
	first.ServiceID = 7

	second := ss.Start(42, "masha", "Мария")
	assert.Equal(t, StateChoosingService, second.State)
	assert.Zero(t, second.ServiceID)
	assert.Same(t, second, ss.Get(42))
}

func TestSessionStoreExpiry(t *testing.T) {
	ss := NewSessionStore(time.Minute)

	s := ss.Start(42, "", "")
	assert.NotNil(t, ss.Get(42))

	s.UpdatedAt = time.Now().Add(-2 * time.Minute)
	assert.Nil(t, ss.Get(42), "expired session must not be returned")
}

func TestSessionStoreCleanup(t *testing.T) {
	ss := NewSessionStore(time.Minute)

	fresh := ss.Start(1, "", "")
	stale := ss.Start(2, "", "")
	stale.UpdatedAt = time.Now().Add(-2 * time.Minute)

	assert.Equal(t, 1, ss.Cleanup())
	assert.Same(t, fresh, ss.Get(1))
	assert.Nil(t, ss.Get(2))
}

func TestSessionStoreDelete(t *testing.T) {
	ss := NewSessionStore(0)
	ss.Start(42, "", "")
	ss.Delete(42)
	assert.Nil(t, ss.Get(42))
}
