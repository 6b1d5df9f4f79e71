package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	appointmentCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zapisnik",
			Name:      "appointment_created_total",
			Help:      "Count of appointments created by status.",
		},
		[]string{"status"},
	)

	appointmentCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zapisnik",
			Name:      "appointment_cancelled_total",
			Help:      "Count of appointments cancelled by clients.",
		},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zapisnik",
			Name:      "reminders_sent_total",
			Help:      "Count of reminders sent by horizon.",
		},
		[]string{"horizon"},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zapisnik",
			Name:      "slot_conflicts_total",
			Help:      "Count of commit-time slot conflicts.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(appointmentCreated, appointmentCancelled, remindersSent, slotConflicts)
	})
}

func IncAppointmentCreated(status string) {
	appointmentCreated.WithLabelValues(status).Inc()
}

func IncAppointmentCancelled() {
	appointmentCancelled.Inc()
}

func IncReminderSent(horizon string) {
	remindersSent.WithLabelValues(horizon).Inc()
}

func IncSlotConflict() {
	slotConflicts.Inc()
}
