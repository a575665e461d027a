package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking and messaging
	AppointmentsBooked prometheus.Counter
	TransportAssigned  prometheus.Counter
	StatusUpdates      prometheus.Counter
	MessagesPosted     *prometheus.CounterVec
	MessagesMarkedRead prometheus.Counter
	LookupMisses       *prometheus.CounterVec

	// Identity
	Registrations *prometheus.CounterVec
	Logins        *prometheus.CounterVec

	// Broker
	EventsPublished *prometheus.CounterVec

	// Worker
	EventsProcessed   *prometheus.CounterVec
	EventsFailed      *prometheus.CounterVec
	EmailsSent        prometheus.Counter
	ProcessingLatency *prometheus.HistogramVec
}

// NewMetrics creates all application metrics on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AppointmentsBooked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "appointments_booked_total",
			Help:      "Total number of appointments requested by patients",
		}),
		TransportAssigned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transport_assigned_total",
			Help:      "Total number of transport provider assignments",
		}),
		StatusUpdates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "status_updates_total",
			Help:      "Total number of admin status updates",
		}),
		MessagesPosted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_posted_total",
			Help:      "Total number of appointment messages posted",
		}, []string{"role"}),
		MessagesMarkedRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_marked_read_total",
			Help:      "Total number of read receipts added by mark-all-read",
		}),
		LookupMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lookup_misses_total",
			Help:      "Operations addressed to an appointment id that does not exist",
		}, []string{"operation"}),

		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "registrations_total",
			Help:      "Registration attempts by result",
		}, []string{"result"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "logins_total",
			Help:      "Login attempts by role and result",
		}, []string{"role", "result"}),

		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_published_total",
			Help:      "Appointment events handed to the broker",
		}, []string{"event_type", "status"}),

		EventsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_processed_total",
			Help:      "Total number of successfully processed events",
		}, []string{"event_type"}),
		EventsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_failed_total",
			Help:      "Total number of events that failed processing",
		}, []string{"event_type"}),
		EmailsSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "emails_sent_total",
			Help:      "Total number of notification emails sent",
		}),
		ProcessingLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "event_processing_latency_seconds",
			Help:      "Time between event creation and processing",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"event_type"}),
	}
}
