package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/carebook/internal/email"
	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/pkg/logger"
	"github.com/jwalitptl/carebook/pkg/messaging"
	"github.com/jwalitptl/carebook/pkg/metrics"
)

type NotifierConfig struct {
	Channel       string
	RetryAttempts int
	RetryDelay    time.Duration
}

// EventNotifier consumes appointment events and emails the patient when an
// admin confirms transport, changes the status or writes to them.
type EventNotifier struct {
	broker  messaging.Broker
	mailer  email.Service
	config  NotifierConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewEventNotifier(
	broker messaging.Broker,
	mailer email.Service,
	config NotifierConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *EventNotifier {
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	return &EventNotifier{
		broker:  broker,
		mailer:  mailer,
		config:  config,
		logger:  logger.WithFields(map[string]interface{}{"component": "event_notifier"}),
		metrics: metrics,
	}
}

// Start blocks until ctx is cancelled or the subscription closes.
func (n *EventNotifier) Start(ctx context.Context) error {
	messages, err := n.broker.Subscribe(ctx, n.config.Channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", n.config.Channel, err)
	}

	n.logger.Info("Starting event notifier", "channel", n.config.Channel)

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("Shutting down event notifier")
			return nil
		case payload, ok := <-messages:
			if !ok {
				n.logger.Warn("Subscription closed")
				return nil
			}
			if err := n.Handle(ctx, payload); err != nil {
				n.logger.Error(err, "Failed to process event")
			}
		}
	}
}

// Handle processes one raw event from the channel.
func (n *EventNotifier) Handle(ctx context.Context, payload []byte) error {
	var evt model.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		n.metrics.EventsFailed.WithLabelValues("unknown").Inc()
		return fmt.Errorf("failed to decode event: %w", err)
	}

	subject, body, ok := compose(&evt)
	if ok {
		err := retry(n.config.RetryAttempts, n.config.RetryDelay, func() error {
			return n.mailer.SendCustom(ctx, evt.PatientEmail, subject, body)
		})
		if err != nil {
			n.metrics.EventsFailed.WithLabelValues(evt.Type).Inc()
			return fmt.Errorf("failed to notify %s about appointment %d: %w", evt.PatientEmail, evt.AppointmentID, err)
		}
		n.metrics.EmailsSent.Inc()
	}

	n.metrics.EventsProcessed.WithLabelValues(evt.Type).Inc()
	if !evt.OccurredAt.IsZero() {
		n.metrics.ProcessingLatency.WithLabelValues(evt.Type).Observe(time.Since(evt.OccurredAt).Seconds())
	}
	return nil
}

// compose builds the patient email for an event. Events the patient does
// not need to hear about return ok == false.
func compose(evt *model.Event) (subject, body string, ok bool) {
	if evt.PatientEmail == "" {
		return "", "", false
	}

	switch evt.Type {
	case model.EventTransportAssigned:
		subject = fmt.Sprintf("Transport confirmed for appointment #%d", evt.AppointmentID)
		body = fmt.Sprintf("Hello %s,\n\nTransport for your appointment #%d has been confirmed.", evt.PatientName, evt.AppointmentID)
		if name, _ := evt.Payload["provider_name"].(string); name != "" {
			body += fmt.Sprintf("\nProvider: %s", name)
		}
	case model.EventStatusUpdated:
		status, _ := evt.Payload["to"].(string)
		subject = fmt.Sprintf("Appointment #%d status updated", evt.AppointmentID)
		body = fmt.Sprintf("Hello %s,\n\nYour appointment #%d is now: %s", evt.PatientName, evt.AppointmentID, status)
	case model.EventMessagePosted:
		if evt.ActorRole != model.RoleAdmin {
			return "", "", false
		}
		preview, _ := evt.Payload["preview"].(string)
		subject = fmt.Sprintf("New message about appointment #%d", evt.AppointmentID)
		body = fmt.Sprintf("Hello %s,\n\n%s wrote:\n\n%s", evt.PatientName, evt.Actor, preview)
	default:
		return "", "", false
	}

	body += "\n\nTransport services are provided by third parties."
	return subject, body, true
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
