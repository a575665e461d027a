package event

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/pkg/messaging"
	"github.com/jwalitptl/carebook/pkg/metrics"
)

const publishTimeout = 2 * time.Second

// Emitter is what the domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, evt *model.Event)
}

// Service fans appointment events out to the broker. Delivery is best
// effort: a broker failure is logged and counted but never fails the
// operation that produced the event.
type Service struct {
	broker  messaging.Broker
	channel string
	metrics *metrics.Metrics
}

func NewService(broker messaging.Broker, channel string, m *metrics.Metrics) *Service {
	return &Service{
		broker:  broker,
		channel: channel,
		metrics: m,
	}
}

func (s *Service) Emit(ctx context.Context, evt *model.Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.broker.Publish(ctx, s.channel, evt); err != nil {
		s.metrics.EventsPublished.WithLabelValues(evt.Type, "failed").Inc()
		log.Warn().
			Err(err).
			Str("event_type", evt.Type).
			Int64("appointment_id", evt.AppointmentID).
			Msg("failed to publish event")
		return
	}
	s.metrics.EventsPublished.WithLabelValues(evt.Type, "published").Inc()
}
