package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/pkg/logger"
	"github.com/jwalitptl/carebook/pkg/messaging"
	"github.com/jwalitptl/carebook/pkg/metrics"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failures int
}

func (f *fakeMailer) SendCustom(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type chanBroker struct {
	messaging.NoopBroker
	ch      chan []byte
	pingErr error
}

func (b *chanBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return b.ch, nil
}

func (b *chanBroker) Ping(context.Context) error {
	return b.pingErr
}

func quietLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func encode(t *testing.T, evt *model.Event) []byte {
	t.Helper()
	b, err := json.Marshal(evt)
	require.NoError(t, err)
	return b
}

func newNotifier(mailer *fakeMailer, broker messaging.Broker, m *metrics.Metrics) *EventNotifier {
	return NewEventNotifier(broker, mailer, NotifierConfig{
		Channel:       "appointment_events",
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, quietLogger(), m)
}

func TestHandleSendsPatientEmails(t *testing.T) {
	mailer := &fakeMailer{}
	m := metrics.NewMetrics("test", "", prometheus.NewRegistry())
	n := newNotifier(mailer, messaging.NewNoopBroker(), m)
	ctx := context.Background()

	base := model.Event{AppointmentID: 1, PatientEmail: "ann@example.com", PatientName: "Ann", Actor: "Admin", ActorRole: model.RoleAdmin, OccurredAt: time.Now()}

	assigned := base
	assigned.Type = model.EventTransportAssigned
	assigned.Payload = map[string]interface{}{"provider_id": 2, "provider_name": "CareVan Services"}
	require.NoError(t, n.Handle(ctx, encode(t, &assigned)))

	status := base
	status.Type = model.EventStatusUpdated
	status.Payload = map[string]interface{}{"from": "Requested", "to": "Completed"}
	require.NoError(t, n.Handle(ctx, encode(t, &status)))

	posted := base
	posted.Type = model.EventMessagePosted
	posted.Payload = map[string]interface{}{"preview": "scheduled pickup 9am"}
	require.NoError(t, n.Handle(ctx, encode(t, &posted)))

	require.Len(t, mailer.sent, 3)
	assert.Equal(t, "ann@example.com", mailer.sent[0].to)
	assert.Equal(t, "Transport confirmed for appointment #1", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "CareVan Services")
	assert.Contains(t, mailer.sent[1].body, "Completed")
	assert.Contains(t, mailer.sent[2].body, "scheduled pickup 9am")

	assert.Equal(t, float64(3), testutil.ToFloat64(m.EmailsSent))
}

func TestHandleSkipsIrrelevantEvents(t *testing.T) {
	mailer := &fakeMailer{}
	m := metrics.NewMetrics("test", "", prometheus.NewRegistry())
	n := newNotifier(mailer, messaging.NewNoopBroker(), m)
	ctx := context.Background()

	for _, evt := range []*model.Event{
		{Type: model.EventAppointmentBooked, PatientEmail: "ann@example.com", ActorRole: model.RolePatient},
		{Type: model.EventMessagePosted, PatientEmail: "ann@example.com", ActorRole: model.RolePatient},
		{Type: model.EventStatusUpdated, ActorRole: model.RoleAdmin},
	} {
		require.NoError(t, n.Handle(ctx, encode(t, evt)))
	}

	assert.Zero(t, mailer.count())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsProcessed.WithLabelValues(model.EventAppointmentBooked)))
}

func TestHandleRetriesThenFails(t *testing.T) {
	m := metrics.NewMetrics("test", "", prometheus.NewRegistry())
	evt := &model.Event{Type: model.EventStatusUpdated, AppointmentID: 3, PatientEmail: "ann@example.com", ActorRole: model.RoleAdmin}

	flaky := &fakeMailer{failures: 2}
	require.NoError(t, newNotifier(flaky, messaging.NewNoopBroker(), m).Handle(context.Background(), encode(t, evt)))
	assert.Equal(t, 1, flaky.count())

	down := &fakeMailer{failures: 10}
	err := newNotifier(down, messaging.NewNoopBroker(), m).Handle(context.Background(), encode(t, evt))
	assert.ErrorContains(t, err, "smtp down")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsFailed.WithLabelValues(model.EventStatusUpdated)))
}

func TestHandleRejectsGarbage(t *testing.T) {
	m := metrics.NewMetrics("test", "", prometheus.NewRegistry())
	n := newNotifier(&fakeMailer{}, messaging.NewNoopBroker(), m)

	assert.Error(t, n.Handle(context.Background(), []byte("{not json")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsFailed.WithLabelValues("unknown")))
}

func TestStartConsumesUntilClosed(t *testing.T) {
	mailer := &fakeMailer{}
	broker := &chanBroker{ch: make(chan []byte, 2)}
	n := newNotifier(mailer, broker, metrics.NewMetrics("test", "", prometheus.NewRegistry()))

	evt := &model.Event{Type: model.EventTransportAssigned, AppointmentID: 1, PatientEmail: "ann@example.com", ActorRole: model.RoleAdmin}
	broker.ch <- encode(t, evt)
	broker.ch <- []byte("garbage")
	close(broker.ch)

	require.NoError(t, n.Start(context.Background()))
	assert.Equal(t, 1, mailer.count())
}

func TestBrokerMonitor(t *testing.T) {
	broker := &chanBroker{}
	mon := NewBrokerMonitor(broker, 10*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mon.Start(ctx)

	assert.Eventually(t, mon.Ready, time.Second, 5*time.Millisecond)
}

func TestBrokerMonitorUnhealthy(t *testing.T) {
	mon := NewBrokerMonitor(&chanBroker{pingErr: errors.New("down")}, time.Second, quietLogger())
	mon.check(context.Background())
	assert.False(t, mon.Ready())
}
