package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
	"github.com/jwalitptl/carebook/internal/repository/memory"
	"github.com/jwalitptl/carebook/internal/service/appointment"
	"github.com/jwalitptl/carebook/internal/service/audit"
	apperrors "github.com/jwalitptl/carebook/pkg/errors"
	"github.com/jwalitptl/carebook/pkg/metrics"
)

var (
	patientA = &model.Session{Email: "a@example.com", Name: "Alice", Role: model.RolePatient}
	patientB = &model.Session{Email: "b@example.com", Name: "Bob", Role: model.RolePatient}
	admin    = &model.Session{Email: "admin@clinic.local", Name: "Admin", Role: model.RoleAdmin}
)

type nopEmitter struct{ events []*model.Event }

func (n *nopEmitter) Emit(_ context.Context, evt *model.Event) { n.events = append(n.events, evt) }

type fixture struct {
	appointments *appointment.Service
	notes        Service
	repo         repository.AppointmentRepository
	events       *nopEmitter
	metrics      *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore([]model.TransportProvider{
		{ID: 1, Name: "SafeRide Medical Transport"},
		{ID: 2, Name: "CareVan Services"},
	})
	events := &nopEmitter{}
	m := metrics.NewMetrics("test", "", prometheus.NewRegistry())
	auditor := audit.NewServiceWithLogger(zap.NewNop())
	return &fixture{
		appointments: appointment.NewService(store.Appointments(), store.Providers(), events, auditor, m),
		notes:        NewService(store.Appointments(), events, auditor, m),
		repo:         store.Appointments(),
		events:       events,
		metrics:      m,
	}
}

func (f *fixture) book(t *testing.T, s *model.Session, transport, meds bool) *model.Appointment {
	t.Helper()
	req := &model.BookRequest{Doctor: "Dr. Jane Smith - Internal Medicine", Date: "2026-01-02", Time: "09:00"}
	if transport {
		req.NeedsTransport = "yes"
		req.PickupAddress = "1 Main St"
	}
	if meds {
		req.CollectMedication = "on"
	}
	apt, err := f.appointments.Create(context.Background(), s, req)
	require.NoError(t, err)
	return apt
}

func (f *fixture) reload(t *testing.T, id int64) *model.Appointment {
	t.Helper()
	apt, err := f.repo.Get(context.Background(), id)
	require.NoError(t, err)
	return apt
}

func TestPostMessageSelfRead(t *testing.T) {
	f := newFixture(t)
	apt := f.book(t, patientA, false, false)

	msg, err := f.notes.PostMessage(context.Background(), patientA, apt.ID, "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)
	assert.Equal(t, []string{"Alice"}, msg.ReadBy)

	apt = f.reload(t, apt.ID)
	assert.Equal(t, 1, f.notes.UnreadCountFor(apt, model.RoleAdmin, "Admin"))
	assert.Equal(t, 1, f.notes.UnreadCountFor(apt, model.RoleAdmin, "Another Admin"))
	assert.Equal(t, 0, f.notes.UnreadCountFor(apt, model.RolePatient, "Alice"))
}

func TestPostMessageRejectsEmpty(t *testing.T) {
	f := newFixture(t)
	apt := f.book(t, patientA, false, false)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := f.notes.PostMessage(context.Background(), patientA, apt.ID, text)
		assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)
	}
	assert.Empty(t, f.reload(t, apt.ID).Messages)
}

func TestPostMessageUnknownAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.notes.PostMessage(context.Background(), admin, 7, "hello")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LookupMisses.WithLabelValues("post_message")))
}

func TestPostMessageAnyRoleAnyAppointment(t *testing.T) {
	f := newFixture(t)
	apt := f.book(t, patientA, false, false)

	_, err := f.notes.PostMessage(context.Background(), patientB, apt.ID, "wrong thread")
	require.NoError(t, err)

	_, err = f.notes.PostMessage(context.Background(), nil, apt.ID, "anonymous")
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestPostMessageEmitsEvent(t *testing.T) {
	f := newFixture(t)
	apt := f.book(t, patientA, false, false)

	_, err := f.notes.PostMessage(context.Background(), admin, apt.ID, "see you soon")
	require.NoError(t, err)

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, model.EventMessagePosted, last.Type)
	assert.Equal(t, patientA.Email, last.PatientEmail)
	assert.Equal(t, model.RoleAdmin, last.ActorRole)
	assert.Equal(t, "see you soon", last.Payload["preview"])
}

func TestMarkAllReadIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, patientA, false, false)

	for i := 0; i < 3; i++ {
		_, err := f.notes.PostMessage(ctx, admin, apt.ID, "update")
		require.NoError(t, err)
	}

	n, err := f.notes.MarkAllRead(ctx, patientA)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.notes.MarkAllRead(ctx, patientA)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.MessagesMarkedRead))
}

func TestMarkAllReadIsGlobal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	aliceApt := f.book(t, patientA, false, false)
	bobApt := f.book(t, patientB, false, false)

	_, err := f.notes.PostMessage(ctx, admin, aliceApt.ID, "for alice")
	require.NoError(t, err)
	_, err = f.notes.PostMessage(ctx, admin, bobApt.ID, "for bob")
	require.NoError(t, err)
	_, err = f.notes.PostMessage(ctx, patientB, bobApt.ID, "from bob")
	require.NoError(t, err)

	n, err := f.notes.MarkAllRead(ctx, patientA)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "both admin messages, including the one on bob's appointment")

	bob := f.reload(t, bobApt.ID)
	assert.Equal(t, []string{"Admin", "Alice"}, bob.Messages[0].ReadBy)
	assert.Equal(t, []string{"Bob"}, bob.Messages[1].ReadBy, "patient-authored message untouched")
	assert.Equal(t, 1, f.notes.UnreadCountFor(bob, model.RolePatient, "Bob"))
}

func TestNotificationsFor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, patientA, false, false)

	long := strings.Repeat("x", 81)
	_, err := f.notes.PostMessage(ctx, admin, apt.ID, long)
	require.NoError(t, err)
	_, err = f.notes.PostMessage(ctx, admin, apt.ID, "short")
	require.NoError(t, err)
	_, err = f.notes.PostMessage(ctx, patientA, apt.ID, "reply")
	require.NoError(t, err)

	notifs, err := f.notes.NotificationsFor(ctx, patientA)
	require.NoError(t, err)
	require.Len(t, notifs, 2)
	assert.Equal(t, apt.ID, notifs[0].AppointmentID)
	assert.Equal(t, "Admin", notifs[0].Sender)
	assert.Equal(t, strings.Repeat("x", 80)+"...", notifs[0].Text)
	assert.Equal(t, "short", notifs[1].Text)
	assert.WithinDuration(t, time.Now(), notifs[1].Timestamp, time.Minute)

	notifs, err = f.notes.NotificationsFor(ctx, admin)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, "reply", notifs[0].Text)

	notifs, err = f.notes.NotificationsFor(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, notifs)
}

func TestBookingScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt := f.book(t, patientA, true, true)
	assert.Equal(t, int64(1), apt.ID)
	assert.Equal(t, 80, apt.Price)

	apt, err := f.appointments.AssignTransport(ctx, admin, apt.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, model.TransportStatusConfirmed, apt.Transport.Status)
	assert.Equal(t, model.AppointmentStatusTransportConfirmed, apt.Status)

	_, err = f.notes.PostMessage(ctx, admin, apt.ID, "scheduled pickup 9am")
	require.NoError(t, err)

	mine, err := f.appointments.ListForPatient(ctx, patientA.Email)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 1, f.notes.UnreadCountFor(mine[0], patientA.Role, patientA.Name))

	n, err := f.notes.MarkAllRead(ctx, patientA)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mine, err = f.appointments.ListForPatient(ctx, patientA.Email)
	require.NoError(t, err)
	assert.Equal(t, 0, f.notes.UnreadCountFor(mine[0], patientA.Role, patientA.Name))
}
