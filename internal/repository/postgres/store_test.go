package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("CAREBOOK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CAREBOOK_TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, `
		TRUNCATE message_reads, messages, transport_requests, appointments,
		         patient_profiles, users, transport_providers
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)

	store, err := NewStore(ctx, db, []model.TransportProvider{
		{ID: 1, Name: "SafeRide Medical Transport"},
		{ID: 2, Name: "CareVan Services", Contact: "555-0100"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUserRepository(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	u := &model.User{Email: "ann@example.com", Name: "Ann", Role: model.RolePatient, PasswordHash: "hash"}
	require.NoError(t, store.Users().Create(ctx, u))
	assert.Equal(t, int64(1), u.ID)

	err := store.Users().Create(ctx, &model.User{Email: "ann@example.com", Name: "Dup", Role: model.RolePatient, PasswordHash: "x"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := store.Users().GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, model.RolePatient, got.Role)

	_, err = store.Users().GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppointmentLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	repo := store.Appointments()

	a := &model.Appointment{
		PatientEmail:      "ann@example.com",
		PatientName:       "Ann",
		Doctor:            "City Clinic - Outpatient",
		ScheduledFor:      "2026-01-02 09:00",
		Status:            model.AppointmentStatusRequested,
		CollectMedication: true,
		Price:             model.Price(true, true),
		Transport:         model.NewTransport(true, "1 Main St"),
	}
	require.NoError(t, repo.Create(ctx, a))
	assert.Equal(t, int64(1), a.ID)

	provider, err := store.Providers().Get(ctx, 2)
	require.NoError(t, err)
	a.Transport.Provider = provider
	a.Transport.Status = model.TransportStatusConfirmed
	a.Status = model.AppointmentStatusTransportConfirmed
	require.NoError(t, repo.Update(ctx, a))

	admin := &model.Session{Name: "Admin", Role: model.RoleAdmin}
	msg := model.NewMessage(admin, "scheduled pickup 9am", time.Now())
	require.NoError(t, repo.AddMessage(ctx, a.ID, msg))
	require.NoError(t, repo.MarkRead(ctx, "Ann", []int64{msg.ID}))

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.Price)
	assert.Equal(t, model.AppointmentStatusTransportConfirmed, got.Status)
	require.NotNil(t, got.Transport.Provider)
	assert.Equal(t, "555-0100", got.Transport.Provider.Contact)
	require.NotNil(t, got.Transport.PickupAddress)
	assert.Equal(t, "1 Main St", *got.Transport.PickupAddress)
	require.Len(t, got.Messages, 1)
	assert.ElementsMatch(t, []string{"Admin", "Ann"}, got.Messages[0].ReadBy)

	list, err := repo.List(ctx, &model.AppointmentFilters{PatientEmail: "other@example.com"})
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, repo.Update(ctx, &model.Appointment{ID: 42}), repository.ErrNotFound)
	assert.ErrorIs(t, repo.AddMessage(ctx, 42, msg), repository.ErrNotFound)
}
