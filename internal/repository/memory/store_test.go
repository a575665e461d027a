package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
)

func testProviders() []model.TransportProvider {
	return []model.TransportProvider{
		{ID: 1, Name: "SafeRide Medical Transport"},
		{ID: 2, Name: "CareVan Services"},
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users := NewStore(nil).Users()

	u := &model.User{Email: "ann@example.com", Name: "Ann", Role: model.RolePatient, PasswordHash: "h"}
	require.NoError(t, users.Create(ctx, u))
	assert.Equal(t, int64(1), u.ID)

	err := users.Create(ctx, &model.User{Email: "ann@example.com", Name: "Other"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := users.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name, "failed duplicate must not overwrite")

	_, err = users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppointmentRepositorySequentialIDsAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewStore(nil).Appointments()

	for i, email := range []string{"a@x", "b@x", "a@x"} {
		a := &model.Appointment{PatientEmail: email, Transport: model.NewTransport(false, "")}
		require.NoError(t, repo.Create(ctx, a))
		assert.Equal(t, int64(i+1), a.ID)
	}

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, a := range all {
		assert.Equal(t, int64(i+1), a.ID)
	}

	mine, err := repo.List(ctx, &model.AppointmentFilters{PatientEmail: "a@x"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, int64(1), mine[0].ID)
	assert.Equal(t, int64(3), mine[1].ID)
}

func TestAppointmentRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewStore(nil).Appointments()

	a := &model.Appointment{Status: model.AppointmentStatusRequested}
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	got.Status = "mutated outside"

	again, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRequested, again.Status)
}

func TestAppointmentRepositoryUpdateAndMessages(t *testing.T) {
	ctx := context.Background()
	repo := NewStore(nil).Appointments()

	a := &model.Appointment{Status: model.AppointmentStatusRequested, Transport: model.NewTransport(true, "1 Main")}
	require.NoError(t, repo.Create(ctx, a))

	a.Status = model.AppointmentStatusTransportConfirmed
	a.Transport.Status = model.TransportStatusConfirmed
	a.Transport.Provider = &model.TransportProvider{ID: 2, Name: "CareVan Services"}
	require.NoError(t, repo.Update(ctx, a))

	admin := &model.Session{Name: "Admin", Role: model.RoleAdmin}
	msg := model.NewMessage(admin, "pickup 9am", time.Now())
	require.NoError(t, repo.AddMessage(ctx, a.ID, msg))
	assert.NotZero(t, msg.ID)

	require.NoError(t, repo.MarkRead(ctx, "Ann", []int64{msg.ID}))
	require.NoError(t, repo.MarkRead(ctx, "Ann", []int64{msg.ID}))

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusTransportConfirmed, got.Status)
	assert.Equal(t, "CareVan Services", got.Transport.Provider.Name)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, []string{"Admin", "Ann"}, got.Messages[0].ReadBy)

	assert.ErrorIs(t, repo.Update(ctx, &model.Appointment{ID: 99}), repository.ErrNotFound)
	assert.ErrorIs(t, repo.AddMessage(ctx, 99, msg), repository.ErrNotFound)
	_, err = repo.Get(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppointmentRepositoryConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	repo := NewStore(nil).Appointments()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Create(ctx, &model.Appointment{PatientEmail: fmt.Sprintf("p%d@x", i)})
		}(i)
	}
	wg.Wait()

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 50)
	for i, a := range all {
		assert.Equal(t, int64(i+1), a.ID)
	}
}

func TestProviderRepository(t *testing.T) {
	ctx := context.Background()
	providers := NewStore(testProviders()).Providers()

	list, err := providers.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "SafeRide Medical Transport", list[0].Name)

	p, err := providers.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "CareVan Services", p.Name)

	_, err = providers.Get(ctx, 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
