// Package memory keeps users and appointments in process memory. Nothing
// survives a restart.
package memory

import (
	"context"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
)

type Store struct {
	users        *userRepository
	appointments *appointmentRepository
	providers    *providerRepository
}

// NewStore creates an empty store seeded with the static provider list.
func NewStore(providers []model.TransportProvider) *Store {
	return &Store{
		users:        newUserRepository(),
		appointments: newAppointmentRepository(),
		providers:    newProviderRepository(providers),
	}
}

func (s *Store) Users() repository.UserRepository {
	return s.users
}

func (s *Store) Appointments() repository.AppointmentRepository {
	return s.appointments
}

func (s *Store) Providers() repository.ProviderRepository {
	return s.providers
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
