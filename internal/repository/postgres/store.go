package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
)

// Store is the relational counterpart of memory.Store.
type Store struct {
	db           *sqlx.DB
	users        repository.UserRepository
	appointments repository.AppointmentRepository
	providers    *providerRepository
}

// NewStore applies the schema and seeds the provider list.
func NewStore(ctx context.Context, db *sqlx.DB, providers []model.TransportProvider) (*Store, error) {
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}

	base := NewBaseRepository(db)
	s := &Store{
		db:           db,
		users:        NewUserRepository(base),
		appointments: NewAppointmentRepository(base),
		providers:    &providerRepository{base},
	}
	if err := s.providers.Seed(ctx, providers); err != nil {
		return nil, fmt.Errorf("failed to seed providers: %w", err)
	}
	return s, nil
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

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
