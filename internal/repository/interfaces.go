package repository

import (
	"context"
	"errors"

	"github.com/jwalitptl/carebook/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// All repository interfaces in one file
type (
	// UserRepository stores patient identities keyed by email
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		GetByEmail(ctx context.Context, email string) (*model.User, error)
	}

	// AppointmentRepository is the ordered appointment registry. Returned
	// records are copies; mutations go through Update, AddMessage and MarkRead.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id int64) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		AddMessage(ctx context.Context, appointmentID int64, msg *model.Message) error
		MarkRead(ctx context.Context, reader string, messageIDs []int64) error
	}

	ProviderRepository interface {
		List(ctx context.Context) ([]*model.TransportProvider, error)
		Get(ctx context.Context, id int64) (*model.TransportProvider, error)
	}

	// Store bundles the repositories behind one lifecycle.
	Store interface {
		Users() UserRepository
		Appointments() AppointmentRepository
		Providers() ProviderRepository
		Ping(ctx context.Context) error
		Close() error
	}
)
