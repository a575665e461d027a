package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
	"github.com/jwalitptl/carebook/internal/service/audit"
	"github.com/jwalitptl/carebook/internal/service/event"
	apperrors "github.com/jwalitptl/carebook/pkg/errors"
	"github.com/jwalitptl/carebook/pkg/metrics"
)

const msgOnlyPatientsBook = "Only patients can book appointments"

// Service is the appointment registry. Every read-modify-write runs under mu
// so that multi-field updates such as transport assignment are never
// interleaved.
type Service struct {
	mu        sync.Mutex
	repo      repository.AppointmentRepository
	providers repository.ProviderRepository
	events    event.Emitter
	auditor   *audit.Service
	metrics   *metrics.Metrics
}

func NewService(repo repository.AppointmentRepository, providers repository.ProviderRepository,
	events event.Emitter, auditor *audit.Service, m *metrics.Metrics) *Service {
	return &Service{
		repo:      repo,
		providers: providers,
		events:    events,
		auditor:   auditor,
		metrics:   m,
	}
}

// Create books an appointment for the calling patient.
func (s *Service) Create(ctx context.Context, session *model.Session, req *model.BookRequest) (*model.Appointment, error) {
	if !session.Is(model.RolePatient) {
		return nil, apperrors.NewPermissionDenied(msgOnlyPatientsBook)
	}

	needsTransport := req.WantsTransport()
	collectMedication := req.WantsMedication()

	apt := &model.Appointment{
		PatientEmail:      session.Email,
		PatientName:       session.Name,
		Doctor:            req.Doctor,
		ScheduledFor:      fmt.Sprintf("%s %s", req.Date, req.Time),
		Status:            model.AppointmentStatusRequested,
		Notes:             strings.TrimSpace(req.Notes),
		CollectMedication: collectMedication,
		Price:             model.Price(needsTransport, collectMedication),
		Transport:         model.NewTransport(needsTransport, req.PickupAddress),
	}

	s.mu.Lock()
	err := s.repo.Create(ctx, apt)
	s.mu.Unlock()
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create appointment: %w", err))
	}

	s.metrics.AppointmentsBooked.Inc()
	s.auditor.Log(ctx, session, "book", "appointment", apt.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"doctor":          apt.Doctor,
			"price":           apt.Price,
			"needs_transport": needsTransport,
		},
	})
	s.emit(ctx, session, apt, model.EventAppointmentBooked, map[string]interface{}{
		"doctor":   apt.Doctor,
		"datetime": apt.ScheduledFor,
		"price":    apt.Price,
	})

	return apt, nil
}

// ListForPatient returns the patient's appointments in creation order.
func (s *Service) ListForPatient(ctx context.Context, email string) ([]*model.Appointment, error) {
	list, err := s.repo.List(ctx, &model.AppointmentFilters{PatientEmail: email})
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list appointments: %w", err))
	}
	return list, nil
}

// ListAll returns every appointment in creation order. Admin only.
func (s *Service) ListAll(ctx context.Context, session *model.Session) ([]*model.Appointment, error) {
	if err := session.Require(model.RoleAdmin); err != nil {
		return nil, err
	}
	list, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list appointments: %w", err))
	}
	return list, nil
}

// Providers returns the static transport provider list.
func (s *Service) Providers(ctx context.Context) ([]*model.TransportProvider, error) {
	list, err := s.providers.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list providers: %w", err))
	}
	return list, nil
}

// AssignTransport attaches a provider and confirms transport regardless of
// the current status. An unknown provider id leaves the provider empty.
func (s *Service) AssignTransport(ctx context.Context, session *model.Session, appointmentID, providerID int64) (*model.Appointment, error) {
	if err := session.Require(model.RoleAdmin); err != nil {
		return nil, err
	}

	s.mu.Lock()
	apt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		s.mu.Unlock()
		return nil, s.lookupFailed(ctx, "assign_transport", appointmentID, err)
	}

	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.mu.Unlock()
			return nil, apperrors.Internal(fmt.Errorf("failed to get provider: %w", err))
		}
		log.Ctx(ctx).Warn().
			Int64("appointment_id", appointmentID).
			Int64("provider_id", providerID).
			Msg("transport provider not found, assigning none")
		provider = nil
	}

	apt.Transport.Provider = provider
	apt.Transport.Status = model.TransportStatusConfirmed
	apt.Status = model.AppointmentStatusTransportConfirmed

	err = s.repo.Update(ctx, apt)
	s.mu.Unlock()
	if err != nil {
		return nil, s.lookupFailed(ctx, "assign_transport", appointmentID, err)
	}

	s.metrics.TransportAssigned.Inc()
	payload := map[string]interface{}{"provider_id": providerID}
	if provider != nil {
		payload["provider_name"] = provider.Name
	}
	s.auditor.Log(ctx, session, "assign_transport", "appointment", apt.ID, &audit.LogOptions{Metadata: payload})
	s.emit(ctx, session, apt, model.EventTransportAssigned, payload)

	return apt, nil
}

// UpdateStatus sets a free-form status. Appointments without requested
// transport always keep transport status "N/A".
func (s *Service) UpdateStatus(ctx context.Context, session *model.Session, appointmentID int64, status string) (*model.Appointment, error) {
	if err := session.Require(model.RoleAdmin); err != nil {
		return nil, err
	}

	s.mu.Lock()
	apt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		s.mu.Unlock()
		return nil, s.lookupFailed(ctx, "update_status", appointmentID, err)
	}

	previous := apt.Status
	apt.Status = status
	if !apt.Transport.Requested {
		apt.Transport.Status = model.TransportStatusNotApplicable
	}

	err = s.repo.Update(ctx, apt)
	s.mu.Unlock()
	if err != nil {
		return nil, s.lookupFailed(ctx, "update_status", appointmentID, err)
	}

	s.metrics.StatusUpdates.Inc()
	payload := map[string]interface{}{"from": previous, "to": status}
	s.auditor.Log(ctx, session, "update_status", "appointment", apt.ID, &audit.LogOptions{Metadata: payload})
	s.emit(ctx, session, apt, model.EventStatusUpdated, payload)

	return apt, nil
}

// lookupFailed turns a repository miss into a structured NotFound that is
// logged and counted. Other errors become internal errors.
func (s *Service) lookupFailed(ctx context.Context, operation string, appointmentID int64, err error) error {
	if !errors.Is(err, repository.ErrNotFound) {
		return apperrors.Internal(fmt.Errorf("failed to %s: %w", strings.ReplaceAll(operation, "_", " "), err))
	}
	s.metrics.LookupMisses.WithLabelValues(operation).Inc()
	log.Ctx(ctx).Warn().
		Str("operation", operation).
		Int64("appointment_id", appointmentID).
		Msg("appointment not found")
	return apperrors.NotFound("appointment", err)
}

func (s *Service) emit(ctx context.Context, actor *model.Session, apt *model.Appointment, eventType string, payload map[string]interface{}) {
	s.events.Emit(ctx, &model.Event{
		Type:          eventType,
		AppointmentID: apt.ID,
		PatientEmail:  apt.PatientEmail,
		PatientName:   apt.PatientName,
		Actor:         actor.Name,
		ActorRole:     actor.Role,
		Payload:       payload,
	})
}
