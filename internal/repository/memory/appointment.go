package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
)

type appointmentRepository struct {
	mu            sync.RWMutex
	appointments  []*model.Appointment
	nextMessageID int64
}

func newAppointmentRepository() *appointmentRepository {
	return &appointmentRepository{}
}

// Create appends the appointment and assigns id = count + 1.
func (r *appointmentRepository) Create(_ context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appointment.ID = int64(len(r.appointments) + 1)
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = time.Now()
	}
	if appointment.Messages == nil {
		appointment.Messages = []*model.Message{}
	}
	r.appointments = append(r.appointments, appointment.Clone())
	return nil
}

func (r *appointmentRepository) Get(_ context.Context, id int64) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a := r.find(id)
	if a == nil {
		return nil, repository.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *appointmentRepository) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Appointment, 0, len(r.appointments))
	for _, a := range r.appointments {
		if filters != nil && filters.PatientEmail != "" && a.PatientEmail != filters.PatientEmail {
			continue
		}
		result = append(result, a.Clone())
	}
	return result, nil
}

// Update replaces the mutable fields: status and the transport sub-record.
func (r *appointmentRepository) Update(_ context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.find(appointment.ID)
	if a == nil {
		return repository.ErrNotFound
	}
	a.Status = appointment.Status
	a.Transport = appointment.Clone().Transport
	return nil
}

func (r *appointmentRepository) AddMessage(_ context.Context, appointmentID int64, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.find(appointmentID)
	if a == nil {
		return repository.ErrNotFound
	}
	r.nextMessageID++
	msg.ID = r.nextMessageID
	a.Messages = append(a.Messages, msg.Clone())
	return nil
}

func (r *appointmentRepository) MarkRead(_ context.Context, reader string, messageIDs []int64) error {
	if len(messageIDs) == 0 {
		return nil
	}
	ids := make(map[int64]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.appointments {
		for _, m := range a.Messages {
			if _, ok := ids[m.ID]; ok && !m.ReadByName(reader) {
				m.ReadBy = append(m.ReadBy, reader)
			}
		}
	}
	return nil
}

// find scans in insertion order and returns the first match. Caller holds mu.
func (r *appointmentRepository) find(id int64) *model.Appointment {
	for _, a := range r.appointments {
		if a.ID == id {
			return a
		}
	}
	return nil
}
