package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
	"github.com/jwalitptl/carebook/internal/service/audit"
	"github.com/jwalitptl/carebook/internal/service/event"
	apperrors "github.com/jwalitptl/carebook/pkg/errors"
	"github.com/jwalitptl/carebook/pkg/metrics"
	"github.com/jwalitptl/carebook/pkg/validator"
)

// Service is the per-appointment message log and the unread views derived
// from it. Views are recomputed on every call.
type Service interface {
	PostMessage(ctx context.Context, sender *model.Session, appointmentID int64, text string) (*model.Message, error)
	MarkAllRead(ctx context.Context, viewer *model.Session) (int, error)
	UnreadCountFor(appointment *model.Appointment, role model.Role, name string) int
	NotificationsFor(ctx context.Context, viewer *model.Session) ([]*model.Notification, error)
}

type service struct {
	// guards read receipts between the scan and the write in MarkAllRead
	mu       sync.Mutex
	repo     repository.AppointmentRepository
	events   event.Emitter
	auditor  *audit.Service
	metrics  *metrics.Metrics
	validate validator.Validator
	now      func() time.Time
}

func NewService(repo repository.AppointmentRepository, events event.Emitter, auditor *audit.Service, m *metrics.Metrics) Service {
	return &service{
		repo:     repo,
		events:   events,
		auditor:  auditor,
		metrics:  m,
		validate: validator.New(),
		now:      time.Now,
	}
}

// PostMessage appends a message to the appointment. Any signed-in role may
// post to any appointment id.
func (s *service) PostMessage(ctx context.Context, sender *model.Session, appointmentID int64, text string) (*model.Message, error) {
	if err := requireSession(sender); err != nil {
		return nil, err
	}

	req := &model.MessageRequest{AppointmentID: appointmentID, Text: strings.TrimSpace(text)}
	if err := s.validate.Validate(req); err != nil {
		return nil, apperrors.ErrEmptyMessage
	}

	msg := model.NewMessage(sender, req.Text, s.now())
	if err := s.repo.AddMessage(ctx, appointmentID, msg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.LookupMisses.WithLabelValues("post_message").Inc()
			log.Ctx(ctx).Warn().
				Str("operation", "post_message").
				Int64("appointment_id", appointmentID).
				Msg("appointment not found")
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to add message: %w", err))
	}

	s.metrics.MessagesPosted.WithLabelValues(sender.Role.String()).Inc()
	s.auditor.Log(ctx, sender, "post_message", "appointment", appointmentID, &audit.LogOptions{
		Metadata: map[string]interface{}{"message_id": msg.ID},
	})

	evt := &model.Event{
		Type:          model.EventMessagePosted,
		AppointmentID: appointmentID,
		Actor:         sender.Name,
		ActorRole:     sender.Role,
		Payload: map[string]interface{}{
			"message_id": msg.ID,
			"preview":    msg.Preview(),
		},
	}
	if apt, err := s.repo.Get(ctx, appointmentID); err == nil {
		evt.PatientEmail = apt.PatientEmail
		evt.PatientName = apt.PatientName
	}
	s.events.Emit(ctx, evt)

	return msg, nil
}

// MarkAllRead adds the viewer to the read set of every message, on every
// appointment, that is unread for them. The sweep is global and not limited
// to appointments the viewer owns. It returns how many messages changed.
func (s *service) MarkAllRead(ctx context.Context, viewer *model.Session) (int, error) {
	if err := requireSession(viewer); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	appointments, err := s.repo.List(ctx, nil)
	if err != nil {
		return 0, apperrors.Internal(fmt.Errorf("failed to list appointments: %w", err))
	}

	var ids []int64
	for _, a := range appointments {
		for _, m := range a.Messages {
			if m.UnreadBy(viewer.Role, viewer.Name) {
				ids = append(ids, m.ID)
			}
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.repo.MarkRead(ctx, viewer.Name, ids); err != nil {
		return 0, apperrors.Internal(fmt.Errorf("failed to mark messages read: %w", err))
	}

	s.metrics.MessagesMarkedRead.Add(float64(len(ids)))
	s.auditor.Log(ctx, viewer, "mark_all_read", "message", 0, &audit.LogOptions{
		Metadata: map[string]interface{}{"count": len(ids)},
	})
	return len(ids), nil
}

func (s *service) UnreadCountFor(appointment *model.Appointment, role model.Role, name string) int {
	return appointment.UnreadCount(role, name)
}

// NotificationsFor lists every message unread by the viewer across all
// appointments, in appointment then message order.
func (s *service) NotificationsFor(ctx context.Context, viewer *model.Session) ([]*model.Notification, error) {
	if viewer == nil {
		return nil, nil
	}

	appointments, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list appointments: %w", err))
	}

	var notifs []*model.Notification
	for _, a := range appointments {
		for _, m := range a.Messages {
			if !m.UnreadBy(viewer.Role, viewer.Name) {
				continue
			}
			notifs = append(notifs, &model.Notification{
				AppointmentID: a.ID,
				Sender:        m.Sender,
				Text:          m.Preview(),
				Timestamp:     m.Timestamp,
			})
		}
	}
	return notifs, nil
}

func requireSession(s *model.Session) error {
	if s == nil || !s.Role.Valid() {
		return apperrors.ErrPermissionDenied
	}
	return nil
}
