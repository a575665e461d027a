package model

import "time"

// Appointment event types published to the broker.
const (
	EventAppointmentBooked = "appointment.booked"
	EventTransportAssigned = "transport.assigned"
	EventStatusUpdated     = "status.updated"
	EventMessagePosted     = "message.posted"
)

type Event struct {
	Type          string                 `json:"type"`
	AppointmentID int64                  `json:"appointment_id"`
	PatientEmail  string                 `json:"patient_email"`
	PatientName   string                 `json:"patient_name"`
	Actor         string                 `json:"actor"`
	ActorRole     Role                   `json:"actor_role"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}
