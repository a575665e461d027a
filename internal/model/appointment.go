package model

import "time"

// Appointment statuses set by the system. Admins may set any other text.
const (
	AppointmentStatusRequested          = "Requested"
	AppointmentStatusTransportConfirmed = "Transport Confirmed"
)

// Transport statuses
const (
	TransportStatusNotApplicable = "N/A"
	TransportStatusRequested     = "Requested"
	TransportStatusConfirmed     = "Confirmed"
)

// Tariff used to price a booking.
const (
	BasePrice           = 50
	TransportFee        = 20
	MedicationPickupFee = 10
)

type Appointment struct {
	ID                int64      `json:"id" db:"id"`
	PatientEmail      string     `json:"patient_email" db:"patient_email"`
	PatientName       string     `json:"patient_name" db:"patient_name"`
	Doctor            string     `json:"doctor" db:"doctor"`
	ScheduledFor      string     `json:"datetime" db:"scheduled_for"`
	Status            string     `json:"status" db:"status"`
	Notes             string     `json:"notes" db:"notes"`
	CollectMedication bool       `json:"collect_medication" db:"collect_medication"`
	Price             int        `json:"price" db:"price"`
	Messages          []*Message `json:"messages" db:"-"`
	Transport         Transport  `json:"transport" db:"-"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// Transport is the transport sub-record embedded in every appointment.
type Transport struct {
	Requested     bool               `json:"requested"`
	PickupAddress *string            `json:"pickup_address"`
	Status        string             `json:"status"`
	Provider      *TransportProvider `json:"provider"`
}

// NewTransport builds the initial sub-record for a booking.
func NewTransport(requested bool, pickupAddress string) Transport {
	if !requested {
		return Transport{Status: TransportStatusNotApplicable}
	}
	return Transport{
		Requested:     true,
		PickupAddress: &pickupAddress,
		Status:        TransportStatusRequested,
	}
}

// Price computes the booking price from the fixed tariff.
func Price(needsTransport, collectMedication bool) int {
	price := BasePrice
	if needsTransport {
		price += TransportFee
	}
	if collectMedication {
		price += MedicationPickupFee
	}
	return price
}

// UnreadCount counts messages from the other role not yet read by name.
func (a *Appointment) UnreadCount(role Role, name string) int {
	count := 0
	for _, m := range a.Messages {
		if m.UnreadBy(role, name) {
			count++
		}
	}
	return count
}

// Clone returns a deep copy so callers never share registry state.
func (a *Appointment) Clone() *Appointment {
	cp := *a
	if a.Transport.PickupAddress != nil {
		addr := *a.Transport.PickupAddress
		cp.Transport.PickupAddress = &addr
	}
	if a.Transport.Provider != nil {
		p := *a.Transport.Provider
		cp.Transport.Provider = &p
	}
	cp.Messages = make([]*Message, len(a.Messages))
	for i, m := range a.Messages {
		cp.Messages[i] = m.Clone()
	}
	return &cp
}

type BookRequest struct {
	Doctor            string `form:"doctor"`
	Date              string `form:"date"`
	Time              string `form:"time"`
	NeedsTransport    string `form:"needs_transport"`
	PickupAddress     string `form:"pickup_address"`
	Notes             string `form:"notes"`
	CollectMedication string `form:"collect_medication"`
}

// WantsTransport mirrors the booking form's yes/no select.
func (r *BookRequest) WantsTransport() bool {
	return r.NeedsTransport == "yes"
}

// WantsMedication is true for any non-empty checkbox value.
func (r *BookRequest) WantsMedication() bool {
	return r.CollectMedication != ""
}

type AppointmentFilters struct {
	PatientEmail string
}
