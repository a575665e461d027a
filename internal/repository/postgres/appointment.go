package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
)

const selectAppointments = `
	SELECT a.id, a.patient_email, a.patient_name, a.doctor, a.scheduled_for,
	       a.status, a.notes, a.collect_medication, a.price, a.created_at,
	       t.requested AS transport_requested,
	       t.pickup_address,
	       t.status AS transport_status,
	       p.id AS provider_id,
	       p.name AS provider_name,
	       p.contact AS provider_contact
	FROM appointments a
	JOIN transport_requests t ON t.appointment_id = a.id
	LEFT JOIN transport_providers p ON p.id = t.provider_id
`

type appointmentRow struct {
	model.Appointment
	TransportRequested bool           `db:"transport_requested"`
	PickupAddress      sql.NullString `db:"pickup_address"`
	TransportStatus    string         `db:"transport_status"`
	ProviderID         sql.NullInt64  `db:"provider_id"`
	ProviderName       sql.NullString `db:"provider_name"`
	ProviderContact    sql.NullString `db:"provider_contact"`
}

func (row *appointmentRow) toModel() *model.Appointment {
	a := row.Appointment
	a.Messages = []*model.Message{}
	a.Transport = model.Transport{
		Requested: row.TransportRequested,
		Status:    row.TransportStatus,
	}
	if row.PickupAddress.Valid {
		addr := row.PickupAddress.String
		a.Transport.PickupAddress = &addr
	}
	if row.ProviderID.Valid {
		a.Transport.Provider = &model.TransportProvider{
			ID:      row.ProviderID.Int64,
			Name:    row.ProviderName.String,
			Contact: row.ProviderContact.String,
		}
	}
	return &a
}

type messageRow struct {
	AppointmentID int64 `db:"appointment_id"`
	model.Message
}

type readRow struct {
	MessageID int64  `db:"message_id"`
	Reader    string `db:"reader"`
}

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			patient_email, patient_name, doctor, scheduled_for,
			status, notes, collect_medication, price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, query,
			appointment.PatientEmail,
			appointment.PatientName,
			appointment.Doctor,
			appointment.ScheduledFor,
			appointment.Status,
			appointment.Notes,
			appointment.CollectMedication,
			appointment.Price,
		).Scan(&appointment.ID, &appointment.CreatedAt); err != nil {
			return err
		}
		return upsertTransport(ctx, tx, appointment.ID, &appointment.Transport)
	})
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	if appointment.Messages == nil {
		appointment.Messages = []*model.Message{}
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	var row appointmentRow
	if err := r.db.GetContext(ctx, &row, selectAppointments+` WHERE a.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	appointments := []*model.Appointment{row.toModel()}
	if err := r.loadMessages(ctx, appointments); err != nil {
		return nil, err
	}
	return appointments[0], nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := selectAppointments
	var args []interface{}
	if filters != nil && filters.PatientEmail != "" {
		query += ` WHERE a.patient_email = $1`
		args = append(args, filters.PatientEmail)
	}
	query += ` ORDER BY a.id`

	var rows []appointmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	appointments := make([]*model.Appointment, len(rows))
	for i := range rows {
		appointments[i] = rows[i].toModel()
	}
	if err := r.loadMessages(ctx, appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE appointments SET status = $1 WHERE id = $2`,
			appointment.Status, appointment.ID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return upsertTransport(ctx, tx, appointment.ID, &appointment.Transport)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

// AddMessage inserts the message and its author's self-read receipt.
func (r *appointmentRepository) AddMessage(ctx context.Context, appointmentID int64, msg *model.Message) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, appointmentID); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}

		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO messages (appointment_id, sender, role, text, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, appointmentID, msg.Sender, msg.Role, msg.Text, msg.Timestamp).Scan(&msg.ID); err != nil {
			return err
		}

		for _, reader := range msg.ReadBy {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO message_reads (message_id, reader) VALUES ($1, $2)
				ON CONFLICT (message_id, reader) DO NOTHING
			`, msg.ID, reader); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}
	return nil
}

func (r *appointmentRepository) MarkRead(ctx context.Context, reader string, messageIDs []int64) error {
	if len(messageIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO message_reads (message_id, reader)
		SELECT unnest($1::bigint[]), $2
		ON CONFLICT (message_id, reader) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(messageIDs), reader); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// loadMessages attaches messages and read receipts in insertion order.
func (r *appointmentRepository) loadMessages(ctx context.Context, appointments []*model.Appointment) error {
	if len(appointments) == 0 {
		return nil
	}
	byID := make(map[int64]*model.Appointment, len(appointments))
	ids := make([]int64, len(appointments))
	for i, a := range appointments {
		byID[a.ID] = a
		ids[i] = a.ID
	}

	var msgs []messageRow
	if err := r.db.SelectContext(ctx, &msgs, `
		SELECT id, appointment_id, sender, role, text, created_at
		FROM messages
		WHERE appointment_id = ANY($1)
		ORDER BY id
	`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	msgIDs := make([]int64, len(msgs))
	byMsg := make(map[int64]*model.Message, len(msgs))
	for i := range msgs {
		m := msgs[i].Message
		m.ReadBy = []string{}
		msgIDs[i] = m.ID
		byMsg[m.ID] = &m
		a := byID[msgs[i].AppointmentID]
		a.Messages = append(a.Messages, &m)
	}

	var reads []readRow
	if err := r.db.SelectContext(ctx, &reads, `
		SELECT message_id, reader FROM message_reads
		WHERE message_id = ANY($1)
		ORDER BY id
	`, pq.Array(msgIDs)); err != nil {
		return fmt.Errorf("failed to load read receipts: %w", err)
	}
	for _, rr := range reads {
		if m, ok := byMsg[rr.MessageID]; ok {
			m.ReadBy = append(m.ReadBy, rr.Reader)
		}
	}
	return nil
}

func upsertTransport(ctx context.Context, tx *sqlx.Tx, appointmentID int64, t *model.Transport) error {
	var providerID sql.NullInt64
	if t.Provider != nil {
		providerID = sql.NullInt64{Int64: t.Provider.ID, Valid: true}
	}
	var pickup sql.NullString
	if t.PickupAddress != nil {
		pickup = sql.NullString{String: *t.PickupAddress, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO transport_requests (appointment_id, requested, pickup_address, status, provider_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (appointment_id) DO UPDATE SET
			requested = EXCLUDED.requested,
			pickup_address = EXCLUDED.pickup_address,
			status = EXCLUDED.status,
			provider_id = EXCLUDED.provider_id
	`, appointmentID, t.Requested, pickup, t.Status, providerID)
	return err
}
