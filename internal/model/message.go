package model

import "time"

// PreviewLength is the notification preview cut-off in characters.
const PreviewLength = 80

type Message struct {
	ID        int64     `json:"id" db:"id"`
	Sender    string    `json:"sender" db:"sender"`
	Role      Role      `json:"role" db:"role"`
	Text      string    `json:"text" db:"text"`
	Timestamp time.Time `json:"ts" db:"created_at"`
	ReadBy    []string  `json:"read_by" db:"-"`
}

// NewMessage creates a message already read by its author.
func NewMessage(sender *Session, text string, now time.Time) *Message {
	return &Message{
		Sender:    sender.Name,
		Role:      sender.Role,
		Text:      text,
		Timestamp: now.UTC(),
		ReadBy:    []string{sender.Name},
	}
}

// ReadByName reports whether name is in the read set.
func (m *Message) ReadByName(name string) bool {
	for _, n := range m.ReadBy {
		if n == name {
			return true
		}
	}
	return false
}

// UnreadBy is the single predicate behind unread counts, notifications and
// mark-all-read.
func (m *Message) UnreadBy(role Role, name string) bool {
	return m.Role != role && !m.ReadByName(name)
}

// Preview truncates the text for notification listings.
func (m *Message) Preview() string {
	r := []rune(m.Text)
	if len(r) > PreviewLength {
		return string(r[:PreviewLength]) + "..."
	}
	return m.Text
}

func (m *Message) Clone() *Message {
	cp := *m
	cp.ReadBy = append([]string(nil), m.ReadBy...)
	return &cp
}

type MessageRequest struct {
	AppointmentID int64  `form:"appointment_id"`
	Text          string `form:"message" validate:"required"`
}
