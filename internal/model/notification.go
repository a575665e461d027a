package model

import "time"

// Notification is a derived view of one unread message.
type Notification struct {
	AppointmentID int64     `json:"appointment_id"`
	Sender        string    `json:"sender"`
	Text          string    `json:"text"`
	Timestamp     time.Time `json:"ts"`
}
