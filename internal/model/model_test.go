package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/carebook/pkg/errors"
)

func TestPrice(t *testing.T) {
	assert.Equal(t, 50, Price(false, false))
	assert.Equal(t, 70, Price(true, false))
	assert.Equal(t, 60, Price(false, true))
	assert.Equal(t, 80, Price(true, true))
}

func TestNewTransport(t *testing.T) {
	none := NewTransport(false, "ignored")
	assert.False(t, none.Requested)
	assert.Nil(t, none.PickupAddress)
	assert.Equal(t, TransportStatusNotApplicable, none.Status)

	wanted := NewTransport(true, "12 Elm St")
	assert.True(t, wanted.Requested)
	require.NotNil(t, wanted.PickupAddress)
	assert.Equal(t, "12 Elm St", *wanted.PickupAddress)
	assert.Equal(t, TransportStatusRequested, wanted.Status)
	assert.Nil(t, wanted.Provider)
}

func TestMessageUnreadBy(t *testing.T) {
	patient := &Session{Name: "Ann Lee", Role: RolePatient}
	msg := NewMessage(patient, "hi", time.Now())

	assert.Equal(t, []string{"Ann Lee"}, msg.ReadBy)
	assert.False(t, msg.UnreadBy(RolePatient, "Ann Lee"))
	assert.False(t, msg.UnreadBy(RolePatient, "Bob"), "same role never counts as unread")
	assert.True(t, msg.UnreadBy(RoleAdmin, "Admin"))

	msg.ReadBy = append(msg.ReadBy, "Admin")
	assert.False(t, msg.UnreadBy(RoleAdmin, "Admin"))
}

func TestMessagePreview(t *testing.T) {
	short := &Message{Text: "pickup at 9"}
	assert.Equal(t, "pickup at 9", short.Preview())

	exact := &Message{Text: strings.Repeat("a", PreviewLength)}
	assert.Equal(t, exact.Text, exact.Preview())

	long := &Message{Text: strings.Repeat("é", PreviewLength+5)}
	assert.Equal(t, strings.Repeat("é", PreviewLength)+"...", long.Preview())
}

func TestSessionInitialsAndGuard(t *testing.T) {
	s := &Session{Name: "ann marie lee", Role: RolePatient}
	assert.Equal(t, "AM", s.Initials())
	assert.Equal(t, "A", (&Session{Name: "Admin"}).Initials())
	assert.Equal(t, "", (&Session{Name: "  "}).Initials())

	assert.NoError(t, s.Require(RolePatient))
	assert.ErrorIs(t, s.Require(RoleAdmin), apperrors.ErrPermissionDenied)

	var anon *Session
	assert.ErrorIs(t, anon.Require(RolePatient), apperrors.ErrPermissionDenied)
	assert.Equal(t, "/patient/dashboard", s.Dashboard())
	assert.Equal(t, "/admin/dashboard", (&Session{Role: RoleAdmin}).Dashboard())
}

func TestAppointmentCloneIsDeep(t *testing.T) {
	orig := &Appointment{
		ID:        1,
		Transport: NewTransport(true, "1 Main St"),
		Messages:  []*Message{NewMessage(&Session{Name: "Admin", Role: RoleAdmin}, "hello", time.Now())},
	}
	orig.Transport.Provider = &TransportProvider{ID: 2, Name: "CareVan Services"}

	cp := orig.Clone()
	*cp.Transport.PickupAddress = "changed"
	cp.Transport.Provider.Name = "changed"
	cp.Messages[0].ReadBy = append(cp.Messages[0].ReadBy, "Ann")

	assert.Equal(t, "1 Main St", *orig.Transport.PickupAddress)
	assert.Equal(t, "CareVan Services", orig.Transport.Provider.Name)
	assert.Equal(t, []string{"Admin"}, orig.Messages[0].ReadBy)
	assert.Equal(t, 1, orig.UnreadCount(RolePatient, "Ann"))
	assert.Equal(t, 0, cp.UnreadCount(RolePatient, "Ann"))
}
