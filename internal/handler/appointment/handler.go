package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carebook/internal/handler"
	"github.com/jwalitptl/carebook/internal/handler/view"
	"github.com/jwalitptl/carebook/internal/middleware"
	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/service/appointment"
	"github.com/jwalitptl/carebook/internal/service/notification"
)

const adminDashboard = "/admin/dashboard"

// AppointmentView is an appointment annotated for the viewing user.
type AppointmentView struct {
	*model.Appointment
	Unread int
}

type Handler struct {
	service *appointment.Service
	notes   notification.Service
	views   *view.Renderer
	doctors []string
}

func NewHandler(service *appointment.Service, notes notification.Service, views *view.Renderer, doctors []string) *Handler {
	return &Handler{
		service: service,
		notes:   notes,
		views:   views,
		doctors: doctors,
	}
}

func (h *Handler) BookForm(c *gin.Context) {
	h.views.HTML(c, http.StatusOK, view.PageBook, gin.H{
		"doctors":        h.doctors,
		"base_price":     model.BasePrice,
		"transport_fee":  model.TransportFee,
		"medication_fee": model.MedicationPickupFee,
	})
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookRequest
	if err := c.ShouldBind(&req); err != nil {
		handler.Redirect(c, "/book", "Something went wrong")
		return
	}

	if _, err := h.service.Create(c.Request.Context(), middleware.SessionFrom(c), &req); err != nil {
		handler.Fail(c, err, "/")
		return
	}

	handler.Redirect(c, "/patient/dashboard", "Appointment requested")
}

func (h *Handler) PatientDashboard(c *gin.Context) {
	s := middleware.SessionFrom(c)

	list, err := h.service.ListForPatient(c.Request.Context(), s.Email)
	if err != nil {
		handler.Fail(c, err, "/")
		return
	}

	h.views.HTML(c, http.StatusOK, view.PagePatientDashboard, gin.H{
		"appointments": h.annotate(list, s),
	})
}

func (h *Handler) AdminDashboard(c *gin.Context) {
	s := middleware.SessionFrom(c)

	list, err := h.service.ListAll(c.Request.Context(), s)
	if err != nil {
		handler.Fail(c, err, "/")
		return
	}

	providers, err := h.service.Providers(c.Request.Context())
	if err != nil {
		handler.Fail(c, err, "/")
		return
	}

	h.views.HTML(c, http.StatusOK, view.PageAdminDashboard, gin.H{
		"appointments": h.annotate(list, s),
		"providers":    providers,
	})
}

func (h *Handler) AssignTransport(c *gin.Context) {
	_, err := h.service.AssignTransport(
		c.Request.Context(),
		middleware.SessionFrom(c),
		handler.FormID(c, "appointment_id"),
		handler.FormID(c, "provider_id"),
	)
	if err != nil {
		handler.Fail(c, err, adminDashboard)
		return
	}
	handler.Redirect(c, adminDashboard, "Assigned transport")
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	_, err := h.service.UpdateStatus(
		c.Request.Context(),
		middleware.SessionFrom(c),
		handler.FormID(c, "appointment_id"),
		c.PostForm("status"),
	)
	if err != nil {
		handler.Fail(c, err, adminDashboard)
		return
	}
	handler.Redirect(c, adminDashboard, "Updated status")
}

func (h *Handler) annotate(list []*model.Appointment, s *model.Session) []AppointmentView {
	views := make([]AppointmentView, len(list))
	for i, a := range list {
		views[i] = AppointmentView{
			Appointment: a,
			Unread:      h.notes.UnreadCountFor(a, s.Role, s.Name),
		}
	}
	return views
}
