package notification

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carebook/internal/handler"
	"github.com/jwalitptl/carebook/internal/middleware"
	"github.com/jwalitptl/carebook/internal/service/notification"
	apperrors "github.com/jwalitptl/carebook/pkg/errors"
)

type Handler struct {
	svc notification.Service
}

func NewHandler(svc notification.Service) *Handler {
	return &Handler{svc: svc}
}

// PostMessage appends to an appointment thread and returns the caller to
// their dashboard. An empty message goes back to the home page.
func (h *Handler) PostMessage(c *gin.Context) {
	s := middleware.SessionFrom(c)

	_, err := h.svc.PostMessage(c.Request.Context(), s, handler.FormID(c, "appointment_id"), c.PostForm("message"))
	switch {
	case err == nil:
		handler.Redirect(c, s.Dashboard(), "Message sent")
	case apperrors.KindOf(err) == apperrors.KindEmptyMessage:
		handler.Redirect(c, "/", apperrors.Message(err))
	default:
		handler.Fail(c, err, s.Dashboard())
	}
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	s := middleware.SessionFrom(c)

	n, err := h.svc.MarkAllRead(c.Request.Context(), s)
	if err != nil {
		handler.Fail(c, err, s.Dashboard())
		return
	}
	handler.Redirect(c, s.Dashboard(), fmt.Sprintf("Marked %d messages as read", n))
}
