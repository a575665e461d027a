package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carebook/internal/handler"
	"github.com/jwalitptl/carebook/internal/handler/view"
	"github.com/jwalitptl/carebook/internal/middleware"
	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/service/audit"
	"github.com/jwalitptl/carebook/internal/service/auth"
	apperrors "github.com/jwalitptl/carebook/pkg/errors"
)

type Handler struct {
	svc      *auth.Service
	sessions *middleware.AuthMiddleware
	views    *view.Renderer
	auditor  *audit.Service
}

func NewHandler(svc *auth.Service, sessions *middleware.AuthMiddleware, views *view.Renderer, auditor *audit.Service) *Handler {
	return &Handler{
		svc:      svc,
		sessions: sessions,
		views:    views,
		auditor:  auditor,
	}
}

// Index sends signed-in callers to their dashboard and shows the landing
// page to everyone else.
func (h *Handler) Index(c *gin.Context) {
	if s := middleware.SessionFrom(c); s != nil {
		c.Redirect(http.StatusFound, s.Dashboard())
		return
	}
	h.views.HTML(c, http.StatusOK, view.PageIndex, nil)
}

func (h *Handler) RegisterForm(c *gin.Context) {
	h.views.HTML(c, http.StatusOK, view.PageRegister, nil)
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		handler.Redirect(c, "/register", apperrors.ErrMissingField.Message)
		return
	}

	if _, err := h.svc.Register(c.Request.Context(), &req); err != nil {
		handler.Fail(c, err, "/register")
		return
	}

	handler.Redirect(c, "/login", "Registration successful - please log in")
}

func (h *Handler) LoginForm(c *gin.Context) {
	h.views.HTML(c, http.StatusOK, view.PageLogin, nil)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		handler.Redirect(c, "/login", apperrors.ErrInvalidCredentials.Message)
		return
	}

	session, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handler.Fail(c, err, "/login")
		return
	}

	if err := h.sessions.Establish(c, session); err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to establish session")
		handler.Redirect(c, "/login", "Something went wrong")
		return
	}

	if session.Is(model.RoleAdmin) {
		handler.Redirect(c, "/admin/dashboard", "Logged in as admin")
		return
	}
	handler.Redirect(c, "/", "Logged in")
}

func (h *Handler) Logout(c *gin.Context) {
	if s := middleware.SessionFrom(c); s != nil {
		h.auditor.Log(c.Request.Context(), s, "logout", "session", 0, nil)
	}
	h.sessions.End(c)
	handler.Redirect(c, "/", "Logged out")
}
