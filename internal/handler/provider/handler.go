package provider

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carebook/internal/repository"
	apperrors "github.com/jwalitptl/carebook/pkg/errors"
	"github.com/jwalitptl/carebook/pkg/httputil"
)

type Handler struct {
	providers repository.ProviderRepository
}

func NewHandler(providers repository.ProviderRepository) *Handler {
	return &Handler{providers: providers}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/providers", h.List)
}

// List returns the provider list as a bare JSON array.
func (h *Handler) List(c *gin.Context) {
	providers, err := h.providers.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, providers)
}
