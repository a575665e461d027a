package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carebook/internal/middleware"
	apperrors "github.com/jwalitptl/carebook/pkg/errors"
)

// FormID reads an integer form field. A missing or malformed value yields 0,
// which never matches a stored record and so surfaces as a lookup miss.
func FormID(c *gin.Context, field string) int64 {
	id, err := strconv.ParseInt(c.PostForm(field), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Redirect sends the browser to path with an optional notice.
func Redirect(c *gin.Context, path string, notice string) {
	if notice != "" {
		middleware.AddFlash(c, notice)
	}
	c.Redirect(http.StatusFound, path)
}

// Fail converts an error into a notice plus redirect. Lookup misses are
// already logged and counted by the services and redirect without a notice.
func Fail(c *gin.Context, err error, path string) {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		c.Redirect(http.StatusFound, path)
	case apperrors.KindInternal, "":
		log.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		Redirect(c, path, "Something went wrong")
	default:
		Redirect(c, path, apperrors.Message(err))
	}
}
