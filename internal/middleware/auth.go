package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/pkg/auth"
)

const ContextSession = "session"

type SessionConfig struct {
	CookieName string
	Secure     bool
}

// AuthMiddleware keeps the caller's session in a signed cookie.
type AuthMiddleware struct {
	tokens *auth.TokenManager
	config SessionConfig
}

func NewAuthMiddleware(tokens *auth.TokenManager, config SessionConfig) *AuthMiddleware {
	if config.CookieName == "" {
		config.CookieName = "session"
	}
	return &AuthMiddleware{
		tokens: tokens,
		config: config,
	}
}

// LoadSession resolves the session cookie, if any. A bad or revoked token is
// dropped and the request continues anonymously.
func (m *AuthMiddleware) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(m.config.CookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		session, err := m.tokens.Parse(token)
		if err != nil {
			log.Ctx(c.Request.Context()).Debug().Err(err).Msg("discarding session cookie")
			m.clearCookie(c)
			c.Next()
			return
		}

		c.Set(ContextSession, session)
		c.Next()
	}
}

// Establish signs the session into the cookie.
func (m *AuthMiddleware) Establish(c *gin.Context, session *model.Session) error {
	token, err := m.tokens.Issue(session)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.config.CookieName, token, int(m.tokens.TTL().Seconds()), "/", "", m.config.Secure, true)
	c.Set(ContextSession, session)
	return nil
}

// End revokes the current token and clears the cookie.
func (m *AuthMiddleware) End(c *gin.Context) {
	if token, err := c.Cookie(m.config.CookieName); err == nil && token != "" {
		m.tokens.Revoke(token)
	}
	m.clearCookie(c)
	c.Set(ContextSession, (*model.Session)(nil))
}

func (m *AuthMiddleware) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.config.CookieName, "", -1, "/", "", m.config.Secure, true)
}

// SessionFrom returns the caller's session or nil.
func SessionFrom(c *gin.Context) *model.Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	s, _ := v.(*model.Session)
	return s
}

// RequireLogin sends anonymous callers to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFrom(c) == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole flashes message and sends the caller home unless the session
// carries role.
func RequireRole(role model.Role, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SessionFrom(c).Is(role) {
			AddFlash(c, message)
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}
