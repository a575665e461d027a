package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	flashCookie    = "flash"
	contextFlashes = "flashes"
)

// AddFlash queues a one-shot notice for the next rendered page. Notices
// survive redirects until a page consumes them.
func AddFlash(c *gin.Context, message string) {
	pending := append(pendingFlashes(c), message)
	c.Set(contextFlashes, pending)
	writeFlashCookie(c, pending)
}

// ConsumeFlashes returns queued notices and clears them.
func ConsumeFlashes(c *gin.Context) []string {
	msgs := pendingFlashes(c)
	c.Set(contextFlashes, []string{})
	if _, err := c.Cookie(flashCookie); err == nil || len(msgs) > 0 {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	}
	return msgs
}

func pendingFlashes(c *gin.Context) []string {
	if v, ok := c.Get(contextFlashes); ok {
		if msgs, ok := v.([]string); ok {
			return msgs
		}
	}

	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var msgs []string
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil
	}
	return msgs
}

func writeFlashCookie(c *gin.Context, msgs []string) {
	data, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, base64.RawURLEncoding.EncodeToString(data), 0, "/", "", false, true)
}
