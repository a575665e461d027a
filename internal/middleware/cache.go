package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CacheConfig represents cache control configuration
type CacheConfig struct {
	MaxAge         int
	Private        bool
	NoStore        bool
	MustRevalidate bool
	Vary           []string
}

// StaticCacheConfig is used for the embedded assets.
func StaticCacheConfig() CacheConfig {
	return CacheConfig{
		MaxAge: 3600,
	}
}

// Cache adds cache control headers to responses
func Cache(config CacheConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		directives := make([]string, 0, 4)

		switch {
		case config.NoStore:
			directives = append(directives, "no-store")
		case config.Private:
			directives = append(directives, "private")
		default:
			directives = append(directives, "public")
		}

		if config.MaxAge > 0 && !config.NoStore {
			directives = append(directives, "max-age="+strconv.Itoa(config.MaxAge))
		}

		if config.MustRevalidate {
			directives = append(directives, "must-revalidate")
		}

		c.Header("Cache-Control", strings.Join(directives, ", "))
		if config.NoStore {
			c.Header("Pragma", "no-cache")
		}

		if len(config.Vary) > 0 {
			c.Header("Vary", strings.Join(config.Vary, ", "))
		}

		c.Next()
	}
}

// NoStore keeps pages rendered for a signed-in user out of every cache.
func NoStore() gin.HandlerFunc {
	return Cache(CacheConfig{NoStore: true, Vary: []string{"Cookie"}})
}
