package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/dcmstream/internal/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const version = "0.1.0"

// AdminConfig describes the admin HTTP surface of a long-running tool.
type AdminConfig struct {
	Node        string
	CorsOrigins []string
	// Ready reports whether the node accepts work; nil means always ready.
	Ready func() error
	// Status returns a JSON-serializable snapshot served on /status.
	Status func() any
	// StatusAuth, when set, requires a bearer token on /status.
	StatusAuth auth.Validator
}

// NewAdminRouter returns a gin engine serving /health, /ready, /status and /metrics.
func NewAdminRouter(cfg AdminConfig, logger zerolog.Logger) *gin.Engine {
	RegisterMetrics()
	started := time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(RequestMetricsMiddleware(cfg.Node))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(started).String(),
			"node":    cfg.Node,
			"version": version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		if cfg.Ready != nil {
			if err := cfg.Ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "node": cfg.Node, "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ready": true, "node": cfg.Node, "version": version})
	})

	r.GET("/status", requireToken(cfg.StatusAuth), func(c *gin.Context) {
		if cfg.Status == nil {
			c.JSON(http.StatusOK, gin.H{"node": cfg.Node})
			return
		}
		c.JSON(http.StatusOK, cfg.Status())
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func requireToken(v auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v == nil {
			c.Next()
			return
		}
		token, ok := auth.Bearer(c.GetHeader("Authorization"))
		if !ok || v.Validate(token) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
