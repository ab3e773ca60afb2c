package observability

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var startedAt = time.Now()

// StartDiagnostics serves /health and /metrics on addr in the
// background. Failure to serve is logged but never fatal: diagnostics
// are ambient, not part of the coupling protocol.
func StartDiagnostics(addr, node string, corsOrigins []string) {
	if addr == "" {
		return
	}
	RegisterMetrics()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"node":   node,
			"uptime": time.Since(startedAt).String(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	go func() {
		if err := r.Run(addr); err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("diagnostics server stopped")
		}
	}()
}
