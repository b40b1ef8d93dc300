package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/config"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/api/handler"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/api/middleware"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/jwt"
)

const (
	maxBodyBytes  = 1 << 20
	triggerLimit  = 6
	triggerWindow = time.Minute
	adminRole     = "admin"
)

// Setup builds the admin HTTP engine. rl may be nil (no Redis); gatherer serves /metrics.
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rl middleware.RateLimiter, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── probes ──
	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		maintenance := v1.Group("/maintenance")
		maintenance.Use(middleware.JWTAuth(jwtMgr), middleware.RoleAuth(adminRole))
		{
			// triggers write, so they are rate limited per admin client
			limited := middleware.RateLimit(rl, triggerLimit, triggerWindow)
			maintenance.POST("/cleanup", limited, h.Maintenance.Cleanup)
			maintenance.POST("/reminders/run", limited, h.Maintenance.RunReminders)
			maintenance.POST("/calendar/run", limited, h.Maintenance.RunCalendar)

			maintenance.GET("/statistics", h.Maintenance.Statistics)
			maintenance.GET("/runs", h.Maintenance.ListRuns)
			maintenance.GET("/runs/export", h.Maintenance.ExportRuns)
			maintenance.GET("/deadlines.ics", h.Maintenance.DeadlineFeed)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 10404, "message": "not found"})
	})

	return r
}
