package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-processor/internal/resumes"
	"resume-processor/internal/shared/config"
	"resume-processor/internal/shared/metrics"
	"resume-processor/internal/shared/server/middleware"
	"resume-processor/internal/shared/server/respond"
	"resume-processor/internal/webhooks"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config         config.Config
	ResumeHandler  *resumes.Handler
	WebhookHandler *webhooks.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())

	if deps.ResumeHandler != nil {
		deps.ResumeHandler.RegisterRoutes(api)
	}
	if deps.WebhookHandler != nil {
		api.POST("/webhooks/eventgrid", deps.WebhookHandler.Receive)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
