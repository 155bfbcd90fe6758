package handlers

import (
	"net/http"

	"github.com/chachabrian/mooveit-admin/internal/config"
	"github.com/chachabrian/mooveit-admin/internal/datasync"
	"github.com/chachabrian/mooveit-admin/internal/middleware"
	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/services"
	"github.com/chachabrian/mooveit-admin/internal/store"
	"github.com/chachabrian/mooveit-admin/internal/verification"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services the HTTP layer is wired to.
type Dependencies struct {
	Syncer   *datasync.Syncer
	Backend  store.Collaborator
	Workflow *verification.Workflow
	Admins   store.Admins
	Auth     *middleware.Authenticator
	AuthCfg  config.AuthConfig
	Hub      *services.Hub
	Docs     *services.DocumentStorage
	Mailer   DecisionMailer
}

// RegisterRoutes mounts the dashboard API under /api.
func RegisterRoutes(router *gin.Engine, d Dependencies) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", Login(d.Admins, d.AuthCfg))
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(d.Auth))
		{
			protected.GET("/auth/me", Me())

			dashboard := protected.Group("/dashboard")
			{
				dashboard.GET("/stats", GetDashboardStats(d.Syncer))
				dashboard.GET("/charts/daily", GetDailyChart(d.Syncer))
				dashboard.GET("/charts/weekly", GetWeeklyChart(d.Syncer))
				dashboard.GET("/health", GetHealth(d.Syncer, d.Hub))
			}

			for _, kind := range []models.EntityKind{models.KindClients, models.KindDrivers, models.KindRides} {
				protected.GET("/"+string(kind), ListEntities(d.Syncer, kind))
				protected.GET("/"+string(kind)+"/:id", GetEntity(d.Syncer, d.Backend, kind))
			}

			verifications := protected.Group("/verifications")
			{
				verifications.GET("", ListVerifications(d.Workflow))
				verifications.GET("/counts", GetVerificationCounts(d.Workflow))
				verifications.GET("/:id", GetVerification(d.Workflow, d.Docs))
				verifications.POST("/:id/approve", middleware.RequireRole(models.RoleAdmin), ApproveVerification(d.Workflow, d.Mailer))
				verifications.POST("/:id/reject", middleware.RequireRole(models.RoleAdmin), RejectVerification(d.Workflow, d.Mailer))
			}

			protected.POST("/sync/:kind/refresh", middleware.RequireRole(models.RoleAdmin), RefreshEntities(d.Syncer))
			protected.GET("/export/:kind", ExportCSV(d.Syncer))
			protected.GET("/ws", WebSocketHandler(d.Hub))
		}
	}
}
