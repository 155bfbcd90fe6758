package handlers

import (
	"net/http"

	"github.com/chachabrian/mooveit-admin/internal/datasync"
	"github.com/chachabrian/mooveit-admin/internal/services"
	"github.com/chachabrian/mooveit-admin/pkg/utils"
	"github.com/gin-gonic/gin"
)

// GetDashboardStats returns the stat cards of the dashboard page
func GetDashboardStats(syncer *datasync.Syncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := syncer.Stats()
		c.JSON(http.StatusOK, gin.H{
			"stats":         stats,
			"revenue_label": utils.FormatCurrency(stats.Revenue),
			"verifications": syncer.VerificationCounts(),
		})
	}
}

// GetDailyChart returns the rides-per-day chart series
func GetDailyChart(syncer *datasync.Syncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"buckets": syncer.DayBuckets()})
	}
}

// GetWeeklyChart returns the revenue-per-week chart series
func GetWeeklyChart(syncer *datasync.Syncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"buckets": syncer.WeekBuckets()})
	}
}

// GetHealth reports cache freshness and connected dashboards
func GetHealth(syncer *datasync.Syncer, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := syncer.Health()
		status := "ok"
		if health.Degraded {
			status = "degraded"
		}
		dashboards := 0
		if hub != nil {
			dashboards = hub.GetConnectedClients()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     status,
			"sync":       health,
			"dashboards": dashboards,
		})
	}
}
