package handlers

import (
	"github.com/chachabrian/mooveit-admin/internal/middleware"
	"github.com/chachabrian/mooveit-admin/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler handles dashboard WebSocket connections
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID := c.GetString(middleware.ContextAdminID)
		role := c.GetString(middleware.ContextRole)

		services.HandleWebSocket(hub, c.Writer, c.Request, adminID, role)
	}
}
