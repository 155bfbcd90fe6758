package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/config"
	"github.com/chachabrian/mooveit-admin/internal/middleware"
	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/store"
	"github.com/chachabrian/mooveit-admin/pkg/utils"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func adminJSON(admin models.Admin) gin.H {
	return gin.H{
		"id":        admin.ID,
		"email":     admin.Email,
		"full_name": admin.FullName,
		"role":      admin.Role,
		"initial":   admin.Initial(),
	}
}

// Login checks admin credentials and issues a session token
func Login(admins store.Admins, cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		admin, err := admins.AdminByEmail(c.Request.Context(), input.Email)
		if err != nil {
			var nf *models.NotFoundError
			if !errors.As(err, &nf) {
				log.WithError(err).Error("Admin lookup failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Authentication unavailable"})
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if err := admin.CheckPassword(input.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateToken(&admin, cfg.JWTSecret, cfg.TokenTTL, time.Now())
		if err != nil {
			log.WithError(err).Error("Failed to generate token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		log.WithField("admin_id", admin.ID).Info("Admin logged in")
		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_in": int(cfg.TokenTTL.Seconds()),
			"admin":      adminJSON(admin),
		})
	}
}

// Me returns the authenticated admin profile
func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := middleware.CurrentAdmin(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"admin": adminJSON(admin)})
	}
}
