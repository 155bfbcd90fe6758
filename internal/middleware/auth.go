package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/services"
	"github.com/chachabrian/mooveit-admin/internal/store"
	"github.com/chachabrian/mooveit-admin/pkg/utils"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Context keys set by AuthMiddleware
const (
	ContextAdminID = "userId"
	ContextRole    = "role"
	ContextAdmin   = "admin"
)

// IDTokenVerifier verifies third-party identity tokens.
type IDTokenVerifier interface {
	Enabled() bool
	VerifyIDToken(ctx context.Context, idToken string) (services.Identity, error)
}

// Authenticator resolves a bearer token to a dashboard admin. Session JWTs
// issued by the login endpoint are tried first, then Firebase ID tokens.
type Authenticator struct {
	secret   string
	firebase IDTokenVerifier
	admins   store.Admins
}

func NewAuthenticator(secret string, firebase IDTokenVerifier, admins store.Admins) *Authenticator {
	return &Authenticator{secret: secret, firebase: firebase, admins: admins}
}

var errUnauthorized = errors.New("invalid token")

// Authenticate returns the admin owning tokenString.
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (models.Admin, error) {
	if claims, err := utils.ValidateToken(tokenString, a.secret); err == nil {
		admin, err := a.admins.AdminByID(ctx, claims.AdminID)
		if err != nil {
			return models.Admin{}, err
		}
		return admin, nil
	}

	if a.firebase == nil || !a.firebase.Enabled() {
		return models.Admin{}, errUnauthorized
	}
	identity, err := a.firebase.VerifyIDToken(ctx, tokenString)
	if err != nil {
		return models.Admin{}, errUnauthorized
	}
	if identity.Email == "" {
		return models.Admin{}, errUnauthorized
	}
	return a.admins.AdminByEmail(ctx, identity.Email)
}

func bearerToken(c *gin.Context) string {
	// First try to get token from Authorization header
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	// If not found in header, try query parameter (for WebSocket)
	return c.Query("token")
}

func AuthMiddleware(auth *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header or token query parameter required"})
			return
		}

		admin, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			var nf *models.NotFoundError
			switch {
			case errors.As(err, &nf):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not an admin account"})
			case errors.Is(err, errUnauthorized):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			default:
				log.WithError(err).Error("Admin lookup failed")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Authentication unavailable"})
			}
			return
		}

		c.Set(ContextAdminID, admin.ID)
		c.Set(ContextRole, string(admin.Role))
		c.Set(ContextAdmin, admin)
		c.Next()
	}
}

// RequireRole lets the request through only for the given roles.
func RequireRole(roles ...models.AdminRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.AdminRole(c.GetString(ContextRole))
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// CurrentAdmin returns the admin set by AuthMiddleware.
func CurrentAdmin(c *gin.Context) (models.Admin, bool) {
	v, ok := c.Get(ContextAdmin)
	if !ok {
		return models.Admin{}, false
	}
	admin, ok := v.(models.Admin)
	return admin, ok
}
