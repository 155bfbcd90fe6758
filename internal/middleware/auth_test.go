package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/services"
	"github.com/chachabrian/mooveit-admin/internal/store"
	"github.com/chachabrian/mooveit-admin/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type fakeFirebase struct {
	tokens map[string]services.Identity
}

func (f fakeFirebase) Enabled() bool { return true }

func (f fakeFirebase) VerifyIDToken(_ context.Context, idToken string) (services.Identity, error) {
	if id, ok := f.tokens[idToken]; ok {
		return id, nil
	}
	return services.Identity{}, errors.New("bad token")
}

func newRouter(auth *Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	protected := r.Group("/", AuthMiddleware(auth))
	protected.GET("/me", func(c *gin.Context) {
		admin, _ := CurrentAdmin(c)
		c.JSON(http.StatusOK, gin.H{"id": c.GetString(ContextAdminID), "role": c.GetString(ContextRole), "email": admin.Email})
	})
	protected.POST("/decide", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func fixture(t *testing.T) (*gin.Engine, string, string) {
	t.Helper()
	admins := store.NewMemoryAdmins(
		models.Admin{ID: "a1", FullName: "Admin", Email: "admin@mooveit.app", Role: models.RoleAdmin},
		models.Admin{ID: "v1", FullName: "Viewer", Email: "viewer@mooveit.app", Role: models.RoleViewer},
	)
	auth := NewAuthenticator(secret, fakeFirebase{tokens: map[string]services.Identity{
		"fb-admin":    {UID: "u1", Email: "Admin@MooveIt.app"},
		"fb-stranger": {UID: "u2", Email: "someone@example.com"},
	}}, admins)

	adminToken, err := utils.GenerateToken(&models.Admin{ID: "a1", Role: models.RoleAdmin}, secret, time.Hour, time.Now())
	require.NoError(t, err)
	viewerToken, err := utils.GenerateToken(&models.Admin{ID: "v1", Role: models.RoleViewer}, secret, time.Hour, time.Now())
	require.NoError(t, err)
	return newRouter(auth), adminToken, viewerToken
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, adminToken, _ := fixture(t)

	w := do(r, http.MethodGet, "/me", adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"a1","role":"admin","email":"admin@mooveit.app"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "garbage").Code)

	w = do(r, http.MethodGet, "/me?token="+adminToken, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareFirebaseTokens(t *testing.T) {
	r, _, _ := fixture(t)

	w := do(r, http.MethodGet, "/me", "fb-admin")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"a1"`)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/me", "fb-stranger").Code)
}

func TestAuthMiddlewareRejectsDeletedAdmins(t *testing.T) {
	r, _, _ := fixture(t)
	ghost, err := utils.GenerateToken(&models.Admin{ID: "gone", Role: models.RoleAdmin}, secret, time.Hour, time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/me", ghost).Code)
}

func TestRequireRole(t *testing.T) {
	r, adminToken, viewerToken := fixture(t)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/decide", adminToken).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/decide", viewerToken).Code)
}

func TestAuthenticateWithoutFirebase(t *testing.T) {
	var fb *services.Firebase
	auth := NewAuthenticator(secret, fb, store.NewMemoryAdmins())
	_, err := auth.Authenticate(context.Background(), "fb-admin")
	assert.ErrorIs(t, err, errUnauthorized)
}
