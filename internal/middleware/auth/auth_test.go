package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tokens "github.com/gravadigital/bienestar-api/internal/auth"
	"github.com/gravadigital/bienestar-api/internal/domain/account"
)

func newRouter(tm *tokens.TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", RequireToken(tm))
	api.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, Actor(c).ID.String())
	})
	api.GET("/admin", RequireStaff(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireToken(t *testing.T) {
	tm := tokens.NewTokenManager("secret", "test", time.Hour)
	r := newRouter(tm)
	acc := account.NewAccount("ana", "ana@example.com")

	token, err := tm.Generate(acc)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/me", "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/me", "Bearer not-a-jwt").Code)

	w := get(r, "/api/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, acc.ID.String(), w.Body.String())
}

func TestRequireStaff(t *testing.T) {
	tm := tokens.NewTokenManager("secret", "test", time.Hour)
	r := newRouter(tm)

	member := account.NewAccount("ana", "ana@example.com")
	memberToken, err := tm.Generate(member)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/admin", "Bearer "+memberToken).Code)

	admin := account.NewAccount("admin", "admin@example.com")
	admin.IsStaff = true
	adminToken, err := tm.Generate(admin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, get(r, "/api/admin", "Bearer "+adminToken).Code)
}
