package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-hostel/models"
)

func init() {
	gin.SetMode(gin.TestMode)
	InitJWT("test-secret", time.Hour)
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("tenant-1", "Asha", models.IdentityTenant)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", claims.UserID)
	assert.Equal(t, "Asha", claims.Name)
	assert.Equal(t, models.IdentityTenant, claims.Identity)
	assert.Equal(t, "pg-hostel", claims.Issuer)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	claims := Claims{
		UserID:   "1",
		Identity: models.IdentityAdministrator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)

	_, err = ParseToken(forged)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	claims := Claims{
		UserID: "1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = ParseToken(expired)
	assert.Error(t, err)
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	ok := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserID)})
	}
	r.GET("/any", AuthMiddleware(), ok)
	r.GET("/admin", AuthMiddleware(), AdminMiddleware(), ok)
	r.GET("/tenant", AuthMiddleware(), TenantMiddleware(), ok)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newAuthRouter()
	adminToken, err := GenerateToken("1", "admin", models.IdentityAdministrator)
	require.NoError(t, err)
	tenantToken, err := GenerateToken("t-1", "Asha", models.IdentityTenant)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/any", "", http.StatusUnauthorized},
		{"not bearer", "/any", "Token " + adminToken, http.StatusUnauthorized},
		{"bad token", "/any", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/any", "Bearer " + tenantToken, http.StatusOK},
		{"admin route as admin", "/admin", "Bearer " + adminToken, http.StatusOK},
		{"admin route as tenant", "/admin", "Bearer " + tenantToken, http.StatusForbidden},
		{"tenant route as tenant", "/tenant", "Bearer " + tenantToken, http.StatusOK},
		{"tenant route as admin", "/tenant", "Bearer " + adminToken, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAuthMiddlewareQueryToken(t *testing.T) {
	r := newAuthRouter()
	token, err := GenerateToken("t-1", "Asha", models.IdentityTenant)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/tenant?token="+token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "t-1")
}
