package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"pg-hostel/models"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID   = "user_id"
	ContextName     = "name"
	ContextIdentity = "identity"
)

var (
	jwtSecret []byte
	jwtTTL    = 24 * time.Hour
)

// InitJWT sets the signing secret and token lifetime.
func InitJWT(secret string, ttl time.Duration) {
	jwtSecret = []byte(secret)
	if ttl > 0 {
		jwtTTL = ttl
	}
}

// Claims JWT claims. UserID is the admin user id or the tenant id.
type Claims struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for the given principal.
func GenerateToken(userID, name, identity string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Name:     name,
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "pg-hostel",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken validates a token and returns its claims.
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrInvalidKey
}

// AuthMiddleware requires a valid bearer token. The token may also be passed as
// the "token" query parameter for websocket clients.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "invalid Authorization header format",
				})
				return
			}
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing Authorization header",
			})
			return
		}

		claims, err := ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextName, claims.Name)
		c.Set(ContextIdentity, claims.Identity)
		c.Next()
	}
}

// AdminMiddleware allows administrators only.
func AdminMiddleware() gin.HandlerFunc {
	return requireIdentity(models.IdentityAdministrator, "administrator access required")
}

// TenantMiddleware allows tenants only.
func TenantMiddleware() gin.HandlerFunc {
	return requireIdentity(models.IdentityTenant, "tenant access required")
}

func requireIdentity(identity, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextIdentity) != identity {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": message,
			})
			return
		}
		c.Next()
	}
}
