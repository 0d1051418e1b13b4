package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/omnisync/backend/internal/infrastructure/auth"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "jwt_user_id"
	JWTTenantIDKey = "jwt_tenant_id"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// TokenVerifier checks a bearer token
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Verifier TokenVerifier
	// SkipPaths are full paths that don't require authentication
	SkipPaths []string
	Logger    *zap.Logger
}

// JWTAuthMiddleware requires a valid bearer token and stores its claims
func JWTAuthMiddleware(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		token, ok := strings.CutPrefix(header, BearerPrefix)
		if !ok || token == "" {
			abortWithError(c, dto.ErrCodeUnauthorized, "Missing bearer token", false)
			return
		}

		claims, err := cfg.Verifier.Verify(token)
		if err != nil {
			log.Warn("JWT authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			if errors.Is(err, auth.ErrExpiredToken) {
				abortWithError(c, dto.ErrCodeTokenExpired, "Token has expired", false)
				return
			}
			abortWithError(c, dto.ErrCodeTokenInvalid, "Invalid token", false)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTTenantIDKey, claims.TenantID)
		c.Next()
	}
}

// GetJWTClaims returns the verified claims, or nil
func GetJWTClaims(c *gin.Context) *auth.Claims {
	claims, _ := c.Get(JWTClaimsKey)
	jwtClaims, _ := claims.(*auth.Claims)
	return jwtClaims
}

// GetJWTUserID returns the user id claim, or ""
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetJWTTenantID returns the tenant id claim, or ""
func GetJWTTenantID(c *gin.Context) string {
	return c.GetString(JWTTenantIDKey)
}
