package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/infrastructure/logger"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Tenant context keys
const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantMiddlewareConfig holds configuration for tenant resolution
type TenantMiddlewareConfig struct {
	// HeaderEnabled accepts X-Tenant-ID when no token claim is present.
	// Enable it only when JWT authentication is off.
	HeaderEnabled bool
	// DefaultTenant is used when nothing else identifies the tenant
	DefaultTenant uuid.UUID
	Logger        *zap.Logger
}

// TenantMiddleware resolves the tenant of a request.
// Order: JWT claim, X-Tenant-ID header, configured default.
func TenantMiddleware(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		raw, method := GetJWTTenantID(c), "jwt"
		if raw == "" && cfg.HeaderEnabled {
			raw, method = c.GetHeader(TenantHeaderKey), "header"
		}

		var tenantID uuid.UUID
		switch {
		case raw != "":
			id, err := uuid.Parse(raw)
			if err != nil {
				abortWithError(c, dto.ErrCodeUnauthorized, "Invalid tenant ID format", false)
				return
			}
			tenantID = id
		case cfg.DefaultTenant != uuid.Nil:
			tenantID, method = cfg.DefaultTenant, "default"
		default:
			abortWithError(c, dto.ErrCodeUnauthorized, "Tenant identification required", false)
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID.String()))
		log.Debug("Tenant identified",
			zap.String("tenant_id", tenantID.String()),
			zap.String("method", method),
		)
		c.Next()
	}
}

// GetTenantID returns the tenant resolved by TenantMiddleware
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
