package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/infrastructure/auth"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-middleware"

func signToken(t *testing.T, tenantID, userID string, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
		TenantID: tenantID,
		UserID:   userID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func jwtRouter() *gin.Engine {
	r := gin.New()
	r.Use(JWTAuthMiddleware(JWTMiddlewareConfig{
		Verifier:  auth.NewTokenVerifier(config.JWTConfig{Enabled: true, Secret: testSecret}),
		SkipPaths: []string{"/health"},
	}))
	r.GET("/health", okHandler)
	r.GET("/me", func(c *gin.Context) {
		claims := GetJWTClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"user":   GetJWTUserID(c),
			"tenant": GetJWTTenantID(c),
			"claims": claims != nil,
		})
	})
	return r
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := jwtRouter()
	tenantID, userID := uuid.NewString(), uuid.NewString()

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"valid token", BearerPrefix + signToken(t, tenantID, userID, time.Hour), http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"empty bearer", BearerPrefix, http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"expired", BearerPrefix + signToken(t, tenantID, userID, -time.Hour), http.StatusUnauthorized, dto.ErrCodeTokenExpired},
		{"garbage", BearerPrefix + "not.a.jwt", http.StatusUnauthorized, dto.ErrCodeTokenInvalid},
		{"bad tenant claim", BearerPrefix + signToken(t, "acme", userID, time.Hour), http.StatusUnauthorized, dto.ErrCodeTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decodeError(t, w).Code)
				return
			}
			assert.JSONEq(t, `{"user":"`+userID+`","tenant":"`+tenantID+`","claims":true}`, w.Body.String())
		})
	}
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	w := httptest.NewRecorder()
	jwtRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTGetters_WithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUserID(c))
	assert.Empty(t, GetJWTTenantID(c))
}
