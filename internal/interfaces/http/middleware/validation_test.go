package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adjustBody struct {
	SKU    string `json:"sku" binding:"required,max=8"`
	Delta  int    `json:"delta" binding:"ne=0"`
	Source string `json:"source" binding:"omitempty,oneof=SHOPIFY AMAZON"`
}

func validationRouter() *gin.Engine {
	SetupValidator()
	r := gin.New()
	r.Use(RequestID())
	r.POST("/adjust", func(c *gin.Context) {
		var body adjustBody
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestHandleValidationError(t *testing.T) {
	r := validationRouter()

	t.Run("field errors use json names", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/adjust",
			strings.NewReader(`{"sku":"TOO-LONG-SKU","delta":0,"source":"EBAY"}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		errInfo := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
		assert.NotEmpty(t, errInfo.RequestID)
		require.Len(t, errInfo.Details, 3)

		byField := map[string]string{}
		for _, d := range errInfo.Details {
			byField[d.Field] = d.Message
		}
		assert.Equal(t, "Must be at most 8 characters", byField["sku"])
		assert.Equal(t, "Must not be 0", byField["delta"])
		assert.Equal(t, "Must be one of: SHOPIFY AMAZON", byField["source"])
	})

	t.Run("malformed json", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/adjust", strings.NewReader(`{"sku":`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeError(t, w).Code)
	})

	t.Run("valid", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/adjust", strings.NewReader(`{"sku":"A1","delta":-2}`)))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestValidationDetails_NotValidation(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}
