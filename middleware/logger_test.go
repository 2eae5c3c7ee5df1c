package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-service/pkg/ctxmanage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAssignsTraceId(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var traceId string
	r := gin.New()
	r.Use(Logger())
	r.GET("/ping", func(c *gin.Context) {
		traceId = ctxmanage.GetTraceIdOfRequest(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(traceId)
	assert.NoError(t, err)
}

func TestTraceIdMintedWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, err := uuid.Parse(traceId)
	assert.NoError(t, err)
}
