package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sorso/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDKeepsOrAssigns(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "req-42", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	_, err := uuid.Parse(w.Header().Get(HeaderRequestID))
	assert.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", 65))
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.NotEqual(t, strings.Repeat("x", 65), w.Header().Get(HeaderRequestID))
}

func TestRequestLoggerTagsRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	engine := gin.New()
	engine.Use(RequestID(), RequestLogger(logger.NewWithWriter(&buf, "info")))
	engine.GET("/api/v1/staff/events", func(c *gin.Context) {
		c.Set(ContextUserID, "u-1")
		c.Status(http.StatusOK)
	})
	engine.GET("/api/v1/events", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/staff/events", nil)
	req.Header.Set(HeaderRequestID, "req-7")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	var staffLine map[string]interface{}
	require.NoError(t, json.Unmarshal(firstLine(buf.Bytes()), &staffLine))
	assert.Equal(t, "HTTP Request", staffLine["msg"])
	assert.Equal(t, "req-7", staffLine["request_id"])
	assert.Equal(t, "u-1", staffLine["user_id"])
	assert.Equal(t, float64(http.StatusOK), staffLine["status"])

	buf.Reset()
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))

	var publicLine map[string]interface{}
	require.NoError(t, json.Unmarshal(firstLine(buf.Bytes()), &publicLine))
	assert.NotEmpty(t, publicLine["request_id"])
	assert.NotContains(t, publicLine, "user_id")
}

func firstLine(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i]
	}
	return b
}
