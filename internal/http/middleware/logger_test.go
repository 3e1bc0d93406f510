package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/smallbiznis/homeservice-site/internal/http/middleware"
)

func newLoggedRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(middleware.RequestLogger(zap.New(core)))
	r.GET("/admin/integrations/:service/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": middleware.RequestID(c)})
	})
	r.GET("/admin/integrations/square/callback", func(c *gin.Context) {
		c.Status(http.StatusBadRequest)
	})
	r.GET("/reviews", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	return r, logs
}

func serveLogged(r http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestLoggerStatusRoute(t *testing.T) {
	r, logs := newLoggedRouter(t)

	w := serveLogged(r, "/admin/integrations/Google/status", http.Header{"X-Request-Id": {"req-1"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	require.JSONEq(t, `{"request_id":"req-1"}`, w.Body.String())

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	require.Equal(t, "req-1", fields["request_id"])
	require.Equal(t, "/admin/integrations/:service/status", fields["route"])
	require.Equal(t, "google", fields["integration.service"])
}

func TestRequestLoggerRedactsCallbackSecrets(t *testing.T) {
	r, logs := newLoggedRouter(t)

	w := serveLogged(r, "/admin/integrations/square/callback?code=sq-secret-code&state=s3cr3t&error=", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	require.Equal(t, "square", fields["integration.service"])
	require.Equal(t, "/admin/integrations/square/callback", fields["path"])
	query, _ := fields["query"].(string)
	require.NotContains(t, query, "sq-secret-code")
	require.NotContains(t, query, "s3cr3t")
	require.Contains(t, query, "code=REDACTED")
}

func TestRequestLoggerServerError(t *testing.T) {
	r, logs := newLoggedRouter(t)

	serveLogged(r, "/reviews?limit=5", nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	require.Equal(t, "limit=5", fields["query"])
	require.NotContains(t, fields, "integration.service")
}
