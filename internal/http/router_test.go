package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/config"
	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
	httptransport "github.com/smallbiznis/homeservice-site/internal/http"
	"github.com/smallbiznis/homeservice-site/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/homeservice-site/internal/http/middleware"
	"github.com/smallbiznis/homeservice-site/internal/jwt"
	integrationsvc "github.com/smallbiznis/homeservice-site/internal/service/integration"
)

const secret = "super-secret-jwt-token-with-at-least-32-characters"

type stubConnect struct{}

func (stubConnect) StartGoogle(ctx context.Context) (string, error) {
	return "https://accounts.example.com/auth", nil
}

func (stubConnect) CompleteGoogle(ctx context.Context, state, code string) error {
	if state != "known" {
		return integration.ErrInvalidState
	}
	return nil
}

func (stubConnect) StartSquare(ctx context.Context) (string, error) {
	return "https://connect.example.com/oauth2/authorize", nil
}

func (stubConnect) CompleteSquare(ctx context.Context, state, code string) error {
	if state != "known" {
		return integration.ErrInvalidState
	}
	return nil
}

func (stubConnect) Status(ctx context.Context, service string) (integrationsvc.Status, error) {
	return integrationsvc.Status{Service: service}, nil
}

type stubReviews struct{}

func (stubReviews) Fetch(ctx context.Context) ([]integration.Review, error) { return nil, nil }
func (stubReviews) Sync(ctx context.Context) (int, error)                   { return 3, nil }
func (stubReviews) List(ctx context.Context, limit int) ([]integration.Review, error) {
	return []integration.Review{{ExternalID: "r1", Rating: 5}}, nil
}

type stubResolver struct{}

func (stubResolver) ResolveLocationID(ctx context.Context, accessToken string) (string, error) {
	return "L1", nil
}

type stubStore struct{}

func (stubStore) Put(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	return "https://media.example.com/" + filename, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	h := httptransport.Handlers{
		Integrations: handler.NewIntegrationHandler(stubConnect{}, logger),
		Reviews:      handler.NewReviewHandler(stubReviews{}, logger),
		Payments:     handler.NewPaymentHandler(stubResolver{}, logger),
		Uploads:      handler.NewUploadHandler(stubStore{}, 1<<20, logger),
	}
	auth := &httpmiddleware.Auth{Verifier: jwt.NewVerifier(secret, ""), Logger: logger}
	return httptransport.NewRouter(config.Config{ServiceName: "test"}, h, auth, nil, logger)
}

func adminToken(t *testing.T) string {
	t.Helper()
	signer, err := gojose.NewSigner(gojose.SigningKey{Algorithm: gojose.HS256, Key: []byte(secret)}, (&gojose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)
	token, err := gojwt.Signed(signer).Claims(gojwt.Claims{
		Subject:  "admin",
		Audience: gojwt.Audience{jwt.SupabaseAudience},
		Expiry:   gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).Serialize()
	require.NoError(t, err)
	return token
}

func serve(r http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterPublicRoutes(t *testing.T) {
	r := newTestRouter()

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", "").Code)

	w := serve(r, http.MethodGet, "/reviews", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"external_id":"r1"`)

	require.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/nope", "").Code)
}

func TestRouterAdminRoutesRequireToken(t *testing.T) {
	r := newTestRouter()
	routes := []struct{ method, path string }{
		{http.MethodGet, "/admin/integrations/google/connect"},
		{http.MethodGet, "/admin/integrations/square/connect"},
		{http.MethodGet, "/admin/integrations/google/status"},
		{http.MethodPost, "/admin/reviews/sync"},
		{http.MethodGet, "/admin/reviews/preview"},
		{http.MethodGet, "/admin/payments/location"},
		{http.MethodPost, "/admin/uploads"},
	}
	for _, rt := range routes {
		require.Equal(t, http.StatusUnauthorized, serve(r, rt.method, rt.path, "").Code, rt.path)
	}
}

func TestRouterAdminRoutes(t *testing.T) {
	r := newTestRouter()
	token := adminToken(t)

	w := serve(r, http.MethodGet, "/admin/integrations/google/connect", token)
	require.Equal(t, http.StatusFound, w.Code)

	w = serve(r, http.MethodGet, "/admin/integrations/square/connect", token)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://connect.example.com/oauth2/authorize", w.Header().Get("Location"))

	w = serve(r, http.MethodGet, "/admin/integrations/square/status", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"service":"square"`)

	w = serve(r, http.MethodGet, "/admin/integrations/google/status", token)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodPost, "/admin/reviews/sync", token)
	require.JSONEq(t, `{"synced":3}`, w.Body.String())

	w = serve(r, http.MethodGet, "/admin/payments/location", token)
	require.JSONEq(t, `{"location_id":"L1"}`, w.Body.String())
}

func TestRouterGoogleCallbackUsesState(t *testing.T) {
	r := newTestRouter()

	w := serve(r, http.MethodGet, "/admin/integrations/google/callback?state=known&code=c", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/admin/integrations/google/callback?state=forged&code=c", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterSquareCallbackUsesState(t *testing.T) {
	r := newTestRouter()

	w := serve(r, http.MethodGet, "/admin/integrations/square/callback?state=known&code=c", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/admin/integrations/square/callback?state=forged&code=c", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
