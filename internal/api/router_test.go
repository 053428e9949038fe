package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mkarlsen/signupd/internal/app"
	"github.com/mkarlsen/signupd/internal/auth"
	"github.com/mkarlsen/signupd/internal/database"
	"github.com/mkarlsen/signupd/internal/handlers"
	"github.com/mkarlsen/signupd/internal/services"
)

func newTestRouter(t *testing.T, cfg *app.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	verification, err := services.NewVerificationService(db, nil)
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: "router-test-secret"})
	require.NoError(t, err)

	accounts, err := services.NewAccountService(db, verification, jwtService)
	require.NoError(t, err)

	authHandler, err := handlers.NewAuthHandler(accounts, verification, nil, 15*time.Minute)
	require.NoError(t, err)

	router, err := NewRouter(RouterOptions{Config: cfg, DB: db, Auth: authHandler})
	require.NoError(t, err)
	return router
}

func defaultTestConfig() *app.Config {
	cfg := &app.Config{}
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"
	return cfg
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, defaultTestConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, defaultTestConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetricsEndpointDisabled(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Monitoring.Prometheus.Enabled = false
	router := newTestRouter(t, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Unknown non-API routes fall through to the SPA.
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<!doctype html>")
}

func TestUnknownAPIRouteReturnsJSON404(t *testing.T) {
	router := newTestRouter(t, defaultTestConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestSPAServedAtRootAndDeepLinks(t *testing.T) {
	router := newTestRouter(t, defaultTestConfig())

	for _, path := range []string{"/", "/signup", "/some/deep/link"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Contains(t, rec.Body.String(), "Create your account", path)
	}
}

func TestStaticAssetServed(t *testing.T) {
	router := newTestRouter(t, defaultTestConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "check-email")
}

func TestRegisterFlowThroughRouter(t *testing.T) {
	router := newTestRouter(t, defaultTestConfig())

	body := strings.NewReader(`{"email":"jane@example.com","first_name":"Jane","last_name":"Doe","password":"hunter2hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"is_new_user":true`)
}
