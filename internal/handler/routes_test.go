package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"mentions-gateway/internal/client"
	"mentions-gateway/internal/config"
	"mentions-gateway/internal/metrics"
	"mentions-gateway/internal/service"
)

func newTestServer(t *testing.T, backendURL string, metricsEnabled bool) *echo.Echo {
	t.Helper()

	cfg := &config.Config{
		Backend: config.BackendConfig{
			Origin:          backendURL,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
		Metrics: config.MetricsConfig{Enabled: metricsEnabled, Path: "/metrics"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bc := client.NewBackendClient(cfg, logger, nil)
	svc, err := service.NewGatewayService(bc, cfg, logger)
	if err != nil {
		t.Fatalf("NewGatewayService: %v", err)
	}

	gateway := NewGatewayHandler(svc, logger)
	health := NewHealthHandler(cfg, "test")

	e := echo.New()
	if err := RegisterRoutes(e, cfg, gateway, health, metrics.New()); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	return e
}

func TestRegisterRoutes_Wiring(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Backend-Path", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer backend.Close()

	e := newTestServer(t, backend.URL, true)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /gateway/status", http.MethodGet, "/gateway/status", http.StatusOK},
		{"GET /api/mentions", http.MethodGet, "/api/mentions?keyword=go", http.StatusOK},
		{"POST /api/keywords", http.MethodPost, "/api/keywords", http.StatusOK},
		{"DELETE /api/keywords/7", http.MethodDelete, "/api/keywords/7", http.StatusOK},
		{"POST /auth/reset-password", http.MethodPost, "/auth/reset-password", http.StatusOK},
		{"POST /auth/login rewrite", http.MethodPost, "/auth/login", http.StatusOK},
		{"GET /ws/mentions rewrite", http.MethodGet, "/ws/mentions", http.StatusOK},
		{"GET /docs rewrite", http.MethodGet, "/docs", http.StatusOK},
		{"GET /openapi.json rewrite", http.MethodGet, "/openapi.json", http.StatusOK},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"GET /unknown returns 404", http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_ResetPasswordBeatsAuthRewrite(t *testing.T) {
	// The explicit reset-password route must run the forwarding core (which
	// drops the query string) even though /auth/* has a rewrite proxy.
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Backend-Query", r.URL.RawQuery)
		_, _ = w.Write([]byte("ok"))
	}))
	defer backend.Close()

	e := newTestServer(t, backend.URL, false)

	req := httptest.NewRequest(http.MethodPost, "/auth/reset-password?stray=1", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if q := rec.Header().Get("X-Backend-Query"); q != "" {
		t.Errorf("backend saw query %q; the fixed route must not forward it", q)
	}

	// The /auth/* rewrite, by contrast, passes the query through untouched.
	req = httptest.NewRequest(http.MethodPost, "/auth/login?next=%2Fdashboard", http.NoBody)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if q := rec.Header().Get("X-Backend-Query"); q != "next=%2Fdashboard" {
		t.Errorf("rewrite query = %q, want %q", q, "next=%2Fdashboard")
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer backend.Close()

	e := newTestServer(t, backend.URL, false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d when metrics are disabled", rec.Code, http.StatusNotFound)
	}
}

func TestRegisterRoutes_GatewayHeadersOnOwnEndpointsOnly(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer backend.Close()

	e := newTestServer(t, backend.URL, false)

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if v := rec.Header().Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("/healthz X-Content-Type-Options = %q, want %q", v, "nosniff")
	}
	if v := rec.Header().Get(echo.HeaderXRequestID); v == "" {
		t.Error("/healthz expected a generated X-Request-Id")
	}

	// Relayed routes must reproduce the backend response verbatim: no
	// security headers, no generated request ID.
	req = httptest.NewRequest(http.MethodGet, "/api/mentions", http.NoBody)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if v := rec.Header().Get("X-Frame-Options"); v != "" {
		t.Errorf("relayed route added X-Frame-Options = %q", v)
	}
	if v := rec.Header().Get(echo.HeaderXRequestID); v != "" {
		t.Errorf("relayed route added X-Request-Id = %q; the backend never sent one", v)
	}
}

func TestRegisterRoutes_BadOrigin(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendConfig{Origin: "http://bad origin\x7f"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := echo.New()
	err := RegisterRoutes(e, cfg, &GatewayHandler{logger: logger}, NewHealthHandler(cfg, "test"), metrics.New())
	if err == nil {
		t.Fatal("RegisterRoutes() expected error for unparseable origin, got nil")
	}
}
