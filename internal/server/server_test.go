package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"rolmap/internal/api"
	"rolmap/internal/config"
	"rolmap/internal/importer"
	"rolmap/internal/metrics"
	"rolmap/internal/state"
	"rolmap/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "rolmap.db"))
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	m, err := metrics.New()
	if err != nil {
		t.Fatalf("metrics.New failed: %v", err)
	}

	cfg := config.DefaultConfig()
	h := api.NewHandler(api.Deps{
		Records:  st,
		Local:    st,
		State:    state.NewStore(""),
		Importer: importer.NewCoordinator(st, st, m, importer.Config{}),
		Metrics:  m,
		Config:   cfg,
	})
	return NewServer(cfg, h, m)
}

func TestServerRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		email  string
		want   int
	}{
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"status anonymous", http.MethodGet, "/api/status", "", http.StatusUnauthorized},
		{"status viewer", http.MethodGet, "/api/status", "vecino@muniarica.cl", http.StatusOK},
		{"preflight", http.MethodOptions, "/api/properties", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.email != "" {
				req.Header.Set(api.HeaderUserEmail, tt.email)
			}
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("%s %s: got %d, want %d (%s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestCORSAllowsSessionHeaders(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/properties", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	allowed := w.Header().Get("Access-Control-Allow-Headers")
	for _, h := range []string{api.HeaderUserEmail, api.HeaderUserRole} {
		if !strings.Contains(allowed, h) {
			t.Fatalf("Access-Control-Allow-Headers %q missing %s", allowed, h)
		}
	}
}
