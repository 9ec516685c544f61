package observability

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/dcmstream/internal/auth"
	"github.com/danmuck/dcmstream/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func TestAdminRoutes(t *testing.T) {
	log := testlog.Start(t)
	gin.SetMode(gin.TestMode)

	ready := errors.New("draining")
	r := NewAdminRouter(AdminConfig{
		Node:   "recv-admin",
		Ready:  func() error { return ready },
		Status: func() any { return map[string]int{"active": 3} },
	}, log)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/health")
	if w.Code != http.StatusOK {
		t.Fatalf("health status %d", w.Code)
	}
	var health map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil || health["node"] != "recv-admin" {
		t.Fatalf("health body %s err=%v", w.Body.String(), err)
	}

	if w := get("/ready"); w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "draining") {
		t.Fatalf("ready while draining: %d %s", w.Code, w.Body.String())
	}
	ready = nil
	if w := get("/ready"); w.Code != http.StatusOK {
		t.Fatalf("ready status %d", w.Code)
	}

	if w := get("/status"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"active":3`) {
		t.Fatalf("status body %d %s", w.Code, w.Body.String())
	}

	w = get("/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "dcmstream_http_requests_total") {
		t.Fatalf("metrics missing http counter: %d", w.Code)
	}
}

func TestNormalizeOrigins(t *testing.T) {
	if got := normalizeOrigins([]string{" ", ""}); len(got) != 1 || got[0] != "http://localhost:3000" {
		t.Fatalf("expected default origin, got %v", got)
	}
	if got := normalizeOrigins([]string{" https://a.example "}); len(got) != 1 || got[0] != "https://a.example" {
		t.Fatalf("expected trimmed origin, got %v", got)
	}
}

func TestAdminStatusRequiresToken(t *testing.T) {
	log := testlog.Start(t)
	gin.SetMode(gin.TestMode)
	r := NewAdminRouter(AdminConfig{
		Node:       "recv-auth",
		Status:     func() any { return map[string]int{"active": 1} },
		StatusAuth: auth.StaticToken{Token: "s3cret"},
	}, log)

	status := func(header string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		return w.Code
	}
	if code := status(""); code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", code)
	}
	if code := status("Bearer nope"); code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status %d", code)
	}
	if code := status("Bearer s3cret"); code != http.StatusOK {
		t.Fatalf("valid token: status %d", code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health must stay open, got %d", w.Code)
	}
}
