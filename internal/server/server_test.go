package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vexport/vexport/internal/auth"
)

func TestShouldSkipJWT(t *testing.T) {
	t.Parallel()

	cases := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodGet, "/ping", true},
		{http.MethodHead, "/health", true},
		{http.MethodPost, "/api/admin/login", true},
		{http.MethodPost, "/api/contact", true},
		{http.MethodPost, "/api/visitors/record", true},
		{http.MethodGet, "/api/vehicles", true},
		{http.MethodGet, "/api/vehicles/featured", true},
		{http.MethodGet, "/api/vehicles/abc-123", true},
		{http.MethodPost, "/api/vehicles", false},
		{http.MethodPost, "/api/vehicles/upload/abc-123", false},
		{http.MethodDelete, "/api/vehicles/abc-123", false},
		{http.MethodGet, "/api/contact", false},
		{http.MethodDelete, "/api/contact/abc", false},
		{http.MethodGet, "/api/media", false},
		{http.MethodGet, "/api/admin/site-config", false},
		{http.MethodGet, "/api/visitors/stats", false},
		{http.MethodPost, "/api/admin/upload-video", false},
	}

	for _, tc := range cases {
		got := shouldSkipJWT(tc.method, tc.path)
		if got != tc.want {
			t.Fatalf("%s %s: want skip=%v got=%v", tc.method, tc.path, tc.want, got)
		}
	}
}

type stubHandler struct{}

func (stubHandler) Register(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/api/media", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"files": []string{}})
	})
}

func TestServerAuthBoundary(t *testing.T) {
	t.Parallel()

	secret := "server-secret"
	srv := NewServer(nil, ":0", secret, []Handler{stubHandler{}, nil})

	do := func(method, path, token string) int {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(http.MethodGet, "/ping", ""); code != http.StatusOK {
		t.Fatalf("ping without token: got %d", code)
	}
	if code := do(http.MethodGet, "/api/media", ""); code < http.StatusBadRequest {
		t.Fatalf("protected route without token: got %d", code)
	}

	token, _, err := auth.GenerateToken("admin", secret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if code := do(http.MethodGet, "/api/media", token); code != http.StatusOK {
		t.Fatalf("protected route with token: got %d", code)
	}
}
