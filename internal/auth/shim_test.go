package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLegacyTokenShimPromotes(t *testing.T) {
	var gotAuth string
	handler := LegacyTokenShim(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
	req.Header.Set("X-Dashboard-Token", "abc123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotAuth != "Bearer abc123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer abc123")
	}
}

func TestLegacyTokenShimTrimsWhitespace(t *testing.T) {
	var gotAuth string
	handler := LegacyTokenShim(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Dashboard-Token", "  abc123  ")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotAuth != "Bearer abc123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestLegacyTokenShimKeepsExistingAuthorization(t *testing.T) {
	var gotAuth string
	handler := LegacyTokenShim(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer original")
	req.Header.Set("X-Dashboard-Token", "legacy")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotAuth != "Bearer original" {
		t.Errorf("Authorization = %q, want existing header preserved", gotAuth)
	}
}

func TestLegacyTokenShimNoHeaders(t *testing.T) {
	var gotAuth string
	handler := LegacyTokenShim(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}
