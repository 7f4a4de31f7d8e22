package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSPreflightAndOrigins(t *testing.T) {
	h := CORS([]string{"https://study.example.org"}, okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/surveys", nil)
	req.Header.Set("Origin", "https://study.example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://study.example.org" {
		t.Fatalf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/surveys", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin should get no allow header, got %q", got)
	}

	wild := CORS([]string{"*"}, okHandler())
	req = httptest.NewRequest(http.MethodGet, "/api/surveys", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rec = httptest.NewRecorder()
	wild.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("wildcard allow-origin = %q", got)
	}
}

func TestSecureHeadersAndNoStore(t *testing.T) {
	h := SecureHeaders(NoStoreAPI(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/api/surveys", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
	if !strings.Contains(rec.Header().Get("Cache-Control"), "no-store") {
		t.Fatal("API response should be no-store")
	}

	req = httptest.NewRequest(http.MethodGet, "/assets/app.js", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Cache-Control") != "" {
		t.Fatal("static asset should keep default caching")
	}
}

func TestRateLimiterThrottlesWrites(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	h := rl.Wrap(okHandler())

	post := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/surveys", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if post("10.0.0.1") != http.StatusOK || post("10.0.0.1") != http.StatusOK {
		t.Fatal("burst should be allowed")
	}
	if post("10.0.0.1") != http.StatusTooManyRequests {
		t.Fatal("third rapid write should be throttled")
	}
	// Other IPs have their own budget, and reads are never limited.
	if post("10.0.0.2") != http.StatusOK {
		t.Fatal("second IP should not be throttled")
	}
	req := httptest.NewRequest(http.MethodGet, "/api/surveys", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatal("reads should pass through")
	}
}

func TestMaxBodyRejectsOversizedPayload(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	h := MaxBody(128, inner)

	req := httptest.NewRequest(http.MethodPost, "/api/surveys", strings.NewReader(strings.Repeat("x", 1024)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/surveys", strings.NewReader("small"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
