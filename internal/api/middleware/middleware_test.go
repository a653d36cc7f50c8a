package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestScrubQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "sort=name&filter=all", "sort=name&filter=all"},
		{"password", "password=hunter2", "password=REDACTED"},
		{"token mixed", "sort=name&access_token=abc", "sort=name&access_token=REDACTED"},
		{"email", "email=someone%40example.com", "email=REDACTED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scrubQuery(tt.in); got != tt.want {
				t.Errorf("scrubQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIPRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewIPRateLimiter(time.Minute, 2)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	status := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if s := status("10.0.0.1:100"); s != http.StatusOK {
		t.Fatalf("first request: %d", s)
	}
	if s := status("10.0.0.1:100"); s != http.StatusOK {
		t.Fatalf("second request: %d", s)
	}
	if s := status("10.0.0.1:100"); s != http.StatusTooManyRequests {
		t.Errorf("third request: %d, want 429", s)
	}
	// Another IP has its own budget.
	if s := status("10.0.0.2:100"); s != http.StatusOK {
		t.Errorf("other ip: %d", s)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:4711"
	if ip := ClientIP(req); ip != "192.0.2.10" {
		t.Errorf("remote addr: %q", ip)
	}

	req.Header.Set("X-Real-Ip", "203.0.113.5")
	if ip := ClientIP(req); ip != "203.0.113.5" {
		t.Errorf("x-real-ip: %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	if ip := ClientIP(req); ip != "198.51.100.7" {
		t.Errorf("x-forwarded-for: %q", ip)
	}
}
