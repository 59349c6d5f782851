package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d, err := NewDetector("203.0.113.0/24")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct", "198.51.100.7:5000", nil, "198.51.100.7"},
		{"untrusted peer ignores xff", "198.51.100.7:5000", map[string]string{"X-Forwarded-For": "1.1.1.1"}, "198.51.100.7"},
		{"private proxy", "10.0.0.2:80", map[string]string{"X-Forwarded-For": "1.1.1.1, 10.0.0.2"}, "1.1.1.1"},
		{"configured proxy", "203.0.113.9:80", map[string]string{"X-Real-IP": "2.2.2.2"}, "2.2.2.2"},
		{"bad xff falls back to real ip", "127.0.0.1:80", map[string]string{"X-Forwarded-For": "junk", "X-Real-IP": "3.3.3.3"}, "3.3.3.3"},
		{"unparseable remote", "nonsense", nil, "nonsense"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}

	if d.GetMetrics().InvalidIPAttempts != 2 {
		t.Errorf("InvalidIPAttempts = %d, want 2", d.GetMetrics().InvalidIPAttempts)
	}

	if _, err := NewDetector("not-a-cidr"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d, _ := NewDetector()

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"normal", http.MethodGet, "/transactions?year=2025", "kashela-app/1.0", false},
		{"curl is fine", http.MethodGet, "/health", "curl/8.0", false},
		{"dotenv scan", http.MethodGet, "/.env", "", true},
		{"traversal in query", http.MethodGet, "/index.php?file=../../etc/passwd", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing basic headers: %v", rec.Header())
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}
