package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Kashela API is running"})
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
}

// handleHealth always answers 200; a failing dependency only degrades the
// reported status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Services:  map[string]string{"database": "healthy", "mpesa": "mocked", "auth": "disabled"},
		Version:   Version,
	}
	if err := s.deps.Transactions.Ping(ctx); err != nil {
		klogFrom(r).WarnContext(ctx, "Health check: database unreachable", "error", err)
		resp.Services["database"] = "unhealthy"
		resp.Status = "degraded"
	}
	if s.deps.Payments.Mode() != "mock" {
		resp.Services["mpesa"] = "live"
	}
	if s.deps.Verifier != nil {
		resp.Services["auth"] = "configured"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, help, typ string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, typ, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_requests_in_flight", "Requests currently being served", "gauge", traceMetrics.InFlight)
	metric("http_client_errors_total", "Responses with a 4xx status", "counter", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_seconds", "Mean response time", "gauge", fmt.Sprintf("%.6f", traceMetrics.AverageResponseTime.Seconds()))
	metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Requests matching known scanner patterns", "counter", securityMetrics.SuspiciousRequests)

	if s.deps.Reports != nil {
		st := s.deps.Reports.Stats()
		metric("report_cache_hits_total", "Monthly report cache hits", "counter", st.Hits)
		metric("report_cache_misses_total", "Monthly report cache misses", "counter", st.Misses)
		metric("report_cache_entries", "Cached monthly reports", "gauge", st.Size)
	}

	metric("uptime_seconds", "Process uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))
}
