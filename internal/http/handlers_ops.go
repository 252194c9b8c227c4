package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// appMetrics counts ledger traffic served over HTTP.
type appMetrics struct {
	uptime              time.Time
	transactionsCreated int64
	transactionsDeleted int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{uptime: time.Now()}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := s.tracker.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	if s.caches != nil {
		checks["cache"] = s.cacheSizes()
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) cacheSizes() map[string]int {
	return map[string]int{
		"summaries": s.caches.Summaries.Size(),
		"breakdown": s.caches.Breakdown.Size(),
		"trends":    s.caches.Trends.Size(),
		"progress":  s.caches.Progress.Size(),
	}
}

// handleMetrics writes counters and gauges in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	snap := s.tracker.Snapshot(r.Context())

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_response_time_average_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	metric("ledger_transactions_created_total", "counter", "Transactions created over HTTP",
		atomic.LoadInt64(&s.appMetrics.transactionsCreated))
	metric("ledger_transactions_deleted_total", "counter", "Transactions deleted over HTTP",
		atomic.LoadInt64(&s.appMetrics.transactionsDeleted))
	metric("ledger_transactions", "gauge", "Transactions currently in the ledger", len(snap.Transactions))
	metric("ledger_accounts", "gauge", "Accounts currently in the ledger", len(snap.Accounts))
	metric("ledger_budgets", "gauge", "Budgets currently defined", len(snap.Budgets))

	if s.caches != nil {
		fmt.Fprintf(w, "# HELP cache_entries Current report cache entries\n# TYPE cache_entries gauge\n")
		for _, name := range []string{"summaries", "breakdown", "trends", "progress"} {
			fmt.Fprintf(w, "cache_entries{type=%q} %d\n", name, s.cacheSizes()[name])
		}
		fmt.Fprintln(w)
	}

	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("invalid_ip_attempts_total", "counter", "Forwarded client IPs that failed to parse", securityMetrics.InvalidIPAttempts)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))
}
