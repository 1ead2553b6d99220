package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/shelfmark/shelfmark/internal/metrics"
)

// MetricsHandler exposes in-memory counters in Prometheus text format.
// It serves METRICS_BACKEND=memory; the prometheus backend uses promhttp.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "shelfmark_users_registered_total %d\n", snap.UsersRegistered)
	writeMetric(w, "shelfmark_logins_total{status=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "shelfmark_logins_total{status=\"failure\"} %d\n", snap.LoginsFailed)

	reasons := make([]string, 0, len(snap.AuthRejected))
	for reason := range snap.AuthRejected {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		writeMetric(w, "shelfmark_auth_rejected_total{reason=%q} %d\n", reason, snap.AuthRejected[reason])
	}

	writeMetric(w, "shelfmark_ownership_denied_total %d\n", snap.OwnershipDenied)
	writeMetric(w, "shelfmark_books_created_total %d\n", snap.BooksCreated)
	writeMetric(w, "shelfmark_books_deleted_total %d\n", snap.BooksDeleted)

	writeMetric(w, "shelfmark_http_requests_total %d\n", snap.RequestCount)
	writeMetric(w, "shelfmark_http_request_duration_seconds_sum %.6f\n", float64(snap.RequestDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
