package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	usersRegistered prometheus.Counter
	logins          *prometheus.CounterVec
	authRejected    *prometheus.CounterVec
	ownershipDenied prometheus.Counter
	booksCreated    prometheus.Counter
	booksDeleted    prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// NewPrometheus creates a recorder and registers its collectors, plus the Go
// runtime and process collectors, on a fresh registry.
func NewPrometheus() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		usersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfmark_users_registered_total",
			Help: "Total number of registered users",
		}),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelfmark_logins_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"status"},
		),
		authRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelfmark_auth_rejected_total",
				Help: "Total number of requests rejected by the auth middleware",
			},
			[]string{"reason"},
		),
		ownershipDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfmark_ownership_denied_total",
			Help: "Total number of mutations denied because the caller is not the owner",
		}),
		booksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfmark_books_created_total",
			Help: "Total number of books created",
		}),
		booksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfmark_books_deleted_total",
			Help: "Total number of books deleted",
		}),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shelfmark_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.usersRegistered,
		p.logins,
		p.authRejected,
		p.ownershipDenied,
		p.booksCreated,
		p.booksDeleted,
		p.requestDuration,
	)

	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncUserRegistered() { p.usersRegistered.Inc() }

func (p *PrometheusRecorder) IncLogin(status string) { p.logins.WithLabelValues(status).Inc() }

func (p *PrometheusRecorder) IncAuthRejected(reason string) {
	p.authRejected.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncOwnershipDenied() { p.ownershipDenied.Inc() }

func (p *PrometheusRecorder) IncBookCreated() { p.booksCreated.Inc() }

func (p *PrometheusRecorder) IncBookDeleted() { p.booksDeleted.Inc() }

// ObserveRequest records a request against its route pattern, never the raw
// path, to keep label cardinality bounded.
func (p *PrometheusRecorder) ObserveRequest(route string, status int, duration time.Duration) {
	p.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(duration.Seconds())
}
