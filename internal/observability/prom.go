package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Domain
	ReportsSubmitted    prometheus.Counter
	ReportStatusChanges *prometheus.CounterVec
	ReportsDeleted      prometheus.Counter
	AuthFailures        *prometheus.CounterVec
	ListCacheLookups    *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "garbagewatch",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "garbagewatch",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				// bcrypt dominates auth routes, hence the upper buckets
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "garbagewatch",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "garbagewatch",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "garbagewatch",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		ReportsSubmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "garbagewatch",
				Subsystem: "reports",
				Name:      "submitted_total",
				Help:      "Reports submitted.",
			},
		),
		ReportStatusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "garbagewatch",
				Subsystem: "reports",
				Name:      "status_changes_total",
				Help:      "Report status updates by target status.",
			},
			[]string{"status"},
		),
		ReportsDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "garbagewatch",
				Subsystem: "reports",
				Name:      "deleted_total",
				Help:      "Reports deleted.",
			},
		),
		AuthFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "garbagewatch",
				Subsystem: "auth",
				Name:      "failures_total",
				Help:      "Rejected authentication attempts by reason (never exposed to callers).",
			},
			[]string{"reason"},
		),
		ListCacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "garbagewatch",
				Subsystem: "reports",
				Name:      "list_cache_lookups_total",
				Help:      "Report list cache lookups by result.",
			},
			[]string{"result"}, // hit|miss
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.ReportsSubmitted, p.ReportStatusChanges, p.ReportsDeleted,
		p.AuthFailures, p.ListCacheLookups,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// The helpers below accept a nil receiver so components can run without metrics.

func (p *Prom) IncReportsSubmitted() {
	if p == nil {
		return
	}
	p.ReportsSubmitted.Inc()
}

func (p *Prom) IncStatusChange(status string) {
	if p == nil {
		return
	}
	p.ReportStatusChanges.WithLabelValues(status).Inc()
}

func (p *Prom) IncReportsDeleted() {
	if p == nil {
		return
	}
	p.ReportsDeleted.Inc()
}

func (p *Prom) IncAuthFailure(reason string) {
	if p == nil {
		return
	}
	p.AuthFailures.WithLabelValues(reason).Inc()
}

func (p *Prom) ObserveListCache(hit bool) {
	if p == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	p.ListCacheLookups.WithLabelValues(result).Inc()
}
