package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mind-engage/mindengage-quiz/internal/ledger"
)

// Metrics holds the service collectors. It implements ledger.Recorder.
type Metrics struct {
	reg *prometheus.Registry

	Submissions     *prometheus.CounterVec
	Scores          prometheus.Histogram
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers all collectors, plus Go and process collectors, on a fresh
// registry so tests can build as many as they like.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_submissions_total",
				Help: "Quiz submissions by outcome",
			},
			[]string{"outcome"},
		),
		Scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_attempt_score",
			Help:    "Scores of recorded attempts",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
	}
	m.reg.MustRegister(
		m.Submissions, m.Scores, m.RequestCounter, m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSubmission counts every submission; scores only for stored attempts.
func (m *Metrics) ObserveSubmission(outcome string, score int) {
	m.Submissions.WithLabelValues(outcome).Inc()
	if outcome == ledger.OutcomePassed || outcome == ledger.OutcomeFailed {
		m.Scores.Observe(float64(score))
	}
}

// Middleware records request count and latency, labelled by chi route
// pattern rather than raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
