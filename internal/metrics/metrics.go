package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "honeypot"

// Recorder holds the probe and discovery collectors. A nil Recorder records nothing.
type Recorder struct {
	Probes        *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec
	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		Probes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Total number of probes by venue and outcome",
		}, []string{"venue", "outcome"}),
		ProbeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Probe duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"venue"}),
		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_queries_total",
			Help:      "Total number of pool discovery queries by venue and outcome",
		}, []string{"venue", "outcome"}),
		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_query_duration_seconds",
			Help:      "Pool discovery query duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"venue"}),
	}
}

// ObserveProbe counts one finished probe.
func (r *Recorder) ObserveProbe(venue string, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.Probes.WithLabelValues(venue, outcome).Inc()
	r.ProbeDuration.WithLabelValues(venue).Observe(elapsed.Seconds())
}

// ObserveQuery counts one discovery query.
func (r *Recorder) ObserveQuery(venue string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.Queries.WithLabelValues(venue, outcome).Inc()
	r.QueryDuration.WithLabelValues(venue).Observe(elapsed.Seconds())
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
