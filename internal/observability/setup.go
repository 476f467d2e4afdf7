package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Logger is the structured access logger used by the HTTP layer.
	Logger *zap.Logger

	verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_verdicts_total",
			Help: "Classifier verdicts by violation type and violation flag",
		},
		[]string{"violation_type", "is_violation"},
	)

	blockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_blocked_messages_total",
			Help: "Messages blocked by the gate, by violation type",
		},
		[]string{"violation_type"},
	)

	suspensionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_suspensions_total",
			Help: "Suspension windows applied by the strike ledger",
		},
	)

	classifierDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_call_duration_seconds",
			Help:    "Time spent in external classifier calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)

func Init() error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(verdictsTotal)
	prometheus.MustRegister(blockedTotal)
	prometheus.MustRegister(suspensionsTotal)
	prometheus.MustRegister(classifierDuration)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return nil
}

// MetricsHandler exposes the prometheus registry, served on its own listener.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func RecordVerdict(violationType string, isViolation bool) {
	flag := "false"
	if isViolation {
		flag = "true"
	}
	verdictsTotal.WithLabelValues(violationType, flag).Inc()
}

func RecordBlocked(violationType string) {
	blockedTotal.WithLabelValues(violationType).Inc()
}

func RecordSuspension() {
	suspensionsTotal.Inc()
}

func RecordClassifierCall(outcome string, elapsed time.Duration) {
	classifierDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
