package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	InvestigationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osint_brain_investigation_duration_seconds",
			Help:    "End-to-end investigation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"intent"},
	)

	InvestigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osint_brain_investigations_total",
			Help: "Total number of investigations processed",
		},
		[]string{"status"},
	)

	ModuleProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osint_brain_module_probe_duration_seconds",
			Help:    "Evidence module invocation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"module"},
	)

	ModuleFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osint_brain_module_failures_total",
			Help: "Module invocations that exhausted their retry budget",
		},
		[]string{"module", "class"},
	)

	SignalsCollected = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "osint_brain_signals_collected",
			Help:    "Signals collected per investigation",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	CorrelationConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "osint_brain_correlation_confidence",
			Help:    "Confidence scores of produced correlation results",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osint_brain_cache_hits_total",
			Help: "Total report cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osint_brain_cache_misses_total",
			Help: "Total report cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(InvestigationDuration)
	prometheus.MustRegister(InvestigationsTotal)
	prometheus.MustRegister(ModuleProbeDuration)
	prometheus.MustRegister(ModuleFailures)
	prometheus.MustRegister(SignalsCollected)
	prometheus.MustRegister(CorrelationConfidence)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
