package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Importer metrics
	ImporterFilesCopied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "desktopd_importer_files_copied_total",
			Help: "Total number of files successfully copied into a workspace",
		},
	)

	ImporterBytesCopied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "desktopd_importer_bytes_copied_total",
			Help: "Total number of bytes successfully copied into a workspace",
		},
	)

	ImporterErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "desktopd_importer_errors_total",
			Help: "Total number of per-file errors encountered during imports",
		},
	)

	// Staging metrics
	StagerExtractDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "desktopd_stager_extract_duration_seconds",
			Help:    "Time taken to stage a VM resource (cache hit or decompress) in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	StagerCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desktopd_stager_cache_hits_total",
			Help: "Total number of staged resources served from the integrity cache",
		},
		[]string{"resource"},
	)

	// VM backend metrics
	VMStartDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "desktopd_vm_start_duration_seconds",
			Help:    "Time taken for a VM backend Start call to return",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	VMHealthProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "desktopd_vm_health_probe_duration_seconds",
			Help:    "Time taken for a VM health probe to succeed or give up",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	VMRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "desktopd_vm_running",
			Help: "Whether a VM backend reports itself running (1) or not (0)",
		},
		[]string{"backend"},
	)

	// Supervisor metrics
	SupervisorSidecarsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "desktopd_supervisor_sidecars_running",
			Help: "Number of sidecar processes currently tracked as running",
		},
	)

	SupervisorRestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desktopd_supervisor_restarts_total",
			Help: "Total number of times the supervisor restarted a sidecar or VM",
		},
		[]string{"target", "reason"},
	)

	SupervisorOrphansReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "desktopd_supervisor_orphans_reaped_total",
			Help: "Total number of stale PID files reaped at startup",
		},
	)
)

func init() {
	prometheus.MustRegister(ImporterFilesCopied)
	prometheus.MustRegister(ImporterBytesCopied)
	prometheus.MustRegister(ImporterErrors)

	prometheus.MustRegister(StagerExtractDuration)
	prometheus.MustRegister(StagerCacheHitsTotal)

	prometheus.MustRegister(VMStartDuration)
	prometheus.MustRegister(VMHealthProbeDuration)
	prometheus.MustRegister(VMRunning)

	prometheus.MustRegister(SupervisorSidecarsRunning)
	prometheus.MustRegister(SupervisorRestartsTotal)
	prometheus.MustRegister(SupervisorOrphansReapedTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
