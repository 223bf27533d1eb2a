package telemetry

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagepilot/pagepilot/config"
)

// Telemetry tracks run and backend-call activity for the assistant hub.
type Telemetry struct {
	config  config.TelemetryConfig
	logger  *log.Logger
	metrics *Metrics
	mu      sync.RWMutex

	registry     *prometheus.Registry
	runsTotal    *prometheus.CounterVec
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	instructions *prometheus.CounterVec
}

// Metrics holds aggregate in-memory counters, readable via GetMetrics.
type Metrics struct {
	TotalRuns          int64
	SuccessfulRuns     int64
	FailedRuns         int64
	AverageRunDuration time.Duration

	InstructionsRouted map[string]int64 // tool -> count
	BackendCalls       map[string]int64 // operation -> count
	BackendFailures    map[string]int64 // operation -> count
}

// RunEvent represents one completed Agent Mode run.
type RunEvent struct {
	RunID        string
	Goal         string
	Instructions int
	StartTime    time.Time
	EndTime      time.Time
	Success      bool
	Error        string
}

// CallEvent represents one backend gateway call.
type CallEvent struct {
	Operation string
	Duration  time.Duration
	Success   bool
}

// NewTelemetry creates a new telemetry instance.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	t := &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: &Metrics{
			InstructionsRouted: make(map[string]int64),
			BackendCalls:       make(map[string]int64),
			BackendFailures:    make(map[string]int64),
		},
		registry: prometheus.NewRegistry(),
	}

	t.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pagepilot_runs_total",
		Help: "Agent Mode runs by final status.",
	}, []string{"status"})
	t.callsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pagepilot_backend_calls_total",
		Help: "Backend gateway calls by operation and outcome.",
	}, []string{"operation", "status"})
	t.callDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pagepilot_backend_call_duration_seconds",
		Help:    "Backend gateway call latency by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	t.instructions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pagepilot_instructions_routed_total",
		Help: "Instructions routed by resolved tool.",
	}, []string{"tool"})
	t.registry.MustRegister(t.runsTotal, t.callsTotal, t.callDuration, t.instructions)

	if cfg.Enabled && cfg.MetricsPort > 0 {
		go t.serveMetrics()
	}

	return t
}

// Handler exposes the Prometheus registry for mounting on the API server.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

func (t *Telemetry) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", t.config.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		t.logger.Printf("metrics server error: %v", err)
	}
}

// RecordRunEvent records a complete run.
func (t *Telemetry) RecordRunEvent(event RunEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalRuns++
	status := "success"
	if event.Success {
		t.metrics.SuccessfulRuns++
	} else {
		t.metrics.FailedRuns++
		status = "failed"
	}
	duration := event.EndTime.Sub(event.StartTime)
	n := t.metrics.TotalRuns
	t.metrics.AverageRunDuration = time.Duration((int64(t.metrics.AverageRunDuration)*(n-1) + int64(duration)) / n)
	t.runsTotal.WithLabelValues(status).Inc()

	if event.Error != "" {
		t.logger.Printf("run %s failed after %v: %s", event.RunID, duration, event.Error)
	}
}

// RecordInstruction records an instruction routed to a tool.
func (t *Telemetry) RecordInstruction(tool string) {
	if !t.config.Enabled {
		return
	}
	t.mu.Lock()
	t.metrics.InstructionsRouted[tool]++
	t.mu.Unlock()
	t.instructions.WithLabelValues(tool).Inc()
}

// RecordCallEvent records a backend gateway call.
func (t *Telemetry) RecordCallEvent(event CallEvent) {
	if !t.config.Enabled {
		return
	}
	t.mu.Lock()
	t.metrics.BackendCalls[event.Operation]++
	status := "success"
	if !event.Success {
		t.metrics.BackendFailures[event.Operation]++
		status = "failed"
	}
	t.mu.Unlock()
	t.callsTotal.WithLabelValues(event.Operation, status).Inc()
	t.callDuration.WithLabelValues(event.Operation).Observe(event.Duration.Seconds())
}

// GetMetrics returns a snapshot of the in-memory metrics.
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := Metrics{
		TotalRuns:          t.metrics.TotalRuns,
		SuccessfulRuns:     t.metrics.SuccessfulRuns,
		FailedRuns:         t.metrics.FailedRuns,
		AverageRunDuration: t.metrics.AverageRunDuration,
		InstructionsRouted: make(map[string]int64, len(t.metrics.InstructionsRouted)),
		BackendCalls:       make(map[string]int64, len(t.metrics.BackendCalls)),
		BackendFailures:    make(map[string]int64, len(t.metrics.BackendFailures)),
	}
	for k, v := range t.metrics.InstructionsRouted {
		snapshot.InstructionsRouted[k] = v
	}
	for k, v := range t.metrics.BackendCalls {
		snapshot.BackendCalls[k] = v
	}
	for k, v := range t.metrics.BackendFailures {
		snapshot.BackendFailures[k] = v
	}
	return snapshot
}
