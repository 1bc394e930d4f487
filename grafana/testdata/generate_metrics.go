// Package testdata provides utilities for generating sample metrics data
// to test Grafana dashboards without using real production data.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics for testing dashboards. Names and labels mirror what the
// daemon exports so panels built against this data work unchanged.
var (
	// Dialogue metrics
	sessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intaked_dialogue_sessions_started_total",
			Help: "Total number of dialogue sessions started",
		},
		[]string{"program_id"},
	)
	sessionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intaked_dialogue_sessions_completed_total",
			Help: "Total number of sessions that reached a complete submission",
		},
		[]string{"program_id"},
	)
	sessionsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intaked_dialogue_sessions_failed_total",
			Help: "Total number of failed sessions",
		},
		[]string{"reason"},
	)
	turnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intaked_dialogue_turns_total",
			Help: "Total number of dialogue turns processed",
		},
	)
	issuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intaked_dialogue_issues_total",
			Help: "Total number of validation issues raised",
		},
		[]string{"kind", "severity"},
	)
	validationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intaked_dialogue_validation_duration_seconds",
			Help:    "Submission validation latency",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)
	sessionsLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intaked_sessions_live",
			Help: "Number of dialogue sessions not yet in a terminal state",
		},
	)

	// Audit metrics
	auditEntries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intaked_audit_entries_total",
			Help: "Total number of audit trail entries appended",
		},
	)
	auditVerifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intaked_audit_verify_failures_total",
			Help: "Total number of audit chain verification failures",
		},
	)

	// HTTP server metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intaked_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intaked_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"method", "endpoint", "status"},
	)
	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intaked_http_response_size_bytes",
			Help:    "HTTP response body size",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"method", "endpoint", "status"},
	)
	httpActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intaked_http_active_requests",
			Help: "Number of currently active HTTP requests",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		// Dialogue
		sessionsStarted,
		sessionsCompleted,
		sessionsFailed,
		turnsTotal,
		issuesTotal,
		validationDuration,
		sessionsLive,
		// Audit
		auditEntries,
		auditVerifyFailures,
		// HTTP
		httpRequestsTotal,
		httpRequestDuration,
		httpResponseSize,
		httpActiveRequests,
	)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	// Generate initial sample data
	generateSampleData()

	// Start background goroutine to continuously generate data
	ctx, cancel := context.WithCancel(context.Background())
	go generateContinuousData(ctx)

	// Serve metrics
	http.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
		server.Shutdown(context.Background())
	}()

	fmt.Printf("Sample metrics server running on http://localhost:%s/metrics\n", port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println("\nTo use with Prometheus, add this to prometheus.yml:")
	fmt.Printf("  - job_name: 'intaked-test'\n    static_configs:\n      - targets: ['localhost:%s']\n", port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

var (
	programs   = []string{"benefits-renewal", "housing-assist", "childcare-subsidy"}
	reasons    = []string{"max turns exceeded", "timeout", "cancelled"}
	issueKinds = []string{"MISSING", "INVALID_FORMAT", "UNSUPPORTED_VALUE", "BUSINESS_RULE_VIOLATION"}
	endpoints  = []string{
		"/api/v1/programs",
		"/api/v1/programs/:id/schema",
		"/api/v1/validate",
		"/api/v1/sessions",
		"/api/v1/sessions/:id",
		"/api/v1/sessions/:id/answers",
		"/api/v1/sessions/:id/audit",
	}
)

func generateSampleData() {
	// Generate session lifecycle data per program
	for i := 0; i < 80; i++ {
		program := randomChoice(programs)
		sessionsStarted.WithLabelValues(program).Inc()
		if rand.Float64() > 0.25 {
			sessionsCompleted.WithLabelValues(program).Inc()
		} else {
			sessionsFailed.WithLabelValues(randomChoice(reasons)).Inc()
		}
	}
	sessionsLive.Set(float64(rand.Intn(20) + 5))

	// Generate turn and validation data
	for i := 0; i < 250; i++ {
		turnsTotal.Inc()
		validationDuration.Observe(rand.Float64() * 0.01)
		auditEntries.Inc()
	}
	for i := 0; i < 120; i++ {
		severity := "error"
		if rand.Float64() > 0.7 {
			severity = "warning"
		}
		issuesTotal.WithLabelValues(randomChoice(issueKinds), severity).Inc()
	}

	// Generate HTTP data
	methods := []string{"GET", "POST"}
	statuses := []string{"200", "201", "400", "404", "409", "422"}
	for i := 0; i < 300; i++ {
		endpoint := randomChoice(endpoints)
		method := randomChoice(methods)
		status := randomChoice(statuses)
		httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(rand.Float64() * 0.25)
		httpResponseSize.WithLabelValues(method, endpoint, status).Observe(float64(rand.Intn(5000) + 100))
	}
	httpActiveRequests.Set(float64(rand.Intn(4)))
}

func generateContinuousData(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Start and finish a few sessions
			if rand.Float64() > 0.4 {
				program := randomChoice(programs)
				sessionsStarted.WithLabelValues(program).Inc()
				if rand.Float64() > 0.3 {
					sessionsCompleted.WithLabelValues(program).Inc()
				} else {
					sessionsFailed.WithLabelValues(randomChoice(reasons)).Inc()
				}
			}
			// Process some turns
			if rand.Float64() > 0.2 {
				turns := rand.Intn(4) + 1
				for i := 0; i < turns; i++ {
					turnsTotal.Inc()
					validationDuration.Observe(rand.Float64() * 0.01)
					auditEntries.Inc()
				}
			}
			// Raise occasional issues
			if rand.Float64() > 0.5 {
				severity := "error"
				if rand.Float64() > 0.7 {
					severity = "warning"
				}
				issuesTotal.WithLabelValues(randomChoice(issueKinds), severity).Inc()
			}
			// Very rare chain verification failure
			if rand.Float64() > 0.98 {
				auditVerifyFailures.Inc()
			}

			// HTTP traffic
			if rand.Float64() > 0.2 {
				endpoint := randomChoice(endpoints)
				method := randomChoice([]string{"GET", "POST"})
				status := "200"
				if rand.Float64() > 0.9 {
					status = randomChoice([]string{"400", "404", "409", "422"})
				}
				httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
				httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(rand.Float64() * 0.25)
				httpResponseSize.WithLabelValues(method, endpoint, status).Observe(float64(rand.Intn(5000) + 100))
			}

			// Drift the gauges
			sessionsLive.Add(float64(rand.Intn(5) - 2))
			httpActiveRequests.Set(float64(rand.Intn(4)))
		}
	}
}

func randomChoice(choices []string) string {
	return choices[rand.Intn(len(choices))]
}
