package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/mohammad-safakhou/newsbot/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce      sync.Once
	analysisTotal    *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	agentExecutions  *prometheus.CounterVec
	agentDuration    *prometheus.HistogramVec
	llmTokens        *prometheus.CounterVec
	llmCost          *prometheus.CounterVec
	sourceRequests   *prometheus.CounterVec
)

func initMetrics() {
	analysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbot_analyses_total",
		Help: "Article analyses by outcome.",
	}, []string{"outcome"})
	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsbot_analysis_duration_seconds",
		Help:    "End-to-end article analysis duration.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
	agentExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbot_agent_executions_total",
		Help: "Pipeline agent executions by agent and outcome.",
	}, []string{"agent", "outcome"})
	agentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsbot_agent_duration_seconds",
		Help:    "Per-agent execution duration.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"agent"})
	llmTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbot_llm_tokens_total",
		Help: "LLM tokens used by model and direction.",
	}, []string{"model", "direction"})
	llmCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbot_llm_cost_dollars_total",
		Help: "Estimated LLM spend by model.",
	}, []string{"model"})
	sourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbot_source_requests_total",
		Help: "External source requests by source and outcome.",
	}, []string{"source", "outcome"})
}

// AgentEvent records one pipeline agent execution.
type AgentEvent struct {
	AgentType  string
	StartTime  time.Time
	EndTime    time.Time
	Success    bool
	Error      string
	Cost       float64
	TokensIn   int64
	TokensOut  int64
	ModelUsed  string
	Confidence float64
}

// CostSummary is a point-in-time snapshot of accumulated spend.
type CostSummary struct {
	TotalCost   float64
	TotalTokens int64
	ModelCosts  map[string]float64
}

// Telemetry tracks pipeline metrics and LLM costs.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	mu          sync.RWMutex
	totalCost   float64
	totalTokens int64
	modelCosts  map[string]float64
}

// NewTelemetry creates a new telemetry instance.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	if cfg.Enabled {
		metricsOnce.Do(initMetrics)
	}
	return &Telemetry{
		config:     cfg,
		logger:     log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		modelCosts: make(map[string]float64),
	}
}

// RecordAnalysis records the outcome of a full article analysis.
func (t *Telemetry) RecordAnalysis(duration time.Duration, success bool) {
	if !t.config.Enabled {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	analysisTotal.WithLabelValues(outcome).Inc()
	analysisDuration.Observe(duration.Seconds())
}

// RecordAgentEvent records one agent execution.
func (t *Telemetry) RecordAgentEvent(ev AgentEvent) {
	if t.config.Enabled {
		outcome := "success"
		if !ev.Success {
			outcome = "failure"
		}
		agentExecutions.WithLabelValues(ev.AgentType, outcome).Inc()
		agentDuration.WithLabelValues(ev.AgentType).Observe(ev.EndTime.Sub(ev.StartTime).Seconds())
		if ev.ModelUsed != "" {
			llmTokens.WithLabelValues(ev.ModelUsed, "input").Add(float64(ev.TokensIn))
			llmTokens.WithLabelValues(ev.ModelUsed, "output").Add(float64(ev.TokensOut))
			llmCost.WithLabelValues(ev.ModelUsed).Add(ev.Cost)
		}
	}
	if t.config.CostTracking && ev.ModelUsed != "" {
		t.mu.Lock()
		t.totalCost += ev.Cost
		t.totalTokens += ev.TokensIn + ev.TokensOut
		t.modelCosts[ev.ModelUsed] += ev.Cost
		t.mu.Unlock()
	}
	if !ev.Success && ev.Error != "" {
		t.logger.Printf("agent %s failed: %s", ev.AgentType, ev.Error)
	}
}

// RecordSourceRequest records an external source call.
func (t *Telemetry) RecordSourceRequest(source string, err error) {
	if !t.config.Enabled {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	sourceRequests.WithLabelValues(source, outcome).Inc()
}

// GetCostSummary returns accumulated spend totals.
func (t *Telemetry) GetCostSummary() CostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	models := make(map[string]float64, len(t.modelCosts))
	for k, v := range t.modelCosts {
		models[k] = v
	}
	return CostSummary{TotalCost: t.totalCost, TotalTokens: t.totalTokens, ModelCosts: models}
}
