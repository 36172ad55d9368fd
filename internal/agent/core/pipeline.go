package core

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/newsbot/config"
	"github.com/mohammad-safakhou/newsbot/internal/agent/telemetry"
	"github.com/mohammad-safakhou/newsbot/models"
	"github.com/mohammad-safakhou/newsbot/tools/web_search"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var pipelineTracer trace.Tracer = otel.Tracer("newsbot/internal/agent/pipeline")

// Pipeline runs the three analysis agents sequentially over one article:
// summarization, then fact-checking, then credibility assessment. Individual
// agents degrade to defaults on unparseable output; the pipeline only fails
// when an LLM call itself fails.
type Pipeline struct {
	summarizer  *SummarizerAgent
	factChecker *FactCheckerAgent
	credibility *CredibilityAgent
	telemetry   *telemetry.Telemetry
	logger      *log.Logger
}

// NewPipeline wires the agents from config. search may be nil; the
// fact-checker then runs without web evidence.
func NewPipeline(cfg *config.Config, llm LLMProvider, search web_search.Searcher, tele *telemetry.Telemetry) *Pipeline {
	return &Pipeline{
		summarizer:  NewSummarizerAgent(cfg, llm, tele),
		factChecker: NewFactCheckerAgent(cfg, llm, search, tele),
		credibility: NewCredibilityAgent(cfg, llm, tele),
		telemetry:   tele,
		logger:      log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags),
	}
}

// Analyze runs the full pipeline and assembles the combined result.
func (p *Pipeline) Analyze(ctx context.Context, article models.Article) (models.Analysis, error) {
	startTime := time.Now()
	ctx, span := pipelineTracer.Start(ctx, "agent.analyze_article",
		trace.WithAttributes(attribute.String("article.url", article.URL)))
	defer span.End()

	p.logger.Printf("analyzing article: %s", article.URL)

	summary, sumUsage, err := p.summarizer.Summarize(ctx, article)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		p.recordOutcome(startTime, false)
		return models.Analysis{}, err
	}

	checks, fcUsage, err := p.factChecker.Check(ctx, article)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		p.recordOutcome(startTime, false)
		return models.Analysis{}, err
	}

	score, assessment, credUsage, err := p.credibility.Assess(ctx, article)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		p.recordOutcome(startTime, false)
		return models.Analysis{}, err
	}

	elapsed := time.Since(startTime)
	analysis := models.Analysis{
		ID:                uuid.NewString(),
		Article:           article,
		Summary:           summary,
		FactChecks:        checks,
		CredibilityScore:  score,
		OverallAssessment: assessment,
		ProcessingTime:    elapsed.Seconds(),
		TokensUsed:        totalTokens(sumUsage, fcUsage, credUsage),
		CostEstimate:      sumUsage.Cost + fcUsage.Cost + credUsage.Cost,
		ModelsUsed:        modelsUsed(sumUsage, fcUsage, credUsage),
		CreatedAt:         time.Now(),
	}

	span.SetAttributes(
		attribute.Int("fact_checks", len(checks)),
		attribute.Float64("credibility_score", score),
		attribute.Int64("tokens_used", analysis.TokensUsed),
	)
	p.recordOutcome(startTime, true)
	p.logger.Printf("analysis completed in %.2fs (%d fact checks, credibility %.0f)", elapsed.Seconds(), len(checks), score)
	return analysis, nil
}

func (p *Pipeline) recordOutcome(start time.Time, success bool) {
	if p.telemetry != nil {
		p.telemetry.RecordAnalysis(time.Since(start), success)
	}
}

func totalTokens(usages ...AgentUsage) int64 {
	var n int64
	for _, u := range usages {
		n += u.TokensIn + u.TokensOut
	}
	return n
}

func modelsUsed(usages ...AgentUsage) []string {
	seen := make(map[string]struct{}, len(usages))
	var out []string
	for _, u := range usages {
		if u.Model == "" {
			continue
		}
		if _, ok := seen[u.Model]; ok {
			continue
		}
		seen[u.Model] = struct{}{}
		out = append(out, u.Model)
	}
	return out
}
