package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mohammad-safakhou/newsbot/config"
	"github.com/mohammad-safakhou/newsbot/internal/agent/telemetry"
	"github.com/mohammad-safakhou/newsbot/models"
	"github.com/mohammad-safakhou/newsbot/tools/web_search"
)

const credibilityExcerptChars = 500

// SummarizerAgent distills an article into a short summary, key points and
// a sentiment label.
type SummarizerAgent struct {
	llm       LLMProvider
	routing   config.LLMRoutingConfig
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewSummarizerAgent(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *SummarizerAgent {
	return &SummarizerAgent{
		llm:       llm,
		routing:   cfg.LLM.Routing,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[SUMMARIZER-AGENT] ", log.LstdFlags),
	}
}

// Summarize runs the summarization prompt. Parse failures fall back to a
// neutral default rather than failing the pipeline.
func (a *SummarizerAgent) Summarize(ctx context.Context, article models.Article) (models.Summary, AgentUsage, error) {
	model := a.routing.ModelFor("summarization")
	prompt := fmt.Sprintf(`You are an expert news summarizer with years of experience in journalism.
Summarize the following news article:
Title: %s
Content: %s

Provide:
1. A concise summary (2-3 sentences)
2. Key points (3-5 bullet points)
3. Sentiment analysis (positive/negative/neutral)
Respond ONLY with strict JSON: {"summary": string, "key_points": [string], "sentiment": "positive|negative|neutral"}`,
		article.Title, article.Content)

	start := time.Now()
	out, inTok, outTok, err := a.llm.GenerateWithTokens(ctx, prompt, model, map[string]interface{}{"temperature": 0.2, "max_tokens": 800})
	usage := a.usage(model, inTok, outTok)
	a.record("summarizer", model, start, usage, err)
	if err != nil {
		return models.Summary{}, usage, fmt.Errorf("summarizer: %w", err)
	}

	summary := models.Summary{
		OriginalTitle: article.Title,
		Summary:       "Unable to generate summary",
		KeyPoints:     []string{},
		Sentiment:     "neutral",
	}
	var parsed struct {
		Summary   string   `json:"summary"`
		KeyPoints []string `json:"key_points"`
		Sentiment string   `json:"sentiment"`
	}
	if e := json.Unmarshal([]byte(extractFirstJSON(out)), &parsed); e != nil {
		a.logger.Printf("unparseable summarizer output, using defaults: %v", e)
		return summary, usage, nil
	}
	if parsed.Summary != "" {
		summary.Summary = parsed.Summary
	}
	if parsed.KeyPoints != nil {
		summary.KeyPoints = parsed.KeyPoints
	}
	switch parsed.Sentiment {
	case "positive", "negative", "neutral":
		summary.Sentiment = parsed.Sentiment
	}
	return summary, usage, nil
}

func (a *SummarizerAgent) usage(model string, inTok, outTok int64) AgentUsage {
	return AgentUsage{Model: model, TokensIn: inTok, TokensOut: outTok, Cost: a.llm.CalculateCost(inTok, outTok, model)}
}

func (a *SummarizerAgent) record(agent, model string, start time.Time, usage AgentUsage, err error) {
	recordAgent(a.telemetry, agent, model, start, usage, err)
}

// FactCheckerAgent extracts key claims from an article and verifies them,
// optionally grounding the prompt with live web-search evidence.
type FactCheckerAgent struct {
	llm       LLMProvider
	routing   config.LLMRoutingConfig
	search    web_search.Searcher
	maxHits   int
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewFactCheckerAgent(cfg *config.Config, llm LLMProvider, search web_search.Searcher, tele *telemetry.Telemetry) *FactCheckerAgent {
	maxHits := cfg.Sources.WebSearch.MaxResults
	if maxHits <= 0 {
		maxHits = 5
	}
	return &FactCheckerAgent{
		llm:       llm,
		routing:   cfg.LLM.Routing,
		search:    search,
		maxHits:   maxHits,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[FACTCHECK-AGENT] ", log.LstdFlags),
	}
}

// Check runs the fact-checking prompt. A missing or broken search tool and
// unparseable model output both degrade to an empty fact-check list.
func (a *FactCheckerAgent) Check(ctx context.Context, article models.Article) ([]models.FactCheck, AgentUsage, error) {
	model := a.routing.ModelFor("fact_checking")

	evidence := a.gatherEvidence(ctx, article)
	prompt := fmt.Sprintf(`You are a meticulous fact-checker verifying claims across multiple sources.
Fact-check the following news article:
Title: %s
Content: %s
%s
Identify key claims and verify them. For each claim provide:
1. The specific claim
2. Verification status (verified/false/partially_true/unverified)
3. Supporting evidence
4. Confidence score (0-1)
5. Sources used for verification
Respond ONLY with a strict JSON array of objects:
[{"claim": string, "verification_status": string, "evidence": [string], "confidence_score": number, "sources": [string]}]`,
		article.Title, article.Content, evidence)

	start := time.Now()
	out, inTok, outTok, err := a.llm.GenerateWithTokens(ctx, prompt, model, map[string]interface{}{"temperature": 0.2, "max_tokens": 1200})
	usage := AgentUsage{Model: model, TokensIn: inTok, TokensOut: outTok, Cost: a.llm.CalculateCost(inTok, outTok, model)}
	recordAgent(a.telemetry, "fact_checker", model, start, usage, err)
	if err != nil {
		return nil, usage, fmt.Errorf("fact checker: %w", err)
	}

	var parsed []struct {
		Claim           string   `json:"claim"`
		Status          string   `json:"verification_status"`
		Evidence        []string `json:"evidence"`
		ConfidenceScore float64  `json:"confidence_score"`
		Sources         []string `json:"sources"`
	}
	if e := json.Unmarshal([]byte(extractFirstJSONArray(out)), &parsed); e != nil {
		a.logger.Printf("unparseable fact-check output, returning none: %v", e)
		return []models.FactCheck{}, usage, nil
	}

	checks := make([]models.FactCheck, 0, len(parsed))
	for _, p := range parsed {
		if strings.TrimSpace(p.Claim) == "" {
			continue
		}
		fc := models.FactCheck{
			Claim:           p.Claim,
			Status:          models.NormalizeStatus(p.Status),
			Evidence:        p.Evidence,
			ConfidenceScore: clamp01(p.ConfidenceScore),
			Sources:         p.Sources,
		}
		if fc.Evidence == nil {
			fc.Evidence = []string{}
		}
		if fc.Sources == nil {
			fc.Sources = []string{}
		}
		checks = append(checks, fc)
	}
	return checks, usage, nil
}

// gatherEvidence renders web-search hits as a prompt section. Search
// failures are logged and ignored; evidence is best-effort.
func (a *FactCheckerAgent) gatherEvidence(ctx context.Context, article models.Article) string {
	if a.search == nil {
		return ""
	}
	hits, err := a.search.Discover(ctx, article.Title, a.maxHits)
	if a.telemetry != nil {
		a.telemetry.RecordSourceRequest("serper", err)
	}
	if err != nil {
		a.logger.Printf("evidence search failed: %v", err)
		return ""
	}
	if len(hits) == 0 {
		return ""
	}
	buf := &bytes.Buffer{}
	buf.WriteString("\nWEB SEARCH EVIDENCE (independent sources):\n")
	for _, h := range hits {
		fmt.Fprintf(buf, "- %s (%s): %s\n", h.Title, h.URL, h.Snippet)
	}
	return buf.String()
}

// CredibilityAgent scores the trustworthiness of an article and its source.
type CredibilityAgent struct {
	llm       LLMProvider
	routing   config.LLMRoutingConfig
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewCredibilityAgent(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *CredibilityAgent {
	return &CredibilityAgent{
		llm:       llm,
		routing:   cfg.LLM.Routing,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[CREDIBILITY-AGENT] ", log.LstdFlags),
	}
}

// Assess runs the credibility prompt against a short article excerpt.
// Parse failures fall back to a midpoint score.
func (a *CredibilityAgent) Assess(ctx context.Context, article models.Article) (float64, string, AgentUsage, error) {
	model := a.routing.ModelFor("credibility")
	excerpt := article.Content
	if len(excerpt) > credibilityExcerptChars {
		excerpt = truncateRunes(excerpt, credibilityExcerptChars) + "..."
	}
	prompt := fmt.Sprintf(`You are a media literacy expert with deep knowledge of journalistic standards.
Assess the credibility of this news article and its source:
Title: %s
Source: %s
Author: %s
Content: %s

Evaluate based on:
1. Source reputation and reliability
2. Editorial standards and fact-checking practices
3. Author credentials and expertise
4. Content quality and journalistic standards
5. Potential bias or agenda
Respond ONLY with strict JSON: {"credibility_score": number 0..100, "assessment": string}`,
		article.Title, article.Source, article.Author, excerpt)

	start := time.Now()
	out, inTok, outTok, err := a.llm.GenerateWithTokens(ctx, prompt, model, map[string]interface{}{"temperature": 0.2, "max_tokens": 600})
	usage := AgentUsage{Model: model, TokensIn: inTok, TokensOut: outTok, Cost: a.llm.CalculateCost(inTok, outTok, model)}
	recordAgent(a.telemetry, "credibility", model, start, usage, err)
	if err != nil {
		return 0, "", usage, fmt.Errorf("credibility analyst: %w", err)
	}

	score := 50.0
	assessment := "Unable to assess credibility"
	var parsed struct {
		CredibilityScore float64 `json:"credibility_score"`
		Assessment       string  `json:"assessment"`
	}
	if e := json.Unmarshal([]byte(extractFirstJSON(out)), &parsed); e != nil {
		a.logger.Printf("unparseable credibility output, using defaults: %v", e)
		return score, assessment, usage, nil
	}
	if parsed.CredibilityScore > 0 || parsed.Assessment != "" {
		score = clampScore(parsed.CredibilityScore)
	}
	if parsed.Assessment != "" {
		assessment = parsed.Assessment
	}
	return score, assessment, usage, nil
}

// AgentUsage accounts tokens and cost for a single agent execution.
type AgentUsage struct {
	Model     string
	TokensIn  int64
	TokensOut int64
	Cost      float64
}

func recordAgent(tele *telemetry.Telemetry, agent, model string, start time.Time, usage AgentUsage, err error) {
	if tele == nil {
		return
	}
	ev := telemetry.AgentEvent{
		AgentType: agent,
		StartTime: start,
		EndTime:   time.Now(),
		Success:   err == nil,
		Cost:      usage.Cost,
		TokensIn:  usage.TokensIn,
		TokensOut: usage.TokensOut,
		ModelUsed: model,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	tele.RecordAgentEvent(ev)
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
