package models

import "time"

// Article is the text and metadata extracted from a news page.
type Article struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Content     string     `json:"content"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Source      string     `json:"source,omitempty"`
	TopImage    string     `json:"top_image,omitempty"`
}

// Summary is the summarizer agent's output for one article.
type Summary struct {
	OriginalTitle string   `json:"original_title"`
	Summary       string   `json:"summary"`
	KeyPoints     []string `json:"key_points"`
	Sentiment     string   `json:"sentiment"` // positive, negative, neutral
}

// VerificationStatus classifies a fact-checked claim.
type VerificationStatus string

const (
	StatusVerified      VerificationStatus = "verified"
	StatusFalse         VerificationStatus = "false"
	StatusPartiallyTrue VerificationStatus = "partially_true"
	StatusUnverified    VerificationStatus = "unverified"
)

// NormalizeStatus maps arbitrary model output onto a known status.
func NormalizeStatus(s string) VerificationStatus {
	switch VerificationStatus(s) {
	case StatusVerified, StatusFalse, StatusPartiallyTrue, StatusUnverified:
		return VerificationStatus(s)
	}
	return StatusUnverified
}

// FactCheck is one verified claim from the fact-checker agent.
type FactCheck struct {
	Claim           string             `json:"claim"`
	Status          VerificationStatus `json:"verification_status"`
	Evidence        []string           `json:"evidence"`
	ConfidenceScore float64            `json:"confidence_score"` // 0..1
	Sources         []string           `json:"sources"`
}

// Analysis is the combined result of the three-agent pipeline for one article.
type Analysis struct {
	ID                string      `json:"id"`
	Article           Article     `json:"article"`
	Summary           Summary     `json:"summary"`
	FactChecks        []FactCheck `json:"fact_checks"`
	CredibilityScore  float64     `json:"credibility_score"` // 0..100
	OverallAssessment string      `json:"overall_assessment"`
	ProcessingTime    float64     `json:"processing_time"` // seconds
	TokensUsed        int64       `json:"tokens_used,omitempty"`
	CostEstimate      float64     `json:"cost_estimate,omitempty"`
	ModelsUsed        []string    `json:"models_used,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// Headline is a NewsAPI search or top-headlines row.
type Headline struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	Author      string `json:"author"`
}
