package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/mohammad-safakhou/newsbot/models"
)

// ErrNotFound is returned when an analysis ID is unknown.
var ErrNotFound = errors.New("analysis not found")

// ErrUnavailable is returned when no postgres backend is configured.
var ErrUnavailable = errors.New("storage not configured")

// Store persists finished analyses in Postgres.
type Store struct {
	DB *sql.DB
}

// NewWithDSN opens and pings a Postgres connection.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// AnalysisRow is the compact listing shape for stored analyses.
type AnalysisRow struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	Title            string    `json:"title"`
	CredibilityScore float64   `json:"credibility_score"`
	CreatedAt        time.Time `json:"created_at"`
}

// SaveAnalysis upserts one analysis.
func (s *Store) SaveAnalysis(ctx context.Context, a models.Analysis) error {
	articleB, _ := json.Marshal(a.Article)
	summaryB, _ := json.Marshal(a.Summary)
	checksB, _ := json.Marshal(a.FactChecks)

	_, err := s.DB.ExecContext(ctx, `
INSERT INTO analyses (
  id, url, title, article, summary, fact_checks,
  credibility_score, overall_assessment, processing_time_ms, tokens_used, cost_estimate, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  article = EXCLUDED.article,
  summary = EXCLUDED.summary,
  fact_checks = EXCLUDED.fact_checks,
  credibility_score = EXCLUDED.credibility_score,
  overall_assessment = EXCLUDED.overall_assessment,
  processing_time_ms = EXCLUDED.processing_time_ms,
  tokens_used = EXCLUDED.tokens_used,
  cost_estimate = EXCLUDED.cost_estimate`,
		a.ID, a.Article.URL, a.Article.Title, articleB, summaryB, checksB,
		a.CredibilityScore, a.OverallAssessment, int64(a.ProcessingTime*1000), a.TokensUsed, a.CostEstimate, a.CreatedAt,
	)
	return err
}

// GetAnalysis fetches one analysis by ID.
func (s *Store) GetAnalysis(ctx context.Context, id string) (models.Analysis, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT url, article, summary, fact_checks,
        credibility_score, overall_assessment, processing_time_ms, tokens_used, cost_estimate, created_at
        FROM analyses WHERE id = $1`, id)

	var (
		a                           models.Analysis
		url                         string
		articleB, summaryB, checksB []byte
		processingMS                int64
	)
	a.ID = id
	if err := row.Scan(&url, &articleB, &summaryB, &checksB,
		&a.CredibilityScore, &a.OverallAssessment, &processingMS, &a.TokensUsed, &a.CostEstimate, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Analysis{}, ErrNotFound
		}
		return models.Analysis{}, err
	}
	_ = json.Unmarshal(articleB, &a.Article)
	_ = json.Unmarshal(summaryB, &a.Summary)
	_ = json.Unmarshal(checksB, &a.FactChecks)
	a.ProcessingTime = float64(processingMS) / 1000.0
	return a, nil
}

// ListRecent returns the newest analyses, compact form.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]AnalysisRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, url, title, credibility_score, created_at
        FROM analyses ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnalysisRow
	for rows.Next() {
		var r AnalysisRow
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.CredibilityScore, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
