package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dyike/StockScout/internal/models"
)

// Store persists completed analysis requests and their insights.
type Store struct {
	db *sql.DB
}

// RequestRecord is one row of the analysis history.
type RequestRecord struct {
	RequestID       string
	Query           string
	Success         bool
	TickersAnalyzed []string
	ErrorCount      int
	TotalLatencyMS  float64
	StartedAt       string
	CompletedAt     string
}

// InsightRecord is one persisted per-ticker insight. Payload carries the
// full TickerInsight as JSON.
type InsightRecord struct {
	RequestID   string
	Ticker      string
	CompanyName string
	Stance      string
	Confidence  string
	Summary     string
	Payload     string
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS requests (
    request_id TEXT PRIMARY KEY,
    query TEXT NOT NULL,
    success INTEGER NOT NULL,
    tickers_analyzed TEXT NOT NULL DEFAULT '',
    error_count INTEGER NOT NULL DEFAULT 0,
    total_latency_ms REAL NOT NULL DEFAULT 0,
    started_at DATETIME NOT NULL,
    completed_at DATETIME NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS insights (
    request_id TEXT NOT NULL REFERENCES requests(request_id) ON DELETE CASCADE,
    ticker TEXT NOT NULL,
    company_name TEXT,
    stance TEXT NOT NULL,
    confidence TEXT NOT NULL,
    summary TEXT,
    payload TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (request_id, ticker)
);

CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// RecordAnalysis stores one completed analysis response with its insights.
// Confirmation-prompt responses carry no analysis and are skipped.
func (s *Store) RecordAnalysis(ctx context.Context, resp *models.AnalysisResponse) error {
	if resp == nil || resp.NeedsConfirmation {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	success := 0
	if resp.Success {
		success = 1
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO requests (request_id, query, success, tickers_analyzed, error_count, total_latency_ms, started_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(request_id) DO UPDATE SET
    query=excluded.query,
    success=excluded.success,
    tickers_analyzed=excluded.tickers_analyzed,
    error_count=excluded.error_count,
    total_latency_ms=excluded.total_latency_ms,
    started_at=excluded.started_at,
    completed_at=excluded.completed_at
`, resp.RequestID, resp.Query, success, strings.Join(resp.TickersAnalyzed, ","),
		len(resp.Errors), resp.TotalLatencyMS, resp.StartedAt, resp.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	for _, insight := range resp.Insights {
		payload, err := json.Marshal(insight)
		if err != nil {
			return fmt.Errorf("marshal insight %s: %w", insight.Ticker, err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO insights (request_id, ticker, company_name, stance, confidence, summary, payload)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(request_id, ticker) DO UPDATE SET
    company_name=excluded.company_name,
    stance=excluded.stance,
    confidence=excluded.confidence,
    summary=excluded.summary,
    payload=excluded.payload
`, resp.RequestID, insight.Ticker, insight.CompanyName, string(insight.Stance),
			string(insight.Confidence), insight.Summary, string(payload))
		if err != nil {
			return fmt.Errorf("insert insight %s: %w", insight.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListRequests returns the newest limit requests, newest first.
func (s *Store) ListRequests(ctx context.Context, limit int) ([]RequestRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT request_id, query, success, tickers_analyzed, error_count, total_latency_ms, started_at, completed_at
FROM requests
ORDER BY created_at DESC, request_id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []RequestRecord
	for rows.Next() {
		var rec RequestRecord
		var success int
		var tickersCSV string
		if err := rows.Scan(&rec.RequestID, &rec.Query, &success, &tickersCSV,
			&rec.ErrorCount, &rec.TotalLatencyMS, &rec.StartedAt, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		rec.Success = success != 0
		if tickersCSV != "" {
			rec.TickersAnalyzed = strings.Split(tickersCSV, ",")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetInsights returns the persisted insights for one request, decoded from
// their stored payloads, in ticker insertion order.
func (s *Store) GetInsights(ctx context.Context, requestID string) ([]models.TickerInsight, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT payload FROM insights WHERE request_id = ? ORDER BY rowid
`, requestID)
	if err != nil {
		return nil, fmt.Errorf("get insights: %w", err)
	}
	defer rows.Close()

	var out []models.TickerInsight
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		var insight models.TickerInsight
		if err := json.Unmarshal([]byte(payload), &insight); err != nil {
			return nil, fmt.Errorf("decode insight: %w", err)
		}
		out = append(out, insight)
	}
	return out, rows.Err()
}
