package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/StockScout/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResponse(requestID string) *models.AnalysisResponse {
	now := time.Now()
	return &models.AnalysisResponse{
		RequestID:       requestID,
		Query:           "analyze AAPL",
		TickersAnalyzed: []string{"AAPL"},
		Insights: []models.TickerInsight{
			{
				Ticker:       "AAPL",
				CompanyName:  "Apple Inc.",
				CurrentPrice: decimal.NewFromFloat(191.34),
				Stance:       models.StanceBuy,
				Confidence:   models.ConfidenceHigh,
				Summary:      "Strong momentum.",
				KeyDrivers:   []string{"chip launch"},
			},
		},
		TotalLatencyMS: 1200,
		StartedAt:      now.Add(-time.Second),
		CompletedAt:    now,
		Success:        true,
	}
}

func TestRecordAndListRequests(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordAnalysis(ctx, sampleResponse("req-1")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.RecordAnalysis(ctx, sampleResponse("req-2")); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, err := store.ListRequests(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RequestID != "req-2" {
		t.Fatalf("expected newest first, got %s", records[0].RequestID)
	}
	if !records[0].Success || records[0].TickersAnalyzed[0] != "AAPL" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestGetInsightsRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordAnalysis(ctx, sampleResponse("req-1")); err != nil {
		t.Fatalf("record: %v", err)
	}

	insights, err := store.GetInsights(ctx, "req-1")
	if err != nil {
		t.Fatalf("get insights: %v", err)
	}
	if len(insights) != 1 {
		t.Fatalf("expected 1 insight, got %d", len(insights))
	}
	got := insights[0]
	if got.Ticker != "AAPL" || got.Stance != models.StanceBuy || got.Confidence != models.ConfidenceHigh {
		t.Fatalf("unexpected insight: %+v", got)
	}
	if !got.CurrentPrice.Equal(decimal.NewFromFloat(191.34)) {
		t.Fatalf("price lost precision: %s", got.CurrentPrice)
	}
	if len(got.KeyDrivers) != 1 || got.KeyDrivers[0] != "chip launch" {
		t.Fatalf("narrative fields not preserved: %+v", got.KeyDrivers)
	}
}

func TestRecordIsIdempotentPerRequestID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	resp := sampleResponse("req-1")
	if err := store.RecordAnalysis(ctx, resp); err != nil {
		t.Fatalf("record: %v", err)
	}
	resp.Insights[0].Summary = "Updated view."
	if err := store.RecordAnalysis(ctx, resp); err != nil {
		t.Fatalf("re-record: %v", err)
	}

	records, err := store.ListRequests(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected a single record after upsert, got %d", len(records))
	}
	insights, err := store.GetInsights(ctx, "req-1")
	if err != nil {
		t.Fatalf("get insights: %v", err)
	}
	if insights[0].Summary != "Updated view." {
		t.Fatalf("expected upserted summary, got %q", insights[0].Summary)
	}
}

func TestRecordSkipsConfirmationResponses(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordAnalysis(ctx, &models.AnalysisResponse{
		RequestID:         "req-confirm",
		NeedsConfirmation: true,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, err := store.ListRequests(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("confirmation prompts must not persist, got %d", len(records))
	}
}
