package coordinator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/StockScout/config"
	"github.com/dyike/StockScout/internal/broadcast"
	"github.com/dyike/StockScout/internal/conversation"
	"github.com/dyike/StockScout/internal/models"
	"github.com/dyike/StockScout/internal/orchestrator"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeFetcher) FetchTickerData(ctx context.Context, ticker string) (*models.TickerData, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ticker)
	f.mu.Unlock()
	return &models.TickerData{
		Quote: models.Quote{Symbol: ticker, CompanyName: ticker + " Corp", Price: decimal.NewFromFloat(50)},
		Trend: "neutral",
	}, nil
}

type fakeSynthesizer struct{}

func (fakeSynthesizer) Synthesize(ctx context.Context, data *models.TickerData) (*models.TickerInsight, error) {
	return &models.TickerInsight{
		Ticker:     data.Quote.Symbol,
		Stance:     models.StanceHold,
		Confidence: models.ConfidenceMedium,
	}, nil
}

type fakeResolver struct {
	candidates map[string][]models.Candidate
}

func (r *fakeResolver) Resolve(ctx context.Context, token string) []models.Candidate {
	return r.candidates[strings.ToLower(token)]
}

func newTestCoordinator(t *testing.T, cfg *config.Config, resolver *fakeResolver, ttl time.Duration) (*Coordinator, *fakeFetcher, *conversation.Store) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{
			DefaultMaxIterations:  3,
			DefaultTimeoutSeconds: 10,
			MaxConcurrentTickers:  2,
		}
	}
	if resolver == nil {
		resolver = &fakeResolver{}
	}
	fetcher := &fakeFetcher{}
	store := conversation.NewStore(ttl)
	orch := orchestrator.New(fetcher, fakeSynthesizer{}, cfg)
	return New(cfg, resolver, store, broadcast.NewBroadcaster(), orch, nil), fetcher, store
}

func metaCandidate(conf models.Confidence) []models.Candidate {
	return []models.Candidate{{
		Original:      "Matae",
		CorrectedName: "Meta Platforms",
		Ticker:        "META",
		Confidence:    conf,
		Explanation:   "Close match for Meta",
	}}
}

func TestHandleDirectTickersRunsAnalysis(t *testing.T) {
	c, fetcher, _ := newTestCoordinator(t, nil, nil, time.Minute)

	resp, err := c.Handle(context.Background(), &models.AnalysisRequest{Query: "analyze AAPL and MSFT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.NeedsConfirmation {
		t.Fatalf("expected no confirmation, got prompt %+v", resp.ConfirmationPrompt)
	}
	if len(resp.Insights) != 2 || resp.TickersAnalyzed[0] != "AAPL" || resp.TickersAnalyzed[1] != "MSFT" {
		t.Fatalf("unexpected analysis outcome: %+v", resp.TickersAnalyzed)
	}
	if !resp.Success {
		t.Fatalf("expected success")
	}
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if len(fetcher.calls) != 2 {
		t.Fatalf("expected 2 fetches, got %d", len(fetcher.calls))
	}
}

func TestHandleMisspellingConfirmationFlow(t *testing.T) {
	resolver := &fakeResolver{candidates: map[string][]models.Candidate{
		"matae": metaCandidate(models.ConfidenceHigh),
	}}
	c, fetcher, _ := newTestCoordinator(t, nil, resolver, time.Minute)

	resp, err := c.Handle(context.Background(), &models.AnalysisRequest{Query: "analyze Matae stock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.NeedsConfirmation || resp.ConfirmationPrompt == nil {
		t.Fatalf("expected confirmation prompt, got %+v", resp)
	}
	if resp.ConfirmationPrompt.Type != "confirmation" {
		t.Fatalf("expected confirmation type, got %q", resp.ConfirmationPrompt.Type)
	}
	if resp.ConfirmationPrompt.Candidate.Ticker != "META" {
		t.Fatalf("expected META candidate, got %+v", resp.ConfirmationPrompt.Candidate)
	}
	if !strings.Contains(resp.ConfirmationPrompt.Message, "Meta Platforms") {
		t.Fatalf("prompt should name the correction: %q", resp.ConfirmationPrompt.Message)
	}
	fetcher.mu.Lock()
	calls := len(fetcher.calls)
	fetcher.mu.Unlock()
	if calls != 0 {
		t.Fatalf("analysis must not run before confirmation")
	}

	follow, err := c.Handle(context.Background(), &models.AnalysisRequest{
		Query:                "analyze Matae stock",
		ConversationID:       resp.ConfirmationPrompt.ConversationID,
		ConfirmationResponse: "Yes",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if follow.NeedsConfirmation {
		t.Fatalf("expected analysis after confirmation, got %+v", follow.ConfirmationPrompt)
	}
	if len(follow.TickersAnalyzed) != 1 || follow.TickersAnalyzed[0] != "META" {
		t.Fatalf("expected META analyzed, got %v", follow.TickersAnalyzed)
	}
}

func TestHandleRejectOnlyCandidateAsksClarification(t *testing.T) {
	resolver := &fakeResolver{candidates: map[string][]models.Candidate{
		"matae": metaCandidate(models.ConfidenceMedium),
	}}
	c, _, store := newTestCoordinator(t, nil, resolver, time.Minute)

	resp, err := c.Handle(context.Background(), &models.AnalysisRequest{Query: "analyze Matae stock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	follow, err := c.Handle(context.Background(), &models.AnalysisRequest{
		Query:                "analyze Matae stock",
		ConversationID:       resp.ConfirmationPrompt.ConversationID,
		ConfirmationResponse: "No",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !follow.NeedsConfirmation || follow.ConfirmationPrompt.Type != "clarification" {
		t.Fatalf("expected clarification, got %+v", follow)
	}
	if store.Len() != 0 {
		t.Fatalf("conversation should be deleted after drain")
	}
}

func TestHandleAutoAcceptHighSkipsConfirmation(t *testing.T) {
	cfg := &config.Config{
		DefaultMaxIterations:  3,
		DefaultTimeoutSeconds: 10,
		MaxConcurrentTickers:  2,
		AutoAcceptHigh:        true,
	}
	resolver := &fakeResolver{candidates: map[string][]models.Candidate{
		"matae": metaCandidate(models.ConfidenceHigh),
	}}
	c, _, _ := newTestCoordinator(t, cfg, resolver, time.Minute)

	resp, err := c.Handle(context.Background(), &models.AnalysisRequest{Query: "analyze Matae stock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.NeedsConfirmation {
		t.Fatalf("high-confidence candidate should be auto-accepted, got %+v", resp.ConfirmationPrompt)
	}
	if len(resp.TickersAnalyzed) != 1 || resp.TickersAnalyzed[0] != "META" {
		t.Fatalf("expected META analyzed, got %v", resp.TickersAnalyzed)
	}
}

func TestReloadSwapsRequestDefaults(t *testing.T) {
	resolver := &fakeResolver{candidates: map[string][]models.Candidate{
		"matae": metaCandidate(models.ConfidenceHigh),
	}}
	c, _, store := newTestCoordinator(t, nil, resolver, time.Minute)

	resp, err := c.Handle(context.Background(), &models.AnalysisRequest{Query: "analyze Matae stock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.NeedsConfirmation {
		t.Fatalf("expected a confirmation prompt before the reload")
	}
	store.Delete(resp.ConfirmationPrompt.ConversationID)

	c.Reload(&config.Config{
		DefaultMaxIterations:  3,
		DefaultTimeoutSeconds: 10,
		MaxConcurrentTickers:  2,
		AutoAcceptHigh:        true,
	})

	resp, err = c.Handle(context.Background(), &models.AnalysisRequest{Query: "analyze Matae stock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.NeedsConfirmation {
		t.Fatalf("expected auto-accept after the reload, got %+v", resp.ConfirmationPrompt)
	}
	if len(resp.TickersAnalyzed) != 1 || resp.TickersAnalyzed[0] != "META" {
		t.Fatalf("expected META analyzed, got %v", resp.TickersAnalyzed)
	}
}

func TestHandleExpiredConversation(t *testing.T) {
	c, _, store := newTestCoordinator(t, nil, nil, time.Nanosecond)
	conv := store.Create("analyze Matae stock", metaCandidate(models.ConfidenceMedium), nil)
	time.Sleep(5 * time.Millisecond)

	resp, err := c.Handle(context.Background(), &models.AnalysisRequest{
		Query:                "analyze Matae stock",
		ConversationID:       conv.ID,
		ConfirmationResponse: "Yes",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.NeedsConfirmation || resp.ConfirmationPrompt.Type != "clarification" {
		t.Fatalf("expected start-over clarification, got %+v", resp)
	}
	if !strings.Contains(resp.ConfirmationPrompt.Message, "start over") {
		t.Fatalf("expected start-over wording, got %q", resp.ConfirmationPrompt.Message)
	}
}

func TestHandleUnknownConversation(t *testing.T) {
	c, _, _ := newTestCoordinator(t, nil, nil, time.Minute)

	resp, err := c.Handle(context.Background(), &models.AnalysisRequest{
		Query:          "analyze AAPL",
		ConversationID: "nope",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.NeedsConfirmation || resp.ConfirmationPrompt.Type != "clarification" {
		t.Fatalf("expected start-over clarification, got %+v", resp)
	}
}

func TestHandleNothingRecognized(t *testing.T) {
	c, fetcher, _ := newTestCoordinator(t, nil, nil, time.Minute)

	resp, err := c.Handle(context.Background(), &models.AnalysisRequest{Query: "what is the weather today"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.NeedsConfirmation || resp.ConfirmationPrompt.Type != "clarification" {
		t.Fatalf("expected clarification, got %+v", resp)
	}
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if len(fetcher.calls) != 0 {
		t.Fatalf("analysis must not run")
	}
}

func TestHandleGeneratesRequestID(t *testing.T) {
	c, _, _ := newTestCoordinator(t, nil, nil, time.Minute)

	resp, err := c.Handle(context.Background(), &models.AnalysisRequest{Query: "analyze AAPL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestHandleMixedKnownAndPendingTickers(t *testing.T) {
	resolver := &fakeResolver{candidates: map[string][]models.Candidate{
		"matae": metaCandidate(models.ConfidenceMedium),
	}}
	c, _, _ := newTestCoordinator(t, nil, resolver, time.Minute)

	resp, err := c.Handle(context.Background(), &models.AnalysisRequest{Query: "compare AAPL with Matae"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.NeedsConfirmation {
		t.Fatalf("expected confirmation for the ambiguous token")
	}

	follow, err := c.Handle(context.Background(), &models.AnalysisRequest{
		Query:                "compare AAPL with Matae",
		ConversationID:       resp.ConfirmationPrompt.ConversationID,
		ConfirmationResponse: "yes",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.Join(follow.TickersAnalyzed, ",")
	if got != "AAPL,META" {
		t.Fatalf("expected AAPL,META, got %s", got)
	}
}
