package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/dyike/StockScout/config"
	"github.com/dyike/StockScout/internal/broadcast"
	"github.com/dyike/StockScout/internal/conversation"
	"github.com/dyike/StockScout/internal/coordinator"
	"github.com/dyike/StockScout/internal/correction"
	"github.com/dyike/StockScout/internal/models"
	"github.com/dyike/StockScout/internal/orchestrator"
	"github.com/dyike/StockScout/internal/storage/sqlite"
	"github.com/dyike/StockScout/internal/tickers"
)

type fakeFetcher struct{}

func (fakeFetcher) FetchTickerData(ctx context.Context, ticker string) (*models.TickerData, error) {
	return &models.TickerData{
		Quote: models.Quote{Symbol: ticker, CompanyName: ticker + " Corp", Price: decimal.NewFromFloat(10)},
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

func newTestServer(t *testing.T, history *sqlite.Store) (*Server, *broadcast.Broadcaster) {
	t.Helper()
	cfg := &config.Config{
		DefaultMaxIterations:  3,
		DefaultTimeoutSeconds: 10,
		MaxConcurrentTickers:  2,
	}
	b := broadcast.NewBroadcaster()
	store := conversation.NewStore(time.Minute)
	resolver := correction.NewService(nil, tickers.NewMapper())
	orch := orchestrator.New(fakeFetcher{}, fakeSynthesizer{}, cfg)
	var recorder coordinator.HistoryRecorder
	if history != nil {
		recorder = history
	}
	coord := coordinator.New(cfg, resolver, store, b, orch, recorder)
	return New(cfg, coord, b, history), b
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestHandleAnalyzeBadJSON(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{nope"))
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAnalyzeEmptyQuery(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{}"))
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAnalyzeCompletes(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze",
		strings.NewReader(`{"query": "analyze AAPL and MSFT", "request_id": "req-http"}`))
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.AnalysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.NeedsConfirmation {
		t.Fatalf("expected completed analysis, got prompt %+v", resp.ConfirmationPrompt)
	}
	if len(resp.Insights) != 2 || resp.TickersAnalyzed[0] != "AAPL" {
		t.Fatalf("unexpected analysis: %+v", resp.TickersAnalyzed)
	}
}

func TestHandleHistoryUnconfigured(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHandleHistoryReadsPersistedRuns(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	s, _ := newTestServer(t, store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze",
		strings.NewReader(`{"query": "analyze AAPL", "request_id": "req-hist"}`))
	s.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze failed: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Requests []sqlite.RequestRecord `json:"requests"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Requests) != 1 || body.Requests[0].RequestID != "req-hist" {
		t.Fatalf("unexpected history: %+v", body.Requests)
	}

	rec = httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/req-hist", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleHistoryBadLimit(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	s, _ := newTestServer(t, store)

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLogStreamDeliversUntilTerminal(t *testing.T) {
	s, b := newTestServer(t, nil)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/logs/req-ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	emitter := broadcast.NewEmitter(b, "req-ws")
	emitter.Info("working on it")
	emitter.AllComplete(1)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first models.LogEvent
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first event: %v", err)
	}
	if first.Message != "working on it" {
		t.Fatalf("unexpected first event: %+v", first)
	}

	var terminal models.LogEvent
	if err := conn.ReadJSON(&terminal); err != nil {
		t.Fatalf("read terminal event: %v", err)
	}
	if !terminal.Terminal() {
		t.Fatalf("expected terminal event, got %+v", terminal)
	}

	// After the terminal event the server closes the stream.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close after terminal event")
	}
}
