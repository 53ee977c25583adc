package broadcast

import (
	"fmt"
	"strings"

	"github.com/dyike/StockScout/internal/models"
)

// Emitter publishes user-facing progress messages for one request. All
// methods are fire and forget; a missing subscriber costs nothing.
type Emitter struct {
	broadcaster *Broadcaster
	requestID   string
}

func NewEmitter(b *Broadcaster, requestID string) *Emitter {
	return &Emitter{broadcaster: b, requestID: requestID}
}

func (e *Emitter) emit(kind models.EventKind, message, agent string, details map[string]any) {
	if e == nil || e.broadcaster == nil {
		return
	}
	event := models.NewLogEvent(kind, message)
	event.Agent = agent
	event.Details = details
	e.broadcaster.Publish(e.requestID, event)
}

func (e *Emitter) QueryReceived(query string) {
	e.emit(models.EventInfo, fmt.Sprintf("Analyzing your query: %q", query), "",
		map[string]any{"query": query})
}

func (e *Emitter) ExtractingTickers() {
	e.emit(models.EventThinking, "Identifying companies and stock tickers from your query...", "", nil)
}

func (e *Emitter) CheckingTypos() {
	e.emit(models.EventThinking, "Checking for potential typos in company names...", "smart_correction", nil)
}

func (e *Emitter) TyposDetected(count int) {
	e.emit(models.EventWarning,
		fmt.Sprintf("Detected %d potential typo(s) - requesting confirmation", count), "",
		map[string]any{"corrections_count": count})
}

func (e *Emitter) StartingAnalysis(tickers []string) {
	e.emit(models.EventInfo,
		fmt.Sprintf("Starting comprehensive analysis for %d stock(s): %s",
			len(tickers), strings.Join(tickers, ", ")), "",
		map[string]any{"tickers": tickers})
}

func (e *Emitter) FetchingCompanyInfo(ticker string) {
	e.emit(models.EventToolCall,
		fmt.Sprintf("Gathering company information for %s...", ticker), "",
		map[string]any{"ticker": ticker, "tool": "fetch_quote_and_history"})
}

func (e *Emitter) MarketDataFetched(ticker string, sessions int) {
	e.emit(models.EventDataFetch,
		fmt.Sprintf("Retrieved quote and %d session(s) of price history for %s", sessions, ticker), "",
		map[string]any{"ticker": ticker, "sessions": sessions})
}

func (e *Emitter) FetchingNews(ticker, companyName string) {
	name := companyName
	if name == "" {
		name = ticker
	}
	e.emit(models.EventSearchQuery,
		fmt.Sprintf("Searching for latest news about %s...", name), "news",
		map[string]any{"ticker": ticker, "query": name + " stock news"})
}

func (e *Emitter) NewsFound(ticker string, count int) {
	e.emit(models.EventAgentComplete,
		fmt.Sprintf("Found %d recent news article(s) for %s", count, ticker), "news",
		map[string]any{"ticker": ticker, "articles_count": count})
}

func (e *Emitter) AnalyzingTechnicals(ticker string) {
	e.emit(models.EventThinking,
		fmt.Sprintf("Calculating trend and technical levels for %s...", ticker), "price",
		map[string]any{"ticker": ticker})
}

func (e *Emitter) PriceAnalysisComplete(ticker, trend string) {
	e.emit(models.EventAgentComplete,
		fmt.Sprintf("Price analysis complete for %s - trend: %s", ticker, trend), "price",
		map[string]any{"ticker": ticker, "trend": trend})
}

func (e *Emitter) SynthesizingAnalysis(ticker string) {
	e.emit(models.EventAgentStart,
		fmt.Sprintf("Synthesizing all data to generate investment recommendation for %s...", ticker),
		"synthesis", map[string]any{"ticker": ticker})
}

func (e *Emitter) SynthesisRetrying(ticker string, attempt, max int) {
	e.emit(models.EventAgentProgress,
		fmt.Sprintf("Recommendation synthesis for %s failed, retrying (attempt %d/%d)...", ticker, attempt, max),
		"synthesis", map[string]any{"ticker": ticker, "attempt": attempt, "max_attempts": max})
}

func (e *Emitter) RecommendationComplete(ticker string, stance models.Stance, confidence models.Confidence) {
	e.emit(models.EventAnalysis,
		fmt.Sprintf("Recommendation for %s: %s (%s confidence)",
			ticker, strings.ToUpper(string(stance)), confidence), "synthesis",
		map[string]any{"ticker": ticker, "stance": string(stance), "confidence": string(confidence)})
}

func (e *Emitter) TickerComplete(ticker, companyName string) {
	name := companyName
	if name == "" {
		name = ticker
	}
	e.emit(models.EventSuccess,
		fmt.Sprintf("Completed analysis for %s", name), "",
		map[string]any{"ticker": ticker})
}

func (e *Emitter) TickerFailed(ticker, message string) {
	e.emit(models.EventError,
		fmt.Sprintf("Failed to analyze %s: %s", ticker, message), "",
		map[string]any{"ticker": ticker})
}

// AllComplete is the stream's terminal success event.
func (e *Emitter) AllComplete(insightCount int) {
	e.emit(models.EventSuccess,
		fmt.Sprintf("Analysis complete! Generated investment insights for %d stock(s)", insightCount), "",
		map[string]any{"tickers_count": insightCount, "final": true})
}

// RequestFailed is the stream's terminal failure event.
func (e *Emitter) RequestFailed(message string) {
	e.emit(models.EventError, message, "", map[string]any{"final": true})
}

func (e *Emitter) Info(message string) {
	e.emit(models.EventInfo, message, "", nil)
}
