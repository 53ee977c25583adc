package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dyike/StockScout/config"
	"github.com/dyike/StockScout/internal/broadcast"
	"github.com/dyike/StockScout/internal/models"
	"github.com/dyike/StockScout/internal/tickers"
)

// DataFetcher supplies market data for one ticker.
type DataFetcher interface {
	FetchTickerData(ctx context.Context, ticker string) (*models.TickerData, error)
}

// InsightSynthesizer turns fetched data into an investment insight.
type InsightSynthesizer interface {
	Synthesize(ctx context.Context, data *models.TickerData) (*models.TickerInsight, error)
}

// State identifies where a run is in the workflow.
type State int

const (
	StateResolvingTickers State = iota
	StateAnalyzingTickers
)

func (s State) String() string {
	switch s {
	case StateResolvingTickers:
		return "resolving_tickers"
	case StateAnalyzingTickers:
		return "analyzing_tickers"
	}
	return "unknown"
}

// Orchestrator runs the analysis workflow: validate the ticker set, then
// fan out one bounded-concurrency task per ticker, collecting partial
// results. Per-ticker failures are recorded, they never abort siblings.
type Orchestrator struct {
	fetcher        DataFetcher
	synthesizer    InsightSynthesizer
	maxConcurrent  int
	defaultTimeout time.Duration
}

func New(fetcher DataFetcher, synthesizer InsightSynthesizer, cfg *config.Config) *Orchestrator {
	maxConcurrent := cfg.MaxConcurrentTickers
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		fetcher:        fetcher,
		synthesizer:    synthesizer,
		maxConcurrent:  maxConcurrent,
		defaultTimeout: time.Duration(cfg.DefaultTimeoutSeconds) * time.Second,
	}
}

// tickerOutcome is one slot of the aggregate. Exactly one of insight and
// err is set.
type tickerOutcome struct {
	insight *models.TickerInsight
	err     *models.AnalysisError
}

// Run executes the workflow for an already-confirmed ticker set and
// returns the aggregate. Insights keep the input ticker order regardless
// of completion order. The emitter may be nil.
func (o *Orchestrator) Run(ctx context.Context, req *models.AnalysisRequest, emitter *broadcast.Emitter) (*models.AnalysisResult, error) {
	start := time.Now()
	result := &models.AnalysisResult{}

	state := StateResolvingTickers
	log.Printf("request %s: state %s", req.RequestID, state)

	valid, validationErrs := validateTickers(req.ConfirmedTickers)
	result.Errors = append(result.Errors, validationErrs...)
	if len(valid) == 0 {
		if len(validationErrs) == 0 {
			result.Errors = append(result.Errors, models.AnalysisError{
				Kind:    models.ErrorKindValidation,
				Message: "no tickers to analyze",
			})
		}
		emitter.RequestFailed("No valid stock tickers found in your request")
		result.Elapsed = time.Since(start)
		return result, nil
	}

	state = StateAnalyzingTickers
	log.Printf("request %s: state %s, tickers %v", req.RequestID, state, valid)

	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = o.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	emitter.StartingAnalysis(valid)

	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 1
	}

	outcomes := make([]tickerOutcome, len(valid))
	sem := make(chan struct{}, o.maxConcurrent)
	done := make(chan struct{}, len(valid))

	for i, ticker := range valid {
		go func(i int, ticker string) {
			defer func() { done <- struct{}{} }()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				outcomes[i] = tickerOutcome{err: timeoutError(ticker, ctx.Err())}
				return
			}
			outcomes[i] = o.analyzeTicker(ctx, ticker, maxIterations, emitter)
		}(i, ticker)
	}
	for range valid {
		<-done
	}

	for i, out := range outcomes {
		if out.err != nil {
			emitter.TickerFailed(valid[i], out.err.Message)
			result.Errors = append(result.Errors, *out.err)
			continue
		}
		result.Insights = append(result.Insights, *out.insight)
		result.TickersAnalyzed = append(result.TickersAnalyzed, valid[i])
	}

	if len(result.Insights) == 0 {
		emitter.RequestFailed("Analysis failed for all requested stocks")
	} else {
		emitter.AllComplete(len(result.Insights))
	}

	result.Elapsed = time.Since(start)
	log.Printf("request %s: %d insight(s), %d error(s) in %s",
		req.RequestID, len(result.Insights), len(result.Errors), result.Elapsed.Round(time.Millisecond))
	return result, nil
}

// analyzeTicker is one fan-out task: fetch data, then synthesize, with a
// trace recorded per stage. maxIterations bounds synthesis attempts.
func (o *Orchestrator) analyzeTicker(ctx context.Context, ticker string, maxIterations int, emitter *broadcast.Emitter) tickerOutcome {
	emitter.FetchingCompanyInfo(ticker)
	emitter.FetchingNews(ticker, "")

	fetchStart := time.Now()
	data, err := o.fetcher.FetchTickerData(ctx, ticker)
	fetchLatency := time.Since(fetchStart)
	if err != nil {
		return tickerOutcome{err: stageError(ticker, models.ErrorKindFetch, err)}
	}

	emitter.MarketDataFetched(ticker, len(data.History))
	emitter.NewsFound(ticker, len(data.News))
	emitter.AnalyzingTechnicals(ticker)
	emitter.PriceAnalysisComplete(ticker, data.Trend)

	dataTrace := models.AgentTrace{
		AgentType: "market_data",
		Ticker:    ticker,
		Steps: []models.AgentStep{
			{
				StepNumber:  1,
				Thought:     "Need current quote and recent price history to judge the setup",
				Action:      "fetch_quote_and_history",
				Observation: fmt.Sprintf("price %s, trend %s over %d sessions", data.Quote.Price.StringFixed(2), data.Trend, len(data.History)),
				LatencyMS:   float64(fetchLatency.Milliseconds()),
			},
			{
				StepNumber:  2,
				Thought:     "Recent headlines may explain or contradict the price action",
				Action:      "search_news",
				Observation: fmt.Sprintf("%d article(s) retrieved", len(data.News)),
			},
		},
		Success:        true,
		TotalLatencyMS: float64(fetchLatency.Milliseconds()),
	}

	emitter.SynthesizingAnalysis(ticker)
	synthStart := time.Now()
	var insight *models.TickerInsight
	for attempt := 1; attempt <= maxIterations; attempt++ {
		insight, err = o.synthesizer.Synthesize(ctx, data)
		if err == nil {
			break
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			break
		}
		log.Printf("synthesis attempt %d/%d for %s failed: %v", attempt, maxIterations, ticker, err)
		if attempt < maxIterations {
			emitter.SynthesisRetrying(ticker, attempt+1, maxIterations)
		}
	}
	synthLatency := time.Since(synthStart)
	if err != nil {
		return tickerOutcome{err: stageError(ticker, models.ErrorKindSynthesis, err)}
	}

	synthTrace := models.AgentTrace{
		AgentType: "synthesis",
		Ticker:    ticker,
		Steps: []models.AgentStep{
			{
				StepNumber:  1,
				Thought:     "Combine news and price action into a single stance",
				Action:      "synthesize_insight",
				Observation: fmt.Sprintf("stance %s, confidence %s", insight.Stance, insight.Confidence),
				LatencyMS:   float64(synthLatency.Milliseconds()),
			},
		},
		Success:        true,
		TotalLatencyMS: float64(synthLatency.Milliseconds()),
	}
	insight.AgentTraces = append(insight.AgentTraces, dataTrace, synthTrace)

	emitter.RecommendationComplete(ticker, insight.Stance, insight.Confidence)
	emitter.TickerComplete(ticker, insight.CompanyName)
	return tickerOutcome{insight: insight}
}

// validateTickers normalizes, validates, and order-preservingly dedupes
// the requested set. Invalid symbols become validation errors.
func validateTickers(requested []string) ([]string, []models.AnalysisError) {
	var valid []string
	var errs []models.AnalysisError
	seen := make(map[string]bool, len(requested))
	for _, raw := range requested {
		symbol := tickers.NormalizeSymbol(raw)
		if symbol == "" {
			continue
		}
		if seen[symbol] {
			continue
		}
		seen[symbol] = true
		if !tickers.ValidSymbol(symbol) {
			errs = append(errs, models.AnalysisError{
				Ticker:  raw,
				Kind:    models.ErrorKindValidation,
				Message: fmt.Sprintf("%q is not a valid ticker symbol", raw),
			})
			continue
		}
		valid = append(valid, symbol)
	}
	return valid, errs
}

// stageError records one stage failure, downgrading the kind to timeout
// when the failure came from cancellation.
func stageError(ticker string, kind models.ErrorKind, err error) *models.AnalysisError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return timeoutError(ticker, err)
	}
	return &models.AnalysisError{Ticker: ticker, Kind: kind, Message: err.Error()}
}

func timeoutError(ticker string, err error) *models.AnalysisError {
	return &models.AnalysisError{
		Ticker:  ticker,
		Kind:    models.ErrorKindTimeout,
		Message: fmt.Sprintf("analysis timed out: %v", err),
	}
}
