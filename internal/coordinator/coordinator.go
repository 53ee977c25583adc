package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dyike/StockScout/config"
	"github.com/dyike/StockScout/internal/broadcast"
	"github.com/dyike/StockScout/internal/conversation"
	"github.com/dyike/StockScout/internal/correction"
	"github.com/dyike/StockScout/internal/models"
	"github.com/dyike/StockScout/internal/orchestrator"
	"github.com/dyike/StockScout/internal/tickers"
)

const (
	promptTypeConfirmation  = "confirmation"
	promptTypeClarification = "clarification"
)

// HistoryRecorder persists completed analyses. Optional; a nil recorder
// disables persistence.
type HistoryRecorder interface {
	RecordAnalysis(ctx context.Context, resp *models.AnalysisResponse) error
}

// Coordinator is the request boundary: it turns an inbound query into
// either a confirmation prompt or an orchestrator run with a fully
// resolved ticker set. Progress events are published under the request id,
// which the transport subscribes before calling Handle.
type Coordinator struct {
	cfg         atomic.Pointer[config.Config]
	mapper      *tickers.Mapper
	resolver    correction.Resolver
	store       *conversation.Store
	broadcaster *broadcast.Broadcaster
	orch        *orchestrator.Orchestrator
	history     HistoryRecorder
}

func New(cfg *config.Config, resolver correction.Resolver, store *conversation.Store,
	broadcaster *broadcast.Broadcaster, orch *orchestrator.Orchestrator, history HistoryRecorder) *Coordinator {
	c := &Coordinator{
		mapper:      tickers.NewMapper(),
		resolver:    resolver,
		store:       store,
		broadcaster: broadcaster,
		orch:        orch,
		history:     history,
	}
	c.cfg.Store(cfg)
	return c
}

// Reload swaps the per-request defaults. In-flight requests keep the
// snapshot they started with.
func (c *Coordinator) Reload(cfg *config.Config) {
	c.cfg.Store(cfg)
}

// Handle processes one analyze call synchronously. The response is either
// a confirmation prompt or the completed analysis.
func (c *Coordinator) Handle(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResponse, error) {
	c.applyDefaults(req)
	emitter := broadcast.NewEmitter(c.broadcaster, req.RequestID)

	if req.ConversationID != "" {
		return c.handleFollowUp(ctx, req, emitter)
	}
	return c.handleNewQuery(ctx, req, emitter)
}

func (c *Coordinator) applyDefaults(req *models.AnalysisRequest) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	cfg := c.cfg.Load()
	if req.MaxIterations <= 0 {
		req.MaxIterations = cfg.DefaultMaxIterations
	}
	if req.TimeoutSeconds <= 0 {
		req.TimeoutSeconds = cfg.DefaultTimeoutSeconds
	}
}

func (c *Coordinator) handleNewQuery(ctx context.Context, req *models.AnalysisRequest, emitter *broadcast.Emitter) (*models.AnalysisResponse, error) {
	emitter.QueryReceived(req.Query)

	// Caller-supplied tickers skip extraction and correction entirely.
	if len(req.ConfirmedTickers) > 0 {
		return c.runAnalysis(ctx, req, req.ConfirmedTickers, emitter)
	}

	emitter.ExtractingTickers()
	resolved, unresolved := c.mapper.Extract(req.Query)

	var pending []models.Candidate
	if len(unresolved) > 0 {
		emitter.CheckingTypos()
		for _, token := range unresolved {
			candidates := c.resolver.Resolve(ctx, token)
			if len(candidates) == 0 {
				log.Printf("request %s: no correction for %q, dropping", req.RequestID, token)
				continue
			}
			best := candidates[0]
			if c.cfg.Load().AutoAcceptHigh && best.Confidence == models.ConfidenceHigh {
				resolved = appendUnique(resolved, best.Ticker)
				emitter.Info(fmt.Sprintf("Interpreted %q as %s (%s)", token, best.CorrectedName, best.Ticker))
				continue
			}
			pending = append(pending, best)
		}
	}

	if len(pending) > 0 {
		emitter.TyposDetected(len(pending))
		conv := c.store.Create(req.Query, pending, resolved)
		return c.confirmationResponse(req, conv.ID, conv.Head()), nil
	}

	if len(resolved) == 0 {
		emitter.RequestFailed("Could not identify any companies or tickers in your query")
		return c.clarificationResponse(req,
			"I couldn't identify any companies or stock tickers in your query. Try naming the companies directly, e.g. \"analyze Apple and Microsoft\"."), nil
	}

	return c.runAnalysis(ctx, req, resolved, emitter)
}

func (c *Coordinator) handleFollowUp(ctx context.Context, req *models.AnalysisRequest, emitter *broadcast.Emitter) (*models.AnalysisResponse, error) {
	conv, err := c.store.Get(req.ConversationID)
	if err != nil {
		if errors.Is(err, conversation.ErrExpired) || errors.Is(err, conversation.ErrNotFound) {
			return c.clarificationResponse(req,
				"That conversation is no longer active. Please start over with a new query."), nil
		}
		return nil, err
	}

	head := conv.Head()
	if head == nil {
		c.store.Delete(conv.ID)
		return c.clarificationResponse(req,
			"That conversation is no longer active. Please start over with a new query."), nil
	}

	accept := parseConfirmation(req.ConfirmationResponse, head, c.mapper)
	result, err := c.store.Advance(conv.ID, accept)
	if err != nil {
		return c.clarificationResponse(req,
			"That conversation is no longer active. Please start over with a new query."), nil
	}

	if result.Next != nil {
		return c.confirmationResponse(req, conv.ID, result.Next), nil
	}

	c.store.Delete(conv.ID)
	if result.NeedClarification {
		emitter.RequestFailed("No stocks confirmed for analysis")
		return c.clarificationResponse(req,
			"No stocks were confirmed. Please restate your query with the company names or tickers you want analyzed."), nil
	}
	return c.runAnalysis(ctx, req, result.Confirmed, emitter)
}

func (c *Coordinator) runAnalysis(ctx context.Context, req *models.AnalysisRequest, confirmed []string, emitter *broadcast.Emitter) (*models.AnalysisResponse, error) {
	startedAt := time.Now()

	run := *req
	run.ConfirmedTickers = confirmed
	result, err := c.orch.Run(ctx, &run, emitter)
	if err != nil {
		return nil, err
	}

	resp := &models.AnalysisResponse{
		RequestID:       req.RequestID,
		Query:           req.Query,
		Insights:        result.Insights,
		TickersAnalyzed: result.TickersAnalyzed,
		Errors:          result.Errors,
		TotalLatencyMS:  float64(result.Elapsed.Milliseconds()),
		StartedAt:       startedAt,
		CompletedAt:     time.Now(),
		Success:         len(result.Insights) > 0,
	}

	if c.history != nil {
		if err := c.history.RecordAnalysis(ctx, resp); err != nil {
			log.Printf("request %s: history write failed: %v", req.RequestID, err)
		}
	}
	return resp, nil
}

func (c *Coordinator) confirmationResponse(req *models.AnalysisRequest, conversationID string, candidate *models.Candidate) *models.AnalysisResponse {
	return &models.AnalysisResponse{
		RequestID:         req.RequestID,
		Query:             req.Query,
		NeedsConfirmation: true,
		ConfirmationPrompt: &models.ConfirmationPrompt{
			Type:           promptTypeConfirmation,
			ConversationID: conversationID,
			Message: fmt.Sprintf("Did you mean %s (%s)? %s",
				candidate.CorrectedName, candidate.Ticker, candidate.Explanation),
			Options:   []string{"Yes", "No"},
			Candidate: candidate,
		},
	}
}

func (c *Coordinator) clarificationResponse(req *models.AnalysisRequest, message string) *models.AnalysisResponse {
	return &models.AnalysisResponse{
		RequestID:         req.RequestID,
		Query:             req.Query,
		NeedsConfirmation: true,
		ConfirmationPrompt: &models.ConfirmationPrompt{
			Type:    promptTypeClarification,
			Message: message,
		},
	}
}

// parseConfirmation maps a user's answer to accept/reject for the head
// candidate. Free text is accepted when it resolves to the candidate's own
// ticker; anything else rejects, the ambiguous reference is dropped rather
// than guessed.
func parseConfirmation(answer string, head *models.Candidate, mapper *tickers.Mapper) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y", "yeah", "yep", "correct", "right", "ok", "sure":
		return true
	case "no", "n", "nope", "wrong", "":
		return false
	}
	if ticker, ok := mapper.MapToTicker(answer); ok {
		return tickers.NormalizeSymbol(ticker) == head.Ticker
	}
	return false
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
