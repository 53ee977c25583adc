package models

import "time"

// AnalysisRequest is one inbound analyze call. Immutable once the
// orchestrator starts running it.
type AnalysisRequest struct {
	Query            string   `json:"query"`
	ConfirmedTickers []string `json:"confirmed_tickers,omitempty"`
	MaxIterations    int      `json:"max_iterations"`
	TimeoutSeconds   int      `json:"timeout_seconds"`
	RequestID        string   `json:"request_id"`

	ConversationID       string `json:"conversation_id,omitempty"`
	ConfirmationResponse string `json:"confirmation_response,omitempty"`
}

// ErrorKind tags entries in an analysis result's errors list.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindFetch      ErrorKind = "fetch"
	ErrorKindSynthesis  ErrorKind = "synthesis"
	ErrorKindTimeout    ErrorKind = "timeout"
)

// AnalysisError is one recorded non-fatal failure, tagged with the ticker
// it belongs to.
type AnalysisError struct {
	Ticker  string    `json:"ticker,omitempty"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// AnalysisResult is the orchestrator's aggregate outcome. Insights keep the
// input ticker order; every requested ticker appears either in Insights or
// as an Errors entry, never both.
type AnalysisResult struct {
	Insights        []TickerInsight `json:"insights"`
	Errors          []AnalysisError `json:"errors"`
	TickersAnalyzed []string        `json:"tickers_analyzed"`
	Elapsed         time.Duration   `json:"-"`
}

// ConfirmationPrompt asks the user to resolve one pending candidate, or for
// a free-form clarification when no candidate survived.
type ConfirmationPrompt struct {
	Type           string     `json:"type"` // confirmation or clarification
	ConversationID string     `json:"conversation_id,omitempty"`
	Message        string     `json:"message"`
	Options        []string   `json:"options,omitempty"`
	Candidate      *Candidate `json:"candidate,omitempty"`
}

// AnalysisResponse is the synchronous reply to an analyze call: either a
// confirmation prompt or the completed analysis.
type AnalysisResponse struct {
	RequestID string `json:"request_id"`
	Query     string `json:"query"`

	NeedsConfirmation  bool                `json:"needs_confirmation"`
	ConfirmationPrompt *ConfirmationPrompt `json:"confirmation_prompt,omitempty"`

	Insights        []TickerInsight `json:"insights"`
	TickersAnalyzed []string        `json:"tickers_analyzed"`
	Errors          []AnalysisError `json:"errors"`
	TotalLatencyMS  float64         `json:"total_latency_ms"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Success     bool      `json:"success"`
}
