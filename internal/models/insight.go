package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stance is the investment recommendation for a ticker.
type Stance string

const (
	StanceBuy  Stance = "buy"
	StanceSell Stance = "sell"
	StanceHold Stance = "hold"
)

// Confidence is a coarse three-tier confidence level shared by insights
// and correction candidates.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func ParseStance(s string) Stance {
	switch Stance(s) {
	case StanceBuy, StanceSell, StanceHold:
		return Stance(s)
	}
	return StanceHold
}

func ParseConfidence(s string) Confidence {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return Confidence(s)
	}
	return ConfidenceMedium
}

// SourceInfo references a published article used during analysis.
type SourceInfo struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	Snippet     string    `json:"snippet,omitempty"`
}

// AgentStep is one recorded reasoning step inside an agent trace.
type AgentStep struct {
	StepNumber  int          `json:"step_number"`
	Thought     string       `json:"thought"`
	Action      string       `json:"action"`
	Observation string       `json:"observation"`
	Sources     []SourceInfo `json:"sources,omitempty"`
	LatencyMS   float64      `json:"latency_ms"`
}

// AgentTrace records the ordered steps one analysis stage took for a ticker.
type AgentTrace struct {
	AgentType      string      `json:"agent_type"`
	Ticker         string      `json:"ticker"`
	Steps          []AgentStep `json:"steps"`
	Success        bool        `json:"success"`
	TotalLatencyMS float64     `json:"total_latency_ms"`
}

// TickerInsight is the per-ticker analysis result.
type TickerInsight struct {
	Ticker      string          `json:"ticker"`
	CompanyName string          `json:"company_name"`

	CurrentPrice     decimal.Decimal `json:"current_price"`
	MarketCap        int64           `json:"market_cap,omitempty"`
	PERatio          float64         `json:"pe_ratio,omitempty"`
	FiftyTwoWeekHigh decimal.Decimal `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  decimal.Decimal `json:"fifty_two_week_low,omitempty"`
	Trend            string          `json:"trend,omitempty"`

	Stance     Stance     `json:"stance"`
	Confidence Confidence `json:"confidence"`

	Summary    string   `json:"summary"`
	Rationale  string   `json:"rationale"`
	KeyDrivers []string `json:"key_drivers,omitempty"`
	Risks      []string `json:"risks,omitempty"`
	Catalysts  []string `json:"catalysts,omitempty"`

	Sources     []SourceInfo `json:"sources,omitempty"`
	AgentTraces []AgentTrace `json:"agent_traces,omitempty"`
}
