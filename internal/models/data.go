package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a snapshot of current market data for one symbol.
type Quote struct {
	Symbol           string          `json:"symbol"`
	CompanyName      string          `json:"company_name"`
	Price            decimal.Decimal `json:"price"`
	Open             decimal.Decimal `json:"open"`
	High             decimal.Decimal `json:"high"`
	Low              decimal.Decimal `json:"low"`
	Volume           int64           `json:"volume"`
	MarketCap        int64           `json:"market_cap,omitempty"`
	PERatio          float64         `json:"pe_ratio,omitempty"`
	FiftyTwoWeekHigh decimal.Decimal `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  decimal.Decimal `json:"fifty_two_week_low,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// PricePoint is one bar of historical price data.
type PricePoint struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// NewsItem is one article headline relevant to a symbol.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Snippet     string    `json:"snippet,omitempty"`
}

// TickerData bundles everything fetched for one ticker before synthesis.
type TickerData struct {
	Quote   Quote        `json:"quote"`
	History []PricePoint `json:"history,omitempty"`
	Trend   string       `json:"trend,omitempty"`
	News    []NewsItem   `json:"news,omitempty"`
}
