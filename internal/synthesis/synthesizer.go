package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/StockScout/internal/models"
)

// ErrNoModel is returned when synthesis is attempted without a chat model.
var ErrNoModel = fmt.Errorf("synthesis: no chat model configured")

// Synthesizer turns fetched market data into an investment insight
// using a chat model.
type Synthesizer struct {
	chatModel model.BaseChatModel
}

func NewSynthesizer(chatModel model.BaseChatModel) *Synthesizer {
	return &Synthesizer{chatModel: chatModel}
}

const systemPrompt = `You are a senior equity research analyst. You combine recent news with price action to produce a clear, defensible stance on a stock. You always answer in strict JSON with no surrounding text.`

const insightPromptTemplate = `Analyze %s (%s) using the data below and produce an investment recommendation.

MARKET DATA:
%s

RECENT NEWS:
%s

Respond in JSON only:
{
    "stance": "buy, sell, or hold",
    "confidence": "high, medium, or low",
    "summary": "One-paragraph overview of the situation",
    "rationale": "Why this stance follows from the data",
    "key_drivers": ["driver 1", "driver 2"],
    "risks": ["risk 1", "risk 2"],
    "catalysts": ["upcoming catalyst 1"]
}`

type insightPayload struct {
	Stance     string   `json:"stance"`
	Confidence string   `json:"confidence"`
	Summary    string   `json:"summary"`
	Rationale  string   `json:"rationale"`
	KeyDrivers []string `json:"key_drivers"`
	Risks      []string `json:"risks"`
	Catalysts  []string `json:"catalysts"`
}

// Synthesize produces a TickerInsight for the given data. The returned
// insight carries the quote fields verbatim; stance, confidence, and the
// narrative come from the model.
func (s *Synthesizer) Synthesize(ctx context.Context, data *models.TickerData) (*models.TickerInsight, error) {
	if s.chatModel == nil {
		return nil, ErrNoModel
	}

	prompt := fmt.Sprintf(insightPromptTemplate,
		data.Quote.CompanyName, data.Quote.Symbol,
		formatMarketData(data),
		formatNews(data.News),
	)

	resp, err := s.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", data.Quote.Symbol, err)
	}

	var payload insightPayload
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &payload); err != nil {
		return nil, fmt.Errorf("parse synthesis for %s: %w", data.Quote.Symbol, err)
	}

	insight := &models.TickerInsight{
		Ticker:           data.Quote.Symbol,
		CompanyName:      data.Quote.CompanyName,
		CurrentPrice:     data.Quote.Price,
		MarketCap:        data.Quote.MarketCap,
		PERatio:          data.Quote.PERatio,
		FiftyTwoWeekHigh: data.Quote.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  data.Quote.FiftyTwoWeekLow,
		Trend:            data.Trend,
		Stance:           models.ParseStance(payload.Stance),
		Confidence:       models.ParseConfidence(payload.Confidence),
		Summary:          payload.Summary,
		Rationale:        payload.Rationale,
		KeyDrivers:       payload.KeyDrivers,
		Risks:            payload.Risks,
		Catalysts:        payload.Catalysts,
	}
	for _, item := range data.News {
		insight.Sources = append(insight.Sources, models.SourceInfo{
			Title:       item.Title,
			URL:         item.URL,
			PublishedAt: item.PublishedAt,
			Snippet:     item.Snippet,
		})
	}
	return insight, nil
}

func formatMarketData(data *models.TickerData) string {
	var b strings.Builder
	q := data.Quote
	fmt.Fprintf(&b, "Current price: %s\n", q.Price.StringFixed(2))
	fmt.Fprintf(&b, "Day range: %s - %s\n", q.Low.StringFixed(2), q.High.StringFixed(2))
	fmt.Fprintf(&b, "52-week range: %s - %s\n", q.FiftyTwoWeekLow.StringFixed(2), q.FiftyTwoWeekHigh.StringFixed(2))
	if q.MarketCap > 0 {
		fmt.Fprintf(&b, "Market cap: %d\n", q.MarketCap)
	}
	if q.PERatio > 0 {
		fmt.Fprintf(&b, "Trailing P/E: %.2f\n", q.PERatio)
	}
	fmt.Fprintf(&b, "Recent trend: %s\n", data.Trend)
	if n := len(data.History); n > 0 {
		first, last := data.History[0], data.History[n-1]
		fmt.Fprintf(&b, "Close %s: %s, close %s: %s over %d sessions\n",
			first.Date.Format("2006-01-02"), first.Close.StringFixed(2),
			last.Date.Format("2006-01-02"), last.Close.StringFixed(2), n)
	}
	return b.String()
}

func formatNews(items []models.NewsItem) string {
	if len(items) == 0 {
		return "No recent news available."
	}
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, item.Source, item.Title)
		if item.Snippet != "" {
			fmt.Fprintf(&b, " - %s", item.Snippet)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		raw = raw[idx+len("```json"):]
	} else if idx := strings.Index(raw, "```"); idx >= 0 {
		raw = raw[idx+3:]
	} else {
		return raw
	}
	if idx := strings.Index(raw, "```"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.TrimSpace(raw)
}
