package dataflows

import (
	"context"
	"fmt"
	"log"

	"github.com/dyike/StockScout/config"
	"github.com/dyike/StockScout/internal/models"
)

// Fetcher assembles everything the analysis needs for one ticker: quote,
// price history with a derived trend, and recent news. The quote is
// mandatory; history and news degrade gracefully.
type Fetcher struct {
	yahoo       *YahooFinanceClient
	news        *GoogleNewsClient
	historyDays int
	maxArticles int
}

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		yahoo:       NewYahooFinanceClient(cfg),
		news:        NewGoogleNewsClient(cfg),
		historyDays: 30,
		maxArticles: cfg.NewsMaxArticles,
	}
}

// FetchTickerData implements the data-fetch capability consumed by the
// orchestrator. The upstream clients are not context aware, so the context
// is checked between calls.
func (f *Fetcher) FetchTickerData(ctx context.Context, ticker string) (*models.TickerData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := f.yahoo.GetQuote(ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}

	data := &models.TickerData{Quote: *q, Trend: "neutral"}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	history, err := f.yahoo.GetPriceHistory(ticker, f.historyDays)
	if err != nil {
		log.Printf("price history unavailable for %s: %v", ticker, err)
	} else {
		data.History = history
		data.Trend = DeriveTrend(history)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	newsQuery := q.CompanyName
	if newsQuery == "" {
		newsQuery = ticker
	}
	articles, err := f.news.GetNews(newsQuery+" stock", f.maxArticles)
	if err != nil {
		log.Printf("news unavailable for %s: %v", ticker, err)
	} else {
		data.News = articles
	}

	return data, nil
}
