package dataflows

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"

	"github.com/dyike/StockScout/config"
	"github.com/dyike/StockScout/internal/models"
	"github.com/dyike/StockScout/internal/tickers"
)

// YahooFinanceClient fetches quotes and price history from Yahoo Finance.
type YahooFinanceClient struct {
	cache *CacheManager
}

func NewYahooFinanceClient(cfg *config.Config) *YahooFinanceClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "yahoo_finance")
	return &YahooFinanceClient{
		cache: NewCacheManager(cacheDir, 15*time.Minute, cfg.CacheEnabled),
	}
}

// GetQuote fetches the current quote for a symbol.
func (yf *YahooFinanceClient) GetQuote(symbol string) (*models.Quote, error) {
	symbol = tickers.NormalizeSymbol(symbol)
	if !tickers.ValidSymbol(symbol) {
		return nil, fmt.Errorf("invalid symbol %q", symbol)
	}

	var cached models.Quote
	if yf.cache.Get("yahoo", "quote", symbol, &cached) {
		return &cached, nil
	}

	var result *models.Quote
	err := WithRetry(DefaultRetryConfig(), func() error {
		q, err := equity.Get(symbol)
		if err != nil {
			return fmt.Errorf("get quote for %s: %w", symbol, err)
		}
		if q == nil {
			return fmt.Errorf("no quote data for %s", symbol)
		}

		name := q.ShortName
		if name == "" {
			name = symbol
		}
		result = &models.Quote{
			Symbol:           symbol,
			CompanyName:      name,
			Price:            decimal.NewFromFloat(q.RegularMarketPrice),
			Open:             decimal.NewFromFloat(q.RegularMarketOpen),
			High:             decimal.NewFromFloat(q.RegularMarketDayHigh),
			Low:              decimal.NewFromFloat(q.RegularMarketDayLow),
			Volume:           int64(q.RegularMarketVolume),
			MarketCap:        q.MarketCap,
			PERatio:          q.TrailingPE,
			FiftyTwoWeekHigh: decimal.NewFromFloat(q.FiftyTwoWeekHigh),
			FiftyTwoWeekLow:  decimal.NewFromFloat(q.FiftyTwoWeekLow),
			Timestamp:        time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yf.cache.Set("yahoo", "quote", symbol, result)
	return result, nil
}

// GetPriceHistory fetches daily bars for the trailing window.
func (yf *YahooFinanceClient) GetPriceHistory(symbol string, days int) ([]models.PricePoint, error) {
	symbol = tickers.NormalizeSymbol(symbol)
	if !tickers.ValidSymbol(symbol) {
		return nil, fmt.Errorf("invalid symbol %q", symbol)
	}
	if days <= 0 {
		days = 30
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	cacheParams := map[string]interface{}{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}
	var cached []models.PricePoint
	if yf.cache.Get("yahoo", "history", cacheParams, &cached) {
		return cached, nil
	}

	var result []models.PricePoint
	err := WithRetry(DefaultRetryConfig(), func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)
		result = result[:0]
		for iter.Next() {
			bar := iter.Bar()
			result = append(result, models.PricePoint{
				Date:   time.Unix(int64(bar.Timestamp), 0),
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: int64(bar.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("get history for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yf.cache.Set("yahoo", "history", cacheParams, result)
	return result, nil
}

// DeriveTrend classifies a price history as bullish, bearish or neutral
// based on the close-to-close move over the window.
func DeriveTrend(history []models.PricePoint) string {
	if len(history) < 2 {
		return "neutral"
	}
	first := history[0].Close
	last := history[len(history)-1].Close
	if first.IsZero() {
		return "neutral"
	}

	change := last.Sub(first).Div(first)
	switch {
	case change.GreaterThan(decimal.NewFromFloat(0.02)):
		return "bullish"
	case change.LessThan(decimal.NewFromFloat(-0.02)):
		return "bearish"
	default:
		return "neutral"
	}
}
