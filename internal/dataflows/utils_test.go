package dataflows

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/StockScout/internal/models"
)

func TestCacheManagerRoundTrip(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Minute, true)

	in := map[string]string{"hello": "world"}
	if err := cm.Set("test", "roundtrip", "key", in); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var out map[string]string
	if !cm.Get("test", "roundtrip", "key", &out) {
		t.Fatalf("expected cache hit")
	}
	if out["hello"] != "world" {
		t.Fatalf("got %v", out)
	}
}

func TestCacheManagerExpiry(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), -time.Second, true)

	if err := cm.Set("test", "expiry", "key", "data"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var out string
	if cm.Get("test", "expiry", "key", &out) {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestCacheManagerDisabled(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Minute, false)

	if err := cm.Set("test", "disabled", "key", "data"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var out string
	if cm.Get("test", "disabled", "key", &out) {
		t.Fatalf("disabled cache must always miss")
	}
}

func TestWithRetryEventuallySucceeds(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	attempts := 0
	err := WithRetry(cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	sentinel := errors.New("permanent")
	err := WithRetry(cfg, func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}

func TestDeriveTrend(t *testing.T) {
	mk := func(closes ...float64) []models.PricePoint {
		out := make([]models.PricePoint, len(closes))
		for i, c := range closes {
			out[i] = models.PricePoint{Close: decimal.NewFromFloat(c)}
		}
		return out
	}

	cases := []struct {
		history []models.PricePoint
		want    string
	}{
		{mk(100, 105), "bullish"},
		{mk(100, 95), "bearish"},
		{mk(100, 100.5), "neutral"},
		{mk(100), "neutral"},
		{nil, "neutral"},
	}
	for _, tc := range cases {
		if got := DeriveTrend(tc.history); got != tc.want {
			t.Fatalf("DeriveTrend(%v) = %q, want %q", tc.history, got, tc.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML(`<a href="https://example.com">Apple surges</a>&nbsp;- Reuters`)
	if got == "" || got[0] != 'A' {
		t.Fatalf("stripHTML returned %q", got)
	}
}
