package tickers

import (
	"reflect"
	"testing"
)

func TestMapToTicker(t *testing.T) {
	m := NewMapper()

	cases := []struct {
		in     string
		ticker string
		ok     bool
	}{
		{"AAPL", "AAPL", true},
		{"apple", "AAPL", true},
		{"Apple Inc", "AAPL", true},
		{"microsoft", "MSFT", true},
		{"meta platforms", "META", true},
		{"jp morgan", "JPM", true},
		{"micrsoft", "MSFT", true}, // one edit away
		{"zzzzzzz", "", false},
	}
	for _, tc := range cases {
		got, ok := m.MapToTicker(tc.in)
		if ok != tc.ok || got != tc.ticker {
			t.Fatalf("MapToTicker(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.ticker, tc.ok)
		}
	}
}

func TestExtractPreservesOrderAndDedupes(t *testing.T) {
	m := NewMapper()

	resolved, unresolved := m.Extract("compare MSFT with apple and MSFT again")
	want := []string{"MSFT", "AAPL"}
	if !reflect.DeepEqual(resolved, want) {
		t.Fatalf("resolved = %v, want %v", resolved, want)
	}
	if len(unresolved) != 0 {
		t.Fatalf("unexpected unresolved names: %v", unresolved)
	}
}

func TestExtractFlagsUnknownCapitalizedNames(t *testing.T) {
	m := NewMapper()

	resolved, unresolved := m.Extract("analyze Tessla for me")
	if len(resolved) != 0 {
		// "Tessla" is close enough to tesla for the fuzzy pass, either
		// outcome is acceptable as long as it is not silently dropped.
		if resolved[0] != "TSLA" {
			t.Fatalf("unexpected resolution: %v", resolved)
		}
		return
	}
	if !reflect.DeepEqual(unresolved, []string{"Tessla"}) {
		t.Fatalf("unresolved = %v, want [Tessla]", unresolved)
	}
}

func TestExtractSkipsCommonUppercaseWords(t *testing.T) {
	m := NewMapper()

	resolved, _ := m.Extract("SHOULD I BUY AAPL OR MSFT")
	want := []string{"AAPL", "MSFT"}
	if !reflect.DeepEqual(resolved, want) {
		t.Fatalf("resolved = %v, want %v", resolved, want)
	}
}

func TestValidSymbol(t *testing.T) {
	valid := []string{"AAPL", "MSFT", "BRK.B", "A", "T-MOB"}
	for _, s := range valid {
		if !ValidSymbol(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}

	invalid := []string{"", "INVALID$", "aapl", "1AAPL", ".AAPL", "TOOLONGSYMBOL"}
	for _, s := range invalid {
		if ValidSymbol(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

func TestSuggestions(t *testing.T) {
	m := NewMapper()

	got := m.Suggestions("matae", 3)
	if len(got) == 0 {
		t.Fatalf("expected at least one suggestion for matae")
	}
	found := false
	for _, s := range got {
		if s.Ticker == "META" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected META among suggestions, got %v", got)
	}
}

func TestCompanyName(t *testing.T) {
	m := NewMapper()
	if name := m.CompanyName("AAPL"); name != "Apple" {
		t.Fatalf("CompanyName(AAPL) = %q, want Apple", name)
	}
	if name := m.CompanyName("ZZZZ"); name != "ZZZZ" {
		t.Fatalf("CompanyName(ZZZZ) = %q, want ZZZZ", name)
	}
}
