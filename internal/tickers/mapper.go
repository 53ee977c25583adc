package tickers

import (
	"regexp"
	"sort"
	"strings"
)

var (
	tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)
	symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)
	suffixPattern = regexp.MustCompile(`\s+(inc|corp|corporation|company|co|ltd|limited)\b`)
	nonWordChars  = regexp.MustCompile(`[^a-z0-9\s-]`)
)

// companyToTicker maps normalized company names to exchange symbols.
var companyToTicker = map[string]string{
	"apple": "AAPL", "apple computer": "AAPL",
	"microsoft": "MSFT",
	"google":    "GOOGL", "alphabet": "GOOGL",
	"amazon": "AMZN", "amazoncom": "AMZN",
	"meta": "META", "meta platforms": "META", "facebook": "META",
	"nvidia":  "NVDA",
	"tesla":   "TSLA",
	"netflix": "NFLX",

	"amd": "AMD", "advanced micro devices": "AMD",
	"intel":                "INTC",
	"taiwan semiconductor": "TSM", "tsmc": "TSM",
	"qualcomm": "QCOM",
	"broadcom": "AVGO",
	"micron":   "MU", "micron technology": "MU",

	"jpmorgan": "JPM", "jp morgan": "JPM", "jpmorgan chase": "JPM",
	"bank of america": "BAC", "bofa": "BAC",
	"goldman sachs":  "GS",
	"morgan stanley": "MS",
	"wells fargo":    "WFC",
	"citigroup":      "C", "citi": "C",

	"walmart":   "WMT",
	"target":    "TGT",
	"costco":    "COST",
	"home depot": "HD",
	"nike":      "NKE",
	"starbucks": "SBUX",
	"mcdonalds": "MCD",
	"coca cola": "KO", "coca-cola": "KO",
	"pepsi": "PEP", "pepsico": "PEP",

	"johnson johnson": "JNJ", "johnson and johnson": "JNJ",
	"pfizer":       "PFE",
	"moderna":      "MRNA",
	"abbvie":       "ABBV",
	"merck":        "MRK",
	"eli lilly":    "LLY",
	"unitedhealth": "UNH", "united health": "UNH",

	"exxon": "XOM", "exxonmobil": "XOM", "exxon mobil": "XOM",
	"chevron":        "CVX",
	"conocophillips": "COP",
	"shell":          "SHEL",

	"ford":           "F",
	"general motors": "GM",
	"toyota":         "TM",
	"honda":          "HMC",

	"delta": "DAL", "delta airlines": "DAL",
	"united airlines":   "UAL",
	"american airlines": "AAL",
	"southwest":         "LUV", "southwest airlines": "LUV",

	"disney": "DIS", "walt disney": "DIS",
	"boeing":      "BA",
	"caterpillar": "CAT",
	"visa":        "V",
	"mastercard":  "MA",
	"paypal":      "PYPL",
	"adobe":       "ADBE",
	"salesforce":  "CRM",
	"oracle":      "ORCL",
	"ibm":         "IBM",
	"cisco":       "CSCO",
	"verizon":     "VZ",
	"att":         "T",
	"comcast":     "CMCSA",
	"procter gamble": "PG", "procter and gamble": "PG",
}

// commonWords are uppercase tokens that look like tickers but are ordinary
// query vocabulary.
var commonWords = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "ARE": true, "BUT": true,
	"NOT": true, "YOU": true, "ALL": true, "CAN": true, "HER": true,
	"WAS": true, "ONE": true, "OUR": true, "HAD": true, "WHAT": true,
	"SO": true, "UP": true, "OUT": true, "IF": true, "ABOUT": true,
	"WHO": true, "GET": true, "WHICH": true, "GO": true, "ME": true,
	"WHEN": true, "MAKE": true, "LIKE": true, "TIME": true, "NO": true,
	"JUST": true, "HIM": true, "KNOW": true, "TAKE": true, "INTO": true,
	"YEAR": true, "YOUR": true, "GOOD": true, "SOME": true, "COULD": true,
	"THEM": true, "SEE": true, "OTHER": true, "THAN": true, "THEN": true,
	"NOW": true, "LOOK": true, "ONLY": true, "COME": true, "ITS": true,
	"OVER": true, "THINK": true, "ALSO": true, "BACK": true, "AFTER": true,
	"USE": true, "TWO": true, "HOW": true, "WORK": true, "FIRST": true,
	"WELL": true, "WAY": true, "EVEN": true, "NEW": true, "WANT": true,
	"BECAUSE": true, "ANY": true, "THESE": true, "GIVE": true, "DAY": true,
	"MOST": true, "US": true, "BEST": true, "AI": true, "OR": true,
	"TO": true, "FROM": true, "AS": true, "AT": true, "BY": true,
	"IN": true, "ON": true, "I": true, "ANALYZE": true, "COMPARE": true,
	"RESEARCH": true, "MONTH": true, "MONTHS": true, "WEEK": true,
	"WEEKS": true, "YEARS": true, "WITH": true, "DURING": true,
	"STOCK": true, "STOCKS": true, "SHOULD": true, "BUY": true,
	"SELL": true, "HOLD": true,
}

// Mapper resolves company references in free text to exchange symbols.
type Mapper struct {
	tickerToCompany map[string]string
	names           []string
}

func NewMapper() *Mapper {
	reverse := make(map[string]string, len(companyToTicker))
	names := make([]string, 0, len(companyToTicker))
	for name, ticker := range companyToTicker {
		names = append(names, name)
		// Prefer the shortest name as the display name for a ticker.
		if existing, ok := reverse[ticker]; !ok || len(name) < len(existing) {
			reverse[ticker] = name
		}
	}
	sort.Strings(names)
	return &Mapper{
		tickerToCompany: reverse,
		names:           names,
	}
}

// IsTicker reports whether text already looks like an exchange symbol.
func (m *Mapper) IsTicker(text string) bool {
	return tickerPattern.MatchString(strings.TrimSpace(text))
}

// ValidSymbol reports whether symbol matches the accepted ticker syntax.
func ValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(symbol)
}

// NormalizeSymbol uppercases and trims a symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (m *Mapper) normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = suffixPattern.ReplaceAllString(text, "")
	text = nonWordChars.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// MapToTicker maps a company name or ticker to its symbol. Falls back to a
// close-match lookup for slight misspellings.
func (m *Mapper) MapToTicker(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if m.IsTicker(text) {
		return text, true
	}

	normalized := m.normalize(text)
	if ticker, ok := companyToTicker[normalized]; ok {
		return ticker, true
	}

	if matches := m.closeMatches(normalized, 1, 0.8); len(matches) > 0 {
		return companyToTicker[matches[0]], true
	}
	return "", false
}

// CompanyName returns the display name known for a ticker, or the ticker
// itself when unknown.
func (m *Mapper) CompanyName(ticker string) string {
	if name, ok := m.tickerToCompany[NormalizeSymbol(ticker)]; ok {
		return titleCase(name)
	}
	return ticker
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Suggestion pairs a known company name with its ticker.
type Suggestion struct {
	Company string
	Ticker  string
}

// Suggestions returns up to n companies whose names are close to text,
// best match first. Used for typo correction when no LLM is available.
func (m *Mapper) Suggestions(text string, n int) []Suggestion {
	normalized := m.normalize(text)
	matches := m.closeMatches(normalized, n, 0.6)
	suggestions := make([]Suggestion, 0, len(matches))
	for _, match := range matches {
		suggestions = append(suggestions, Suggestion{
			Company: match,
			Ticker:  companyToTicker[match],
		})
	}
	return suggestions
}

// closeMatches ranks known names by similarity ratio to text, keeping those
// above cutoff.
func (m *Mapper) closeMatches(text string, n int, cutoff float64) []string {
	type scored struct {
		name  string
		ratio float64
	}
	candidates := make([]scored, 0, 4)
	for _, name := range m.names {
		if r := similarity(text, name); r >= cutoff {
			candidates = append(candidates, scored{name, r})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ratio > candidates[j].ratio
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}

// similarity is an edit-distance ratio in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	return 1.0 - float64(editDistance(a, b))/float64(maxLen)
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// Extract pulls resolved tickers and unresolved company references from a
// query. Ticker order follows first mention; duplicates collapse.
func (m *Mapper) Extract(query string) (resolved []string, unresolved []string) {
	seen := make(map[string]bool)
	appendTicker := func(t string) {
		if !seen[t] {
			seen[t] = true
			resolved = append(resolved, t)
		}
	}

	// Pass 1: explicit uppercase ticker tokens.
	remaining := make([]string, 0)
	for _, raw := range strings.Fields(query) {
		token := strings.Trim(raw, ".,;:!?()\"'")
		if tickerPattern.MatchString(token) && !commonWords[token] {
			appendTicker(token)
			continue
		}
		remaining = append(remaining, token)
	}

	// Pass 2: company names in the remaining words, longest phrase first.
	seenUnresolved := make(map[string]bool)
	i := 0
	for i < len(remaining) {
		word := remaining[i]
		if len(word) < 2 {
			i++
			continue
		}

		matched := false
		for span := 3; span >= 1; span-- {
			if i+span > len(remaining) {
				continue
			}
			phrase := strings.Join(remaining[i:i+span], " ")
			if ticker, ok := m.MapToTicker(phrase); ok {
				appendTicker(ticker)
				i += span
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		// Capitalized unknown words are likely company references the
		// caller should try to correct.
		if len(word) > 2 && word[0] >= 'A' && word[0] <= 'Z' &&
			!commonWords[strings.ToUpper(word)] && !seenUnresolved[word] {
			seenUnresolved[word] = true
			unresolved = append(unresolved, word)
		}
		i++
	}

	return resolved, unresolved
}
