package models

// Candidate is a proposed ticker correction for a free-text company
// reference. Never mutated after the resolver produces it.
type Candidate struct {
	Original      string     `json:"original"`
	CorrectedName string     `json:"corrected_name"`
	Ticker        string     `json:"ticker"`
	Confidence    Confidence `json:"confidence"`
	Explanation   string     `json:"explanation,omitempty"`
}
