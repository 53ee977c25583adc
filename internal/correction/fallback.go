package correction

import (
	"strings"

	"github.com/dyike/StockScout/internal/models"
)

// resolveFuzzy ranks close matches from the known company table when the
// chat model is unavailable or produced nothing usable.
func (s *Service) resolveFuzzy(token string) []models.Candidate {
	suggestions := s.mapper.Suggestions(token, s.maxCandidates)
	if len(suggestions) == 0 {
		return nil
	}

	candidates := make([]models.Candidate, 0, len(suggestions))
	for i, sugg := range suggestions {
		confidence := models.ConfidenceLow
		if i == 0 {
			confidence = models.ConfidenceMedium
		}
		candidates = append(candidates, models.Candidate{
			Original:      token,
			CorrectedName: sugg.Company,
			Ticker:        sugg.Ticker,
			Confidence:    confidence,
			Explanation:   "close spelling match for " + strings.TrimSpace(token),
		})
	}
	return candidates
}
