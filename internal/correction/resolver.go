package correction

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/StockScout/internal/models"
	"github.com/dyike/StockScout/internal/tickers"
)

// Resolver proposes ticker corrections for a free-text company reference,
// most confident first. An empty result means no plausible correction.
type Resolver interface {
	Resolve(ctx context.Context, token string) []models.Candidate
}

// Service resolves misspelled company references. The chat model is
// optional; without it (or when it fails) the service falls back to a
// close-match lookup over the known company table, so a broken LLM
// capability never fails the request.
type Service struct {
	chatModel     model.BaseChatModel
	mapper        *tickers.Mapper
	maxCandidates int
}

func NewService(chatModel model.BaseChatModel, mapper *tickers.Mapper) *Service {
	return &Service{
		chatModel:     chatModel,
		mapper:        mapper,
		maxCandidates: 3,
	}
}

func (s *Service) Resolve(ctx context.Context, token string) []models.Candidate {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	if s.chatModel != nil {
		candidates, err := s.resolveWithModel(ctx, token)
		if err != nil {
			log.Printf("correction model failed for %q, using fuzzy fallback: %v", token, err)
		} else if len(candidates) > 0 {
			return candidates
		}
	}

	return s.resolveFuzzy(token)
}

const correctionPromptTemplate = `You are a financial assistant that maps possibly misspelled company references to stock tickers.

USER TOKEN: %q

TASK:
Decide whether the token refers to a well-known publicly traded company, allowing for typos, missing letters, extra letters, or phonetic similarity. Suggest up to %d corrections, most confident first.

RULES:
1. Only suggest well-known publicly traded companies.
2. If the token is already a valid ticker or correctly spelled company name, return it as a single high-confidence correction.
3. If nothing plausible matches, return an empty corrections array.

Respond in JSON only, no additional text:
{
    "corrections": [
        {
            "original": "the token",
            "corrected_name": "Full Company Name",
            "ticker": "TICKER",
            "confidence": "high, medium, or low",
            "explanation": "Brief explanation"
        }
    ]
}`

type correctionPayload struct {
	Corrections []struct {
		Original      string `json:"original"`
		CorrectedName string `json:"corrected_name"`
		Ticker        string `json:"ticker"`
		Confidence    string `json:"confidence"`
		Explanation   string `json:"explanation"`
	} `json:"corrections"`
}

func (s *Service) resolveWithModel(ctx context.Context, token string) ([]models.Candidate, error) {
	prompt := fmt.Sprintf(correctionPromptTemplate, token, s.maxCandidates)

	resp, err := s.chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage(prompt),
	})
	if err != nil {
		return nil, fmt.Errorf("generate correction: %w", err)
	}

	var payload correctionPayload
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &payload); err != nil {
		return nil, fmt.Errorf("parse correction response: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(payload.Corrections))
	for _, c := range payload.Corrections {
		ticker := tickers.NormalizeSymbol(c.Ticker)
		if !tickers.ValidSymbol(ticker) {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Original:      token,
			CorrectedName: c.CorrectedName,
			Ticker:        ticker,
			Confidence:    models.ParseConfidence(c.Confidence),
			Explanation:   c.Explanation,
		})
		if len(candidates) >= s.maxCandidates {
			break
		}
	}
	return candidates, nil
}

// stripCodeFence unwraps a JSON body from markdown code fences the model
// sometimes adds despite instructions.
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
