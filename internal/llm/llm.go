package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/dyike/StockScout/config"
)

// InitChatModel builds the chat model used for correction and synthesis
// from the configured OpenAI-compatible endpoint. Returns (nil, nil) when
// no API key is configured so callers can degrade to fuzzy-only mode.
func InitChatModel(ctx context.Context, cfg *config.Config) (model.BaseChatModel, error) {
	if cfg.LLMAPIKey == "" {
		return nil, nil
	}

	maxTokens := 8192
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   cfg.LLMBaseURL,
		APIKey:    cfg.LLMAPIKey,
		Model:     cfg.LLMModel,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return chatModel, nil
}
