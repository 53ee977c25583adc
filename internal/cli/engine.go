package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dyike/StockScout/config"
	"github.com/dyike/StockScout/internal/broadcast"
	"github.com/dyike/StockScout/internal/conversation"
	"github.com/dyike/StockScout/internal/coordinator"
	"github.com/dyike/StockScout/internal/correction"
	"github.com/dyike/StockScout/internal/dataflows"
	"github.com/dyike/StockScout/internal/llm"
	"github.com/dyike/StockScout/internal/orchestrator"
	"github.com/dyike/StockScout/internal/storage/sqlite"
	"github.com/dyike/StockScout/internal/synthesis"
	"github.com/dyike/StockScout/internal/tickers"
)

// engine bundles the wired analysis stack shared by the serve and analyze
// commands.
type engine struct {
	cfg         *config.Config
	coordinator *coordinator.Coordinator
	broadcaster *broadcast.Broadcaster
	store       *conversation.Store
	history     *sqlite.Store
}

func buildEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}

	chatModel, err := llm.InitChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	history, err := sqlite.Open(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		return nil, err
	}

	broadcaster := broadcast.NewBroadcaster(
		broadcast.WithBufferSize(cfg.EventBufferSize),
		broadcast.WithDrainWindow(time.Duration(cfg.DrainWindowSeconds)*time.Second),
	)
	store := conversation.NewStore(time.Duration(cfg.ConversationTTLMinutes) * time.Minute)
	store.StartSweeper(ctx, time.Duration(cfg.SweepIntervalSeconds)*time.Second)

	resolver := correction.NewService(chatModel, tickers.NewMapper())
	fetcher := dataflows.NewFetcher(cfg)
	synthesizer := synthesis.NewSynthesizer(chatModel)
	orch := orchestrator.New(fetcher, synthesizer, cfg)

	return &engine{
		cfg:         cfg,
		coordinator: coordinator.New(cfg, resolver, store, broadcaster, orch, history),
		broadcaster: broadcaster,
		store:       store,
		history:     history,
	}, nil
}

func (e *engine) Close() {
	if e.history != nil {
		_ = e.history.Close()
	}
}
