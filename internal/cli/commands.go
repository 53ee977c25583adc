package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/dyike/StockScout/config"
	"github.com/dyike/StockScout/internal/models"
	"github.com/dyike/StockScout/internal/server"
)

const version = "0.2.0"

// NewRootCmd creates the root command. The effective configuration is
// loaded through the config manager, so edits to config.json are picked
// up by a running serve command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var mgr *config.Manager

	rootCmd := &cobra.Command{
		Use:   "stockscout",
		Short: "StockScout - natural-language stock research",
		Long: `StockScout answers natural-language investment-research queries.
It resolves company references to tickers (asking about likely typos),
analyzes each stock concurrently, and streams progress while working.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts := []config.ManagerOption{config.WithInitialConfig(cfg)}
			if dir, _ := cmd.Flags().GetString("config-dir"); dir != "" {
				opts = append(opts, config.WithConfigDir(dir))
			}
			m, err := config.NewManager(opts...)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			mgr = m
			config.SetDefaultManager(m)
			*cfg = m.Get()

			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Debug = true
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newServeCmd(cfg, &mgr))
	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newHistoryCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().String("config-dir", "", "Directory holding config.json (defaults to ~/.stockscout)")

	return rootCmd
}

func newServeCmd(cfg *config.Config, mgr **config.Manager) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the StockScout HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			host, _ := cmd.Flags().GetString("host")
			port, _ := cmd.Flags().GetInt("port")
			if host != "" {
				cfg.ServerHost = host
			}
			if port > 0 {
				cfg.ServerPort = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := buildEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			// Config edits while serving adjust the per-request defaults
			// without a restart. Everything else applies on the next start.
			if m := *mgr; m != nil {
				if err := m.Watch(ctx, func(next config.Config) {
					eng.coordinator.Reload(&next)
					log.Printf("config reloaded from %s", m.Path())
				}); err != nil {
					return fmt.Errorf("failed to watch config: %w", err)
				}
			}

			srv := server.New(cfg, eng.coordinator, eng.broadcaster, eng.history)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("host", "", "Bind host (overrides config)")
	cmd.Flags().Int("port", 0, "Bind port (overrides config)")
	return cmd
}

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [QUERY]",
		Short: "Analyze stocks from a natural-language query",
		Long: `Analyze one or more stocks described in a natural-language query.
Example: stockscout analyze "should I buy AAPL or Tessla?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := buildEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			return runInteractiveAnalysis(ctx, eng, query)
		},
	}
	return cmd
}

// runInteractiveAnalysis drives the confirmation loop on the terminal,
// streaming progress events while the analysis runs.
func runInteractiveAnalysis(ctx context.Context, eng *engine, query string) error {
	req := &models.AnalysisRequest{Query: query}

	for {
		resp, err := handleWithProgress(ctx, eng, req)
		if err != nil {
			return err
		}

		if !resp.NeedsConfirmation {
			printResponse(resp)
			return nil
		}

		prompt := resp.ConfirmationPrompt
		if prompt.Type != "confirmation" {
			fmt.Println(warnStyle.Render(prompt.Message))
			return nil
		}

		confirmed := false
		ask := &survey.Confirm{Message: prompt.Message, Default: true}
		if err := survey.AskOne(ask, &confirmed); err != nil {
			return err
		}

		answer := "No"
		if confirmed {
			answer = "Yes"
		}
		req = &models.AnalysisRequest{
			Query:                query,
			ConversationID:       prompt.ConversationID,
			ConfirmationResponse: answer,
		}
	}
}

// handleWithProgress subscribes to the request's event stream before
// calling the coordinator and renders events until the call returns.
func handleWithProgress(ctx context.Context, eng *engine, req *models.AnalysisRequest) (*models.AnalysisResponse, error) {
	if req.RequestID == "" {
		req.RequestID = fmt.Sprintf("cli-%d", time.Now().UnixNano())
	}

	sub := eng.broadcaster.Subscribe(req.RequestID)
	defer eng.broadcaster.Unsubscribe(sub)

	handleDone := make(chan struct{})
	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		for {
			select {
			case ev := <-sub.Events():
				printEvent(ev)
				if ev.Terminal() {
					return
				}
			case <-sub.Done():
				return
			case <-handleDone:
				// Drain whatever is still buffered, then stop.
				for {
					select {
					case ev := <-sub.Events():
						printEvent(ev)
					default:
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	resp, err := eng.coordinator.Handle(ctx, req)
	close(handleDone)
	<-renderDone
	return resp, err
}

func newHistoryCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent analysis runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			ctx := context.Background()
			eng, err := buildEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			records, err := eng.history.ListRequests(ctx, limit)
			if err != nil {
				return err
			}
			printHistory(records)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the StockScout version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stockscout %s\n", version)
		},
	}
}
