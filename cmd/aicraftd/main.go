// Command aicraftd serves the aicraft HTTP API: agent, world and tool
// management plus live deployment streaming over SSE and WebSocket.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/hupe1980/aicraft"
	"github.com/hupe1980/aicraft/avatar"
	"github.com/hupe1980/aicraft/core"
	"github.com/hupe1980/aicraft/httpapi"
	"github.com/hupe1980/aicraft/logging"
	"github.com/hupe1980/aicraft/runtime"
	anthropicrt "github.com/hupe1980/aicraft/runtime/anthropic"
	openairt "github.com/hupe1980/aicraft/runtime/openai"
	"github.com/hupe1980/aicraft/store/inmem"
	"github.com/hupe1980/aicraft/store/sqlite"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aicraftd",
	Short: "AI agent deployment server",
	Long: `aicraftd manages AI agents, grid worlds and tools, and streams agent
deployments as ordered typed events over SSE or WebSocket.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg Config) error {
	logger := logging.NewSlogLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, os.Stderr)

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}

	var (
		store   core.Store = inmem.New()
		cleanup func()
	)
	if cfg.DBPath != "" {
		dbStore, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		store = dbStore
		cleanup = func() { _ = dbStore.Close() }
	}
	if cleanup != nil {
		defer cleanup()
	}

	var gen *avatar.Generator
	if cfg.AvatarBin != "" {
		gen = avatar.NewGenerator(cfg.AvatarBin, cfg.AvatarDir, func(o *avatar.Options) {
			o.Logger = logger
		})
	}

	craft, err := aicraft.New(rt, func(o *aicraft.Options) {
		o.Store = store
		o.Avatar = gen
		o.Logger = logger
	})
	if err != nil {
		return err
	}
	if err := craft.Restore(ctx); err != nil {
		return fmt.Errorf("restore worlds: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           httpapi.NewRouter(craft, func(o *httpapi.Options) { o.Logger = logger }),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("aicraftd.listening", "addr", cfg.Listen, "provider", cfg.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("aicraftd.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildRuntime(cfg Config) (core.Runtime, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropicrt.New(func(o *anthropicrt.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			if cfg.MaxTurns > 0 {
				o.MaxTurns = cfg.MaxTurns
			}
		}), nil
	case "openai":
		return openairt.New(func(o *openairt.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if cfg.MaxTurns > 0 {
				o.MaxTurns = cfg.MaxTurns
			}
		}), nil
	case "scripted":
		// Offline demo: the agent narrates a short walk and stops.
		return runtime.NewScripted(demoTurns()), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

func demoTurns() []core.TurnEvent {
	return []core.TurnEvent{
		core.ReasoningTurn{Text: "The prompt asks me to explore; I will walk north first."},
		core.TextTurn{Text: "Heading north."},
		core.ToolCallTurn{ID: "demo-1", Name: "move", Arguments: json.RawMessage(`{"direction":"north"}`)},
		core.ToolResultTurn{ID: "demo-1", Name: "move"},
		core.TerminalTurn{Reason: core.TerminalCompleted, Message: "demo walk finished"},
	}
}
