package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"

	"github.com/personamatch/engine/internal/advisor"
	"github.com/personamatch/engine/internal/cache"
	"github.com/personamatch/engine/internal/config"
	"github.com/personamatch/engine/internal/llm"
	"github.com/personamatch/engine/internal/logging"
	"github.com/personamatch/engine/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC engine over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	deps := server.Deps{ReportCacheSize: a.cfg.Server.ReportCacheSize}

	if path := a.cfg.Store.Path; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return goerr.Wrap(err, "create store directory", goerr.V("path", path))
		}
		db, err := cache.Open(path)
		if err != nil {
			return err
		}
		defer db.Close()

		if deps.Profiles, err = cache.NewProfileStore(db); err != nil {
			return err
		}
		if deps.History, err = cache.NewHistoryStore(db); err != nil {
			return err
		}
		a.logger.Info("profile store enabled", "path", path)
	}

	gen, err := newAdvisor(a.cfg.LLM)
	if err != nil {
		return err
	}
	if gen != nil {
		deps.Advisor = gen
		a.logger.Info("advice generation enabled", "provider", a.cfg.LLM.Provider, "model", a.cfg.LLM.Model)
	}

	s := server.NewWithConcurrency(os.Stdin, os.Stdout, a.logger, a.cfg.Server.MaxConcurrent)
	if err := server.RegisterBuiltinHandlers(s, deps); err != nil {
		return err
	}

	a.logger.Info("engine started", "version", version, "max_concurrent", a.cfg.Server.MaxConcurrent)
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("engine stopped", logging.ErrAttr(err))
		return err
	}
	a.logger.Info("engine stopped")
	return nil
}

// newAdvisor builds the advice generator, or nil when no provider is
// configured. The chain is provider → fault injector (optional) → rate limiter.
func newAdvisor(cfg config.LLMConfig) (*advisor.Generator, error) {
	var p llm.Provider
	switch cfg.Provider {
	case "":
		return nil, nil
	case "mock":
		p = llm.NewMockProvider(nil, nil)
	default:
		openai, err := llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		p = openai
	}

	if cfg.FaultErrorRate > 0 {
		p = llm.NewFaultInjector(p, llm.FaultConfig{ErrorRate: cfg.FaultErrorRate})
	}

	rlCfg := llm.DefaultRateLimiterConfig
	rlCfg.RequestsPerMinute = cfg.RequestsPerMinute
	rlCfg.Burst = cfg.Burst
	rlCfg.MaxRetries = cfg.MaxRetries
	limited, err := llm.NewRateLimitedProvider(p, rlCfg)
	if err != nil {
		return nil, err
	}
	return advisor.NewGenerator(limited), nil
}
