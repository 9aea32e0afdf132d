package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fadedpez/pitbot/internal/bot"
	"github.com/fadedpez/pitbot/internal/config"
	"github.com/fadedpez/pitbot/internal/discord"
	"github.com/fadedpez/pitbot/internal/logging"
	"github.com/fadedpez/pitbot/pkg/repositories/ledger"
	"github.com/fadedpez/pitbot/pkg/scheduler"
)

func main() {
	if err := run(); err != nil {
		logging.Default.Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	log := logging.NewLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := ledger.Open(ctx, ledger.OptionsFromConfig(cfg, log))
	if err != nil {
		return fmt.Errorf("failed to open %s ledger: %w", cfg.Backend, err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error("Failed to close ledger: %v", err)
		}
	}()
	log.Info("Using %s ledger", cfg.Backend)

	session, err := discord.NewSession(cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}

	b, err := bot.New(cfg, session, repo, bot.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	maintenance := scheduler.NewMaintenance(log).WithPruning("cooldown", b, 0)
	if es, ok := repo.(*ledger.ElasticsearchRepository); ok {
		maintenance.WithIndexRotation(es, 0)
	}
	maintenance.Start(ctx)
	defer maintenance.Stop()

	if err := b.Start(); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	log.Info("Bot is running. Press Ctrl+C to exit")
	<-ctx.Done()

	log.Info("Shutting down...")
	b.Shutdown()
	return nil
}
