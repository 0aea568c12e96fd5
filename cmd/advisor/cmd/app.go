package cmd

import (
	"fmt"
	"log/slog"

	"github.com/quantfx/advisor/config"
	"github.com/quantfx/advisor/inference"
	"github.com/quantfx/advisor/ledger"
	"github.com/quantfx/advisor/notify"
	"github.com/quantfx/advisor/rates"
)

// app holds the wired collaborators shared by the infer and run commands.
type app struct {
	cfg          *config.Config
	log          *slog.Logger
	store        ledger.Store
	orchestrator *inference.Orchestrator
	notifier     notify.Notifier
}

func newApp(cfg *config.Config) (*app, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}
	log := newLogger(cfg)

	var store ledger.Store
	var err error
	if cfg.Ledger.Type == "sqlite" {
		store, err = ledger.NewSQLite(cfg.Ledger.DBPath)
	} else {
		store, err = ledger.NewFileStore(cfg.BalanceFile(), cfg.TransactionFile())
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	var src rates.Source
	if cfg.Rates.APIURL != "" {
		src = rates.NewClient(cfg.Rates.APIURL, cfg.Rates.APIKey, cfg.Rates.CacheTTL.Std(), log)
	} else {
		log.Warn("no rate API configured, using static fallback rates")
		src = rates.NewStatic(nil)
	}

	results, err := inference.NewStore(cfg.Output.RealDir, cfg.Output.SimDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open result store: %w", err)
	}

	// The lease must outlive the slowest legitimate pass, so TTL covers the
	// engine timeout plus the configured grace margin.
	locker := inference.NewLocker(cfg.Engine.Timeout.Std() + cfg.Engine.Grace.Std())
	resolver := inference.NewResolver(store, src, cfg.RealModeEnabled)
	locator := inference.ExecLocator{Path: cfg.Engine.Path, Timeout: cfg.Engine.Timeout.Std()}
	orch := inference.NewOrchestrator(locker, resolver, locator, results, log)

	var notifier notify.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Channel)
	} else {
		notifier = notify.Log{Logger: log}
	}

	return &app{
		cfg:          cfg,
		log:          log,
		store:        store,
		orchestrator: orch,
		notifier:     notifier,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
