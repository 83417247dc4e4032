package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/wikibot/internal/config"
	"github.com/jonathan/wikibot/internal/db"
	"github.com/jonathan/wikibot/internal/fetch"
	"github.com/jonathan/wikibot/internal/logger"
	"github.com/jonathan/wikibot/internal/markup"
	"github.com/jonathan/wikibot/internal/throttle"
	"github.com/jonathan/wikibot/internal/wiki"
)

const closeTimeout = 30 * time.Second

// app holds everything a command needs to talk to the wiki.
type app struct {
	cfg    *config.Config
	log    logger.Logger
	repo   *wiki.Repository
	parser *markup.Parser
	db     *db.DB
}

// appMode selects which background work the repository starts.
type appMode int

const (
	// oneShot loads the cache and lookups but schedules nothing.
	oneShot appMode = iota
	// longRunning honors the configured auto update and refresh schedule.
	longRunning
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp loads the configuration, opens the cache store and starts the
// repository. Callers must call close.
func newApp(ctx context.Context, mode appMode) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}

	parser, err := markup.NewParser(cfg.HostURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}
	a.parser = parser

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := cfg.RepositoryOptions()
	if mode == oneShot {
		opts.AutoUpdate = false
		opts.RefreshSchedule = ""
	}

	gate := throttle.New(throttle.LoadConfig(), log.With(logger.String("component", "throttle")))
	options := []wiki.Option{
		wiki.WithLogger(log.With(logger.String("component", "repository"))),
		wiki.WithStore(store),
		wiki.WithThrottle(gate),
	}
	if cfg.UseBrowser {
		options = append(options, wiki.WithBrowserFetcher(fetch.NewBrowserFetcher(fetch.DefaultTimeout)))
	}

	repo, err := wiki.New(opts, options...)
	if err != nil {
		a.closeDB()
		return nil, err
	}
	if err := repo.Start(ctx); err != nil {
		a.closeDB()
		return nil, err
	}
	a.repo = repo

	return a, nil
}

func (a *app) openStore(ctx context.Context) (wiki.Store, error) {
	if a.cfg.DatabaseURL == "" {
		a.log.Debug("Using cache file", logger.String("path", a.cfg.CacheFile))
		return wiki.NewFileStore(a.cfg.CacheFile, a.cfg.PrettyExport), nil
	}

	database, err := db.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	a.db = database
	a.log.Debug("Using PostgreSQL cache store")
	return db.NewStore(database), nil
}

// close stops the repository, persisting the cache, and releases the store.
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var err error
	if a.repo != nil {
		err = a.repo.Close(ctx)
	}
	a.closeDB()
	_ = a.log.Sync()
	return err
}

func (a *app) closeDB() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}
