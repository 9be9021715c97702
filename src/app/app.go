// Package app wires the parley components together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"

	"github.com/elee1766/parley/src/agents"
	"github.com/elee1766/parley/src/appconfig"
	"github.com/elee1766/parley/src/config"
	"github.com/elee1766/parley/src/conversation"
	"github.com/elee1766/parley/src/generator"
	"github.com/elee1766/parley/src/identity"
	"github.com/elee1766/parley/src/knowledge"
	"github.com/elee1766/parley/src/localcache"
	"github.com/elee1766/parley/src/orclient"
	"github.com/elee1766/parley/src/prompt"
	"github.com/elee1766/parley/src/storage"
	"github.com/elee1766/parley/src/toolimport"
)

// App represents the main application with all services
type App struct {
	Config        *config.Config
	Fs            afero.Fs
	Cache         *localcache.Cache
	Identity      *identity.Provider
	Agents        *agents.Registry
	Settings      *appconfig.Store
	OpenRouter    *orclient.Client
	Generator     *generator.Router
	Prompts       *prompt.Builder
	Conversations *conversation.Store
	Tools         *toolimport.Importer
	// Records is nil when the record store is disabled or could not be opened.
	Records *storage.DB
	Logger  *slog.Logger
}

// Options holds what New needs beyond the loaded configuration
type Options struct {
	Config *config.Config
	// Fs backs the local cache and file knowledge. Defaults to the OS filesystem.
	Fs        afero.Fs
	Notifier  conversation.Notifier
	Callbacks *conversation.Callbacks
	Logger    *slog.Logger
}

// New creates a new App instance with all services initialized. A record
// store that cannot be opened is logged and the app runs on the local cache.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	cache, err := localcache.New(localcache.Config{Fs: fs, Dir: cfg.Storage.CacheDir, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	a := &App{
		Config:   cfg,
		Fs:       fs,
		Cache:    cache,
		Identity: identity.NewProvider(cache, logger),
		Settings: appconfig.New(appconfig.Config{Persister: cache, Logger: logger}),
		Tools:    toolimport.New(nil, toolimport.Options{IncludeDefaults: true, Logger: logger}),
		Logger:   logger,
	}

	genOpts := generator.Options{
		Temperature:     cfg.Generation.Temperature,
		TopP:            cfg.Generation.TopP,
		TopK:            cfg.Generation.TopK,
		MaxOutputTokens: cfg.Generation.MaxTokens,
	}
	a.OpenRouter = orclient.NewClient(orclient.Config{
		APIKey:     cfg.API.APIKey,
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		RetryCount: cfg.API.Retry.MaxRetries,
		RetryDelay: cfg.API.Retry.InitialDelay,
		SiteURL:    cfg.API.SiteURL,
		SiteName:   cfg.API.SiteName,
		Logger:     logger,
	})
	backends := map[string]generator.Generator{}
	if slices.Contains(cfg.Generation.Providers, generator.ProviderOpenRouter) {
		backends[generator.ProviderOpenRouter] = generator.NewOpenRouter(generator.OpenRouterConfig{
			Client:  a.OpenRouter,
			Options: genOpts,
			Logger:  logger,
		})
	}
	if slices.Contains(cfg.Generation.Providers, generator.ProviderGoogle) && cfg.Google.APIKey != "" {
		gemini, err := generator.NewGemini(ctx, generator.GeminiConfig{APIKey: cfg.Google.APIKey, Options: genOpts, Logger: logger})
		if err != nil {
			logger.Warn("gemini backend unavailable", "error", err)
		} else {
			backends[generator.ProviderGoogle] = gemini
		}
	}
	a.Generator = generator.NewRouter(generator.RouterConfig{
		Models:   a.Settings,
		Backends: backends,
		Factory:  generator.DefaultFactory(cfg.API.BaseURL, genOpts, logger),
		Logger:   logger,
	})
	a.Agents = agents.New(agents.Config{Store: cache, Counter: a.Generator, Logger: logger})

	policy, err := knowledge.PolicyByName(cfg.Knowledge.Policy, cfg.Knowledge.TopK)
	if err != nil {
		return nil, err
	}
	a.Prompts = prompt.NewBuilder(prompt.Config{
		Policy:            policy,
		Fs:                fs,
		MaxKnowledgeBytes: cfg.Knowledge.MaxBytes,
		Environment:       cfg.Generation.Environment,
		Logger:            logger,
	})

	var remote conversation.Remote
	if cfg.Storage.Driver != "" {
		db, err := OpenRecords(ctx, cfg.Storage, logger)
		if err != nil {
			logger.Warn("record store unavailable, running on local cache only", "driver", cfg.Storage.Driver, "error", err)
		} else {
			a.Records = db
			remote = storage.NewRecordStore(db, logger)
		}
	}

	a.Conversations = conversation.New(conversation.Config{
		Cache:             cache,
		Identity:          a.Identity,
		Agents:            a.Agents,
		Generator:         a.Generator,
		Prompts:           a.Prompts,
		Remote:            remote,
		WriteTimeout:      cfg.Storage.WriteTimeout,
		GenerationTimeout: cfg.Generation.Timeout,
		Notifier:          opts.Notifier,
		Callbacks:         opts.Callbacks,
		Logger:            logger,
	})
	return a, nil
}

// OpenRecords connects to the configured record store database, creating the
// directory of a SQLite file when needed.
func OpenRecords(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*storage.DB, error) {
	if cfg.Driver == storage.DriverSQLite {
		if err := afero.NewOsFs().MkdirAll(filepath.Dir(cfg.DSN), 0700); err != nil {
			return nil, fmt.Errorf("failed to create record store directory: %w", err)
		}
	}
	return storage.Open(ctx, storage.Options{
		Driver:      cfg.Driver,
		DSN:         cfg.DSN,
		AutoMigrate: cfg.AutoMigrate,
		Logger:      logger,
	})
}

// Load restores the session, agents, settings and conversations, in that
// order. Conversations always load; the other errors are returned joined.
func (a *App) Load(ctx context.Context) (conversation.Source, error) {
	var errs []error
	if err := a.Identity.Load(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Agents.Load(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Settings.Load(); err != nil {
		errs = append(errs, err)
	}
	source := a.Conversations.Load(ctx)
	return source, errors.Join(errs...)
}

// Close drains pending record store writes and releases the database.
func (a *App) Close(ctx context.Context) error {
	err := a.Conversations.Close(ctx)
	if a.Records != nil {
		err = errors.Join(err, a.Records.Close())
	}
	return err
}
