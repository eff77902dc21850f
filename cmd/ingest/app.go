package main

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"

	"PriceLakehouse/internal/collector"
	"PriceLakehouse/internal/config"
	"PriceLakehouse/internal/logger"
	"PriceLakehouse/internal/notifier"
	"PriceLakehouse/internal/pipeline"
	"PriceLakehouse/internal/recorder"
	"PriceLakehouse/internal/snapshot"
	"PriceLakehouse/internal/warehouse"
)

func loadConfig() (*config.Config, error) {
	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			cfgPath = v
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	logger.SetLevel(cfg.Log.Level)
	return cfg, nil
}

// app holds the wired components for one process.
type app struct {
	cfg      *config.Config
	store    snapshot.Store
	loader   warehouse.Loader
	recorder recorder.Recorder
	runner   *pipeline.Runner

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("close: %v", err)
		}
	}
}

func (a *app) gcpOptions() []option.ClientOption {
	var opts []option.ClientOption
	if f := a.cfg.GCP.CredentialsFile; f != "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}
	if p := a.cfg.Warehouse.Project; p != "" {
		opts = append(opts, option.WithQuotaProject(p))
	}
	return opts
}

// newApp wires everything a run needs. withLoader=false skips the warehouse
// for commands that only read snapshots.
func newApp(ctx context.Context, withLoader bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}
	if err := a.init(ctx, withLoader); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, withLoader bool) error {
	cfg := a.cfg

	switch cfg.Snapshot.Backend {
	case "gcs":
		gs, err := snapshot.NewGCSStore(ctx, cfg.Snapshot.Bucket, cfg.Snapshot.Prefix, a.gcpOptions()...)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, gs.Close)
		a.store = gs
	default:
		a.store = snapshot.NewFileStore(cfg.Snapshot.Dir, cfg.Snapshot.Prefix)
	}
	logger.Infof("snapshot store: %s", cfg.Snapshot.Backend)

	if withLoader {
		if err := a.initLoader(ctx); err != nil {
			return err
		}
		logger.Infof("warehouse: %s %s.%s", cfg.Warehouse.Backend, cfg.Warehouse.Dataset, cfg.Warehouse.Table)
	}

	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			logger.Warnf("init sqlite recorder failed, using noop: %v", err)
			a.recorder = recorder.NewNoopRecorder()
		} else {
			a.recorder = sr
			a.closers = append(a.closers, sr.Close)
		}
	} else {
		a.recorder = recorder.NewNoopRecorder()
	}

	var n notifier.Notifier = notifier.NoopNotifier{}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		n = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	provider := newProvider(cfg)
	logger.Infof("data source: %s, %d symbols", provider.Name(), len(cfg.Symbols))

	a.runner = &pipeline.Runner{
		Extractor: collector.NewCollector(collector.NewRateLimited(provider, cfg.Provider.RequestsPerMinute, cfg.Provider.Burst)),
		Writer:    a.store,
		Loader:    a.loader,
		Recorder:  a.recorder,
		Notifier:  n,
		Symbols:   cfg.Symbols,
	}
	return nil
}

func (a *app) initLoader(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.Warehouse.Backend {
	case "bigquery":
		bq, err := warehouse.NewBigQuery(ctx, cfg.Warehouse.Project, cfg.Warehouse.Dataset, cfg.Warehouse.Table, a.gcpOptions()...)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, bq.Close)
		a.loader = bq
	case "postgres":
		pg, err := warehouse.NewPostgres(ctx, cfg.Warehouse.PostgresDSN, cfg.Warehouse.Dataset, cfg.Warehouse.Table, a.store)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pg.Close)
		a.loader = pg
	case "sqlite":
		sq, err := warehouse.NewSQLite(cfg.Warehouse.SQLitePath, cfg.Warehouse.Table, a.store)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, sq.Close)
		a.loader = sq
	default:
		return fmt.Errorf("%w: warehouse backend %q", config.ErrInvalid, cfg.Warehouse.Backend)
	}
	return nil
}

func newProvider(cfg *config.Config) collector.Provider {
	switch cfg.Provider.Name {
	case "eodhd":
		var opts []collector.EODHDOption
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, collector.WithEODHDBaseURL(cfg.Provider.BaseURL))
		}
		return collector.NewEODHD(cfg.Provider.APIKey, cfg.Provider.Exchange, cfg.Proxy, opts...)
	case "mock":
		return &collector.MockProvider{Price: 100}
	default:
		var opts []collector.YahooOption
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, collector.WithBaseURL(cfg.Provider.BaseURL))
		}
		return collector.NewYahoo(cfg.Proxy, opts...)
	}
}
