package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"PriceLakehouse/internal/model"
)

var (
	// ErrMissing marks a required setting that is not configured.
	ErrMissing = errors.New("missing required setting")
	// ErrInvalid marks a setting with an unusable value.
	ErrInvalid = errors.New("invalid setting")
)

// Config holds all application configuration.
type Config struct {
	Symbols  []string `yaml:"symbols"`
	Provider struct {
		Name              string `yaml:"name"` // yahoo, eodhd or mock
		BaseURL           string `yaml:"base_url"`
		APIKey            string `yaml:"api_key"`
		Exchange          string `yaml:"exchange"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
		Burst             int    `yaml:"burst"`
	} `yaml:"provider"`
	Incremental struct {
		LookbackDays int `yaml:"lookback_days"`
	} `yaml:"incremental"`
	Backfill struct {
		Period string `yaml:"period"`
	} `yaml:"backfill"`
	Snapshot struct {
		Backend string `yaml:"backend"` // gcs or file
		Bucket  string `yaml:"bucket"`
		Prefix  string `yaml:"prefix"`
		Dir     string `yaml:"dir"`
	} `yaml:"snapshot"`
	Warehouse struct {
		Backend     string `yaml:"backend"` // bigquery, postgres or sqlite
		Project     string `yaml:"project"`
		Dataset     string `yaml:"dataset"`
		Table       string `yaml:"table"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"warehouse"`
	GCP struct {
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"gcp"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{Incremental: struct {
		LookbackDays int `yaml:"lookback_days"`
	}{LookbackDays: -1}}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	cfg.applyDefaults()
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TICKERS"); v != "" {
		cfg.Symbols = splitCSV(v)
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Incremental.LookbackDays = n
		}
	}
	if v := os.Getenv("BACKFILL_PERIOD"); v != "" {
		cfg.Backfill.Period = v
	}
	if v := os.Getenv("SNAPSHOT_BACKEND"); v != "" {
		cfg.Snapshot.Backend = v
	}
	if v := os.Getenv("GCS_BUCKET"); v != "" {
		cfg.Snapshot.Bucket = v
	}
	if v := os.Getenv("WAREHOUSE_BACKEND"); v != "" {
		cfg.Warehouse.Backend = v
	}
	if v := os.Getenv("BQ_PROJECT"); v != "" {
		cfg.Warehouse.Project = v
	}
	if v := os.Getenv("BQ_DATASET_STAGING"); v != "" {
		cfg.Warehouse.Dataset = v
	}
	if v := os.Getenv("WAREHOUSE_SQLITE_PATH"); v != "" {
		cfg.Warehouse.SQLitePath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Warehouse.PostgresDSN = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		cfg.GCP.CredentialsFile = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
}

func (c *Config) applyDefaults() {
	c.Symbols = normalizeSymbols(c.Symbols)
	if c.Symbols == nil {
		c.Symbols = []string{"AAPL", "MSFT", "TSLA"}
	}
	if c.Provider.Name == "" {
		c.Provider.Name = "yahoo"
	}
	c.Provider.Name = strings.ToLower(c.Provider.Name)
	if c.Provider.Exchange == "" {
		c.Provider.Exchange = "US"
	}
	if c.Provider.RequestsPerMinute == 0 {
		c.Provider.RequestsPerMinute = 60
	}
	if c.Provider.Burst == 0 {
		c.Provider.Burst = 1
	}
	if c.Incremental.LookbackDays < 0 {
		c.Incremental.LookbackDays = model.DefaultLookbackDays
	}
	if c.Backfill.Period == "" {
		c.Backfill.Period = string(model.Period1mo)
	}
	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = "gcs"
	}
	if c.Snapshot.Prefix == "" {
		c.Snapshot.Prefix = "raw"
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = "data/snapshots"
	}
	if c.Warehouse.Backend == "" {
		c.Warehouse.Backend = "bigquery"
	}
	if c.Warehouse.Dataset == "" {
		c.Warehouse.Dataset = "staging"
	}
	if c.Warehouse.Table == "" {
		c.Warehouse.Table = "stock_prices"
	}
	if c.Warehouse.SQLitePath == "" {
		c.Warehouse.SQLitePath = "data/warehouse.db"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 22 * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that the destinations and provider are fully configured.
// It runs before any provider call.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "yahoo", "mock":
	case "eodhd":
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider.api_key (EODHD_API_KEY): %w", ErrMissing)
		}
	default:
		return fmt.Errorf("provider.name %q: %w", c.Provider.Name, ErrInvalid)
	}
	if c.Provider.RequestsPerMinute < 0 || c.Provider.Burst < 0 {
		return fmt.Errorf("provider rate limits must not be negative: %w", ErrInvalid)
	}
	if _, err := model.ParsePeriod(c.Backfill.Period); err != nil {
		return fmt.Errorf("backfill.period: %v: %w", err, ErrInvalid)
	}

	switch c.Snapshot.Backend {
	case "gcs":
		if c.Snapshot.Bucket == "" {
			return fmt.Errorf("snapshot.bucket (GCS_BUCKET): %w", ErrMissing)
		}
	case "file":
		if c.Snapshot.Dir == "" {
			return fmt.Errorf("snapshot.dir: %w", ErrMissing)
		}
	default:
		return fmt.Errorf("snapshot.backend %q: %w", c.Snapshot.Backend, ErrInvalid)
	}

	switch c.Warehouse.Backend {
	case "bigquery":
		if c.Warehouse.Project == "" {
			return fmt.Errorf("warehouse.project (BQ_PROJECT): %w", ErrMissing)
		}
		if c.Warehouse.Dataset == "" {
			return fmt.Errorf("warehouse.dataset (BQ_DATASET_STAGING): %w", ErrMissing)
		}
		if c.Snapshot.Backend != "gcs" {
			return fmt.Errorf("bigquery loads only from gcs snapshots, got %q: %w", c.Snapshot.Backend, ErrInvalid)
		}
	case "postgres":
		if c.Warehouse.PostgresDSN == "" {
			return fmt.Errorf("warehouse.postgres_dsn (POSTGRES_DSN): %w", ErrMissing)
		}
	case "sqlite":
		if c.Warehouse.SQLitePath == "" {
			return fmt.Errorf("warehouse.sqlite_path: %w", ErrMissing)
		}
	default:
		return fmt.Errorf("warehouse.backend %q: %w", c.Warehouse.Backend, ErrInvalid)
	}
	if c.Warehouse.Table == "" {
		return fmt.Errorf("warehouse.table: %w", ErrMissing)
	}
	return nil
}

// normalizeSymbols upper-cases tickers and drops blanks, keeping order.
func normalizeSymbols(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
