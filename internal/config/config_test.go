package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, cfg.Symbols)
	assert.Equal(t, "yahoo", cfg.Provider.Name)
	assert.Equal(t, 2, cfg.Incremental.LookbackDays)
	assert.Equal(t, "1mo", cfg.Backfill.Period)
	assert.Equal(t, "gcs", cfg.Snapshot.Backend)
	assert.Equal(t, "raw", cfg.Snapshot.Prefix)
	assert.Equal(t, "bigquery", cfg.Warehouse.Backend)
	assert.Equal(t, "staging", cfg.Warehouse.Dataset)
	assert.Equal(t, "stock_prices", cfg.Warehouse.Table)
	assert.Equal(t, "0 30 22 * * 1-5", cfg.Schedule.DailyCron)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := writeConfig(t, `
symbols: [" aapl", "msft ", ""]
incremental:
  lookback_days: 0
snapshot:
  bucket: from-yaml
warehouse:
  project: proj-yaml
`)
	t.Setenv("GCS_BUCKET", "from-env")
	t.Setenv("BQ_DATASET_STAGING", "raw_zone")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Symbols)
	assert.Equal(t, 0, cfg.Incremental.LookbackDays)
	assert.Equal(t, "from-env", cfg.Snapshot.Bucket)
	assert.Equal(t, "proj-yaml", cfg.Warehouse.Project)
	assert.Equal(t, "raw_zone", cfg.Warehouse.Dataset)
	require.NoError(t, cfg.Validate())
}

func TestLoad_TickersEnv(t *testing.T) {
	t.Setenv("TICKERS", "nvda, amd ,,")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "AMD"}, cfg.Symbols)
}

func TestLoad_EmptySymbolListIsKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "symbols: []\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Symbols)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "symbols: [unclosed\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(filepath.Join(os.TempDir(), "does-not-exist.yaml"))
		require.NoError(t, err)
		cfg.Snapshot.Bucket = "bucket"
		cfg.Warehouse.Project = "project"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "complete", mutate: func(*Config) {}},
		{name: "no bucket", mutate: func(c *Config) { c.Snapshot.Bucket = "" }, wantErr: ErrMissing},
		{name: "no project", mutate: func(c *Config) { c.Warehouse.Project = "" }, wantErr: ErrMissing},
		{name: "no dataset", mutate: func(c *Config) { c.Warehouse.Dataset = "" }, wantErr: ErrMissing},
		{name: "eodhd without key", mutate: func(c *Config) { c.Provider.Name = "eodhd" }, wantErr: ErrMissing},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider.Name = "bloomberg" }, wantErr: ErrInvalid},
		{name: "bad period", mutate: func(c *Config) { c.Backfill.Period = "7 weeks" }, wantErr: ErrInvalid},
		{name: "bigquery from local files", mutate: func(c *Config) { c.Snapshot.Backend = "file" }, wantErr: ErrInvalid},
		{
			name: "sqlite warehouse from local files",
			mutate: func(c *Config) {
				c.Snapshot.Backend = "file"
				c.Warehouse.Backend = "sqlite"
				c.Warehouse.Project = ""
			},
		},
		{
			name: "gcs snapshots into postgres need no project",
			mutate: func(c *Config) {
				c.Warehouse.Backend = "postgres"
				c.Warehouse.PostgresDSN = "postgres://localhost/prices"
				c.Warehouse.Project = ""
			},
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Warehouse.Backend = "postgres" },
			wantErr: ErrMissing,
		},
		{name: "unknown warehouse", mutate: func(c *Config) { c.Warehouse.Backend = "redshift" }, wantErr: ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadDotenv_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PRICE_LAKEHOUSE_DOTENV_CHECK=loaded\n"), 0o644))
	t.Setenv("ENV_FILE", path)
	t.Setenv("NO_DOTENV", "")
	t.Setenv("PRICE_LAKEHOUSE_DOTENV_CHECK", "")
	require.NoError(t, os.Unsetenv("PRICE_LAKEHOUSE_DOTENV_CHECK"))

	loadDotenv()
	assert.Equal(t, "loaded", os.Getenv("PRICE_LAKEHOUSE_DOTENV_CHECK"))
}
