// Package config loads ingest-cli settings from config.yaml, INGEST_*
// environment variables and built-in defaults.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// Config is the root configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Pipelines PipelinesConfig `yaml:"pipelines" mapstructure:"pipelines"`
}

// LogConfig configures the global zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// FetchConfig configures HTTP and FTP retrieval. A zero timeout disables it.
type FetchConfig struct {
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	FTPTimeoutSecs int     `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
}

// Timeout returns the HTTP timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// FTPTimeout returns the FTP dial timeout as a duration.
func (f FetchConfig) FTPTimeout() time.Duration {
	return time.Duration(f.FTPTimeoutSecs) * time.Second
}

// IngestConfig holds the recognized extensions and the scratch directory.
type IngestConfig struct {
	DownloadDir           string   `yaml:"download_dir" mapstructure:"download_dir"`
	ArchiveExtensions     []string `yaml:"archive_extensions" mapstructure:"archive_extensions"`
	SpreadsheetExtensions []string `yaml:"spreadsheet_extensions" mapstructure:"spreadsheet_extensions"`
}

// Extensions returns the configured extension set.
func (i IngestConfig) Extensions() model.ExtensionSet {
	return model.ExtensionSet{
		Archive:     i.ArchiveExtensions,
		Spreadsheet: i.SpreadsheetExtensions,
	}
}

// StoreConfig names the default destination and the run log.
type StoreConfig struct {
	// Location is a SQLite path or a postgres:// URL.
	Location   string `yaml:"location" mapstructure:"location"`
	Policy     string `yaml:"policy" mapstructure:"policy"`
	RunLogPath string `yaml:"runlog_path" mapstructure:"runlog_path"`
}

// PipelinesConfig points at an optional YAML file of extra definitions.
type PipelinesConfig struct {
	DefinitionsFile string `yaml:"definitions_file" mapstructure:"definitions_file"`
}

// Load reads configuration from config.yaml, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("fetch.user_agent", "ingest-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 0)
	v.SetDefault("fetch.rate_per_second", 5)
	v.SetDefault("fetch.ftp_timeout_secs", 30)
	v.SetDefault("ingest.download_dir", "tmp")
	v.SetDefault("ingest.archive_extensions", []string{".zip"})
	v.SetDefault("ingest.spreadsheet_extensions", []string{".xls", ".xlsx"})
	v.SetDefault("store.location", "tmp/data.db")
	v.SetDefault("store.policy", "replace")
	v.SetDefault("store.runlog_path", "tmp/ingest_runs.db")
	v.SetDefault("pipelines.definitions_file", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no command can work with.
func (c *Config) Validate() error {
	if c.Fetch.TimeoutSecs < 0 || c.Fetch.FTPTimeoutSecs < 0 {
		return eris.New("config: fetch timeouts must not be negative")
	}
	if c.Fetch.RatePerSecond <= 0 {
		return eris.Errorf("config: fetch.rate_per_second must be positive, got %v", c.Fetch.RatePerSecond)
	}
	if len(c.Ingest.Extensions().All()) == 0 {
		return eris.New("config: no archive or spreadsheet extensions configured")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
