package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Sources    SourcesConfig    `yaml:"sources" envconfig:"SOURCES"`
	ProPublica ProPublicaConfig `yaml:"propublica" envconfig:"PROPUBLICA"`
}

// ServerConfig contains HTTP server configuration for the dataset API
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	DownloadsDir string `yaml:"downloads_dir" envconfig:"DOWNLOADS_DIR" default:"data/downloads"`
	DatasetsDir  string `yaml:"datasets_dir" envconfig:"DATASETS_DIR" default:"data/datasets"`
	SnapshotsDir string `yaml:"snapshots_dir" envconfig:"SNAPSHOTS_DIR" default:"data/snapshots"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// SourcesConfig holds the candidate download locations per publication.
// Publishers move these files between cycles, so each source carries an
// ordered list of URLs tried until one answers.
type SourcesConfig struct {
	DirectoryURLs []string `yaml:"directory_urls" envconfig:"DIRECTORY_URLS"`
	CMSURLs       []string `yaml:"cms_urls" envconfig:"CMS_URLS"`
	HRSAURLs      []string `yaml:"hrsa_urls" envconfig:"HRSA_URLS"`
	SRTRURLs      []string `yaml:"srtr_urls" envconfig:"SRTR_URLS"`
}

// ProPublicaConfig configures access to the nonprofit-filings API.
type ProPublicaConfig struct {
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL" default:"https://projects.propublica.org/nonprofits/api/v2"`
	// RequestDelay is the fixed pause between consecutive API calls, a
	// rate-limit contract with the publisher.
	RequestDelay time.Duration `yaml:"request_delay" envconfig:"REQUEST_DELAY" default:"1s"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("OPODATA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Override with config file if it exists
	configFile := os.Getenv("OPODATA_CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	if _, err := os.Stat(configFile); err == nil {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging format must be json or text, got %q", c.Logging.Format)
	}

	if c.ProPublica.RequestDelay < 0 {
		return fmt.Errorf("propublica request delay cannot be negative")
	}

	return nil
}
