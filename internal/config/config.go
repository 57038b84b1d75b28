package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Storage StorageConfig `yaml:"storage" envconfig:"STORAGE"`
	AI      AIConfig      `yaml:"ai" envconfig:"AI"`
	Report  ReportConfig  `yaml:"report" envconfig:"REPORT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// StorageConfig contains transient file storage configuration
type StorageConfig struct {
	UploadsDir    string        `yaml:"uploads_dir" envconfig:"UPLOADS_DIR"`
	OutputsDir    string        `yaml:"outputs_dir" envconfig:"OUTPUTS_DIR"`
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL"`
}

// AIConfig contains AI provider configuration. An empty APIKey selects the
// built-in mock provider.
type AIConfig struct {
	APIKey              string        `yaml:"api_key" envconfig:"API_KEY"`
	BaseURL             string        `yaml:"base_url" envconfig:"BASE_URL"`
	Model               string        `yaml:"model" envconfig:"MODEL"`
	Timeout             time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	RequestsPerMinute   float64       `yaml:"requests_per_minute" envconfig:"REQUESTS_PER_MINUTE"`
	MaxDigestCategories int           `yaml:"max_digest_categories" envconfig:"MAX_DIGEST_CATEGORIES"`
}

// ReportConfig contains report generation configuration
type ReportConfig struct {
	PreviewRows      int `yaml:"preview_rows" envconfig:"PREVIEW_ROWS"`
	SummaryTableRows int `yaml:"summary_table_rows" envconfig:"SUMMARY_TABLE_ROWS"`
	SummaryTableCols int `yaml:"summary_table_cols" envconfig:"SUMMARY_TABLE_COLS"`
}

// Load layers configuration sources: built-in defaults, then an optional
// YAML file, then environment variables. A setting absent from a later
// source leaves the earlier value in place, so every field can come from
// any of the three.
func Load() (*Config, error) {
	cfg := *Default()

	configFile := getConfigFilePath()
	if configFile != "" {
		if err := loadFromFile(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// envconfig leaves fields untouched when the variable is unset, so the
	// file and default values survive.
	if err := envconfig.Process("REPORTAI", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := cfg.ensureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	return &cfg, nil
}

// loadFromFile overlays YAML file settings onto cfg. Keys absent from the
// file keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Storage.TTL <= 0 {
		return fmt.Errorf("storage TTL must be positive")
	}

	if c.Storage.SweepInterval <= 0 {
		return fmt.Errorf("storage sweep interval must be positive")
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI provider timeout must be positive")
	}

	if c.Report.PreviewRows <= 0 {
		c.Report.PreviewRows = 10
	}

	if c.Logging.Format != "json" {
		// Structured logs are always JSON
		c.Logging.Format = "json"
	}

	return nil
}

// ensureDirectories creates the storage directories if missing
func (c *Config) ensureDirectories() error {
	for _, dir := range []string{c.Storage.UploadsDir, c.Storage.OutputsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxUploadBytes:  25 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Storage: StorageConfig{
			UploadsDir:    "data/uploads",
			OutputsDir:    "data/outputs",
			TTL:           24 * time.Hour,
			SweepInterval: 15 * time.Minute,
		},
		AI: AIConfig{
			Model:               "gpt-4o-mini",
			Timeout:             60 * time.Second,
			RequestsPerMinute:   20,
			MaxDigestCategories: 5,
		},
		Report: ReportConfig{
			PreviewRows:      10,
			SummaryTableRows: 10,
			SummaryTableCols: 6,
		},
	}
}
