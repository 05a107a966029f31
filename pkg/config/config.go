// Package config provides configuration management for the gostitch target.
// It handles loading, validating, and saving target settings: Stitch
// credentials, gate and spool endpoints, batch limits, and record hooks.
// Config files are YAML; since YAML is a superset of JSON, the JSON config
// files used by other Singer targets load unchanged.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cperrin88/gostitch/pkg/errors"
	"github.com/cperrin88/gostitch/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the target configuration.
type Config struct {
	// Stitch credentials
	ClientID  int    `yaml:"client_id" json:"client_id"`
	Token     string `yaml:"token" json:"token"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`

	// Endpoints
	GateURL  string `yaml:"gate_url,omitempty" json:"gate_url,omitempty"`
	SpoolURL string `yaml:"spool_url,omitempty" json:"spool_url,omitempty"`

	// Batch limits
	MaxBatchBytes   int           `yaml:"max_batch_bytes,omitempty" json:"max_batch_bytes,omitempty"`
	MaxBatchRecords int           `yaml:"max_batch_records,omitempty" json:"max_batch_records,omitempty"`
	FlushInterval   time.Duration `yaml:"flush_interval,omitempty" json:"flush_interval,omitempty"`

	// Network settings
	HTTPTimeout time.Duration `yaml:"http_timeout,omitempty" json:"http_timeout,omitempty"`
	SSLVerify   *bool         `yaml:"ssl_verify,omitempty" json:"ssl_verify,omitempty"`

	// Large-batch spool settings
	Spool SpoolConfig `yaml:"spool,omitempty" json:"spool,omitempty"`

	// Record hooks
	Hooks HooksConfig `yaml:"hooks,omitempty" json:"hooks,omitempty"`

	// Output settings
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// SpoolConfig configures the S3 spool used for batches too large for the gate.
type SpoolConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	S3Endpoint     string `yaml:"s3_endpoint,omitempty" json:"s3_endpoint,omitempty"`
	S3Bucket       string `yaml:"s3_bucket,omitempty" json:"s3_bucket,omitempty"`
	AccessKey      string `yaml:"access_key,omitempty" json:"access_key,omitempty"`
	SecretKey      string `yaml:"secret_key,omitempty" json:"secret_key,omitempty"`
	ThresholdBytes int    `yaml:"threshold_bytes,omitempty" json:"threshold_bytes,omitempty"`
	StagingDir     string `yaml:"staging_dir,omitempty" json:"staging_dir,omitempty"`
}

// HooksConfig names the Tengo scripts run around record processing.
type HooksConfig struct {
	PreRecord string `yaml:"pre_record,omitempty" json:"pre_record,omitempty"`
	PostBatch string `yaml:"post_batch,omitempty" json:"post_batch,omitempty"`
}

// Default configuration values.
const (
	// DefaultGateURL is the Stitch import endpoint.
	DefaultGateURL = "https://api.stitchdata.com/v2/import/batch"

	// DefaultSpoolURL is the spool notification endpoint; %d is the client ID.
	DefaultSpoolURL = "https://spool.stitchdata.com/v2/clients/%d/batches"

	// DefaultMaxBatchBytes is the request body limit accepted by the gate.
	DefaultMaxBatchBytes = 4_000_000

	// DefaultMaxBatchRecords is the record count limit per request.
	DefaultMaxBatchRecords = 20_000

	// DefaultFlushInterval is how long a partial batch may sit before flushing.
	DefaultFlushInterval = 60 * time.Second

	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultSpoolThresholdBytes routes a table to the spool once its first
	// batch reaches this size.
	DefaultSpoolThresholdBytes = 4 * 1024 * 1024

	// SSLVerifyEnv disables TLS verification when set to "false".
	SSLVerifyEnv = "GOSTITCH_SSL_VERIFY"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults. Credentials
// are left empty and must come from the config file.
func DefaultConfig() *Config {
	stagingDir := filepath.Join(os.TempDir(), "gostitch", "spool")

	return &Config{
		GateURL:         DefaultGateURL,
		SpoolURL:        DefaultSpoolURL,
		MaxBatchBytes:   DefaultMaxBatchBytes,
		MaxBatchRecords: DefaultMaxBatchRecords,
		FlushInterval:   DefaultFlushInterval,
		HTTPTimeout:     DefaultHTTPTimeout,
		LogLevel:        "info",
		Spool: SpoolConfig{
			ThresholdBytes: DefaultSpoolThresholdBytes,
			StagingDir:     stagingDir,
		},
	}
}

// LoadConfig loads configuration from a file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	// The file carries credentials, so write it 0600 and replace atomically.
	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModePrivate)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}

	var missing []string
	if c.ClientID == 0 {
		missing = append(missing, "client_id")
	}
	if c.Token == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("configuration is missing required fields: %s", strings.Join(missing, ", "))
	}

	if c.MaxBatchBytes < 1 {
		return fmt.Errorf("max_batch_bytes must be positive")
	}
	if c.MaxBatchRecords < 1 {
		return fmt.Errorf("max_batch_records must be positive")
	}
	// Sequence numbers are epoch millis with a zero-padded message index
	// appended; larger limits would overflow int64.
	if c.MaxBatchRecords > 99_999 {
		return fmt.Errorf("max_batch_records cannot exceed 99999")
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("flush_interval cannot be negative")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout cannot be negative")
	}

	if c.Spool.Enabled {
		if c.Spool.S3Bucket == "" {
			return fmt.Errorf("spool.s3_bucket is required when the spool is enabled")
		}
		if c.Namespace == "" {
			return fmt.Errorf("namespace is required when the spool is enabled")
		}
		if c.Spool.ThresholdBytes < 1 {
			return fmt.Errorf("spool.threshold_bytes must be positive")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// VerifySSL reports whether TLS certificates should be verified. The
// environment variable wins over the config file so operators can toggle it
// without editing credentials.
func (c *Config) VerifySSL() bool {
	if v := os.Getenv(SSLVerifyEnv); v != "" {
		return !strings.EqualFold(v, "false")
	}
	if c.SSLVerify != nil {
		return *c.SSLVerify
	}
	return true
}

// SpoolNotifyURL returns the spool notification URL for this client.
func (c *Config) SpoolNotifyURL() string {
	if strings.Contains(c.SpoolURL, "%d") {
		return fmt.Sprintf(c.SpoolURL, c.ClientID)
	}
	return c.SpoolURL
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	return filepath.Join(configDir, "gostitch", "config.yaml"), nil
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.GateURL == "" {
		c.GateURL = defaults.GateURL
	}
	if c.SpoolURL == "" {
		c.SpoolURL = defaults.SpoolURL
	}
	if c.MaxBatchBytes == 0 {
		c.MaxBatchBytes = defaults.MaxBatchBytes
	}
	if c.MaxBatchRecords == 0 {
		c.MaxBatchRecords = defaults.MaxBatchRecords
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = defaults.FlushInterval
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = defaults.HTTPTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Spool.ThresholdBytes == 0 {
		c.Spool.ThresholdBytes = defaults.Spool.ThresholdBytes
	}
	if c.Spool.StagingDir == "" {
		c.Spool.StagingDir = defaults.Spool.StagingDir
	}
}
