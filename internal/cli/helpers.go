package cli

import (
	"fmt"

	"github.com/cperrin88/gostitch/internal/logger"
	"github.com/cperrin88/gostitch/pkg/config"
	"github.com/cperrin88/gostitch/pkg/hook"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
)

// loadConfig loads the configuration from the --config flag or the default
// location.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// initLogger configures logging from the config, letting --verbose win.
func initLogger(cfg *config.Config) {
	level := cfg.LogLevel
	if Verbose != nil && *Verbose {
		level = "debug"
	}
	logger.InitLogger(level)
}

// buildHooks loads the configured Tengo scripts.
func buildHooks(cfg *config.Config) (hook.Executor, error) {
	executor := hook.NewTengoExecutor()
	if cfg.Hooks.PreRecord != "" {
		if err := executor.AddScriptFile(hook.PreRecord, cfg.Hooks.PreRecord); err != nil {
			return nil, err
		}
	}
	if cfg.Hooks.PostBatch != "" {
		if err := executor.AddScriptFile(hook.PostBatch, cfg.Hooks.PostBatch); err != nil {
			return nil, err
		}
	}
	return executor, nil
}
