package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

/** @brief Configuration for the content runtime, loaded from a TOML file. */
type ContentConfig struct {
	/** @brief The root directory compiled assets are loaded from. */
	RootPath string `toml:"root_path"`
	/** @brief Watch the root directory for file changes and fire reload events. */
	WatchForChanges bool `toml:"watch_for_changes"`
	/** @brief Minimum log level: debug, info, warn, error. */
	LogLevel string `toml:"log_level"`
	/** @brief Upper bound on shared resources declared by a single stream. */
	MaxSharedResources int `toml:"max_shared_resources"`
}

// DefaultContentConfig returns the configuration used when no file is supplied.
func DefaultContentConfig() *ContentConfig {
	return &ContentConfig{
		RootPath:           "assets",
		WatchForChanges:    false,
		LogLevel:           "info",
		MaxSharedResources: 4096,
	}
}

// LoadContentConfig reads and validates a TOML configuration file.
func LoadContentConfig(path string) (*ContentConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := DefaultContentConfig()
	if err := toml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	if cfg.RootPath == "" {
		return nil, fmt.Errorf("config '%s': root_path must not be empty", path)
	}
	if cfg.MaxSharedResources <= 0 {
		return nil, fmt.Errorf("config '%s': max_shared_resources must be > 0", path)
	}
	return cfg, nil
}
