// Package config resolves the store directory and optional per-project
// settings (config.yaml) the way the teacher's config layer does: env var
// override, then an on-disk project file, then built-in defaults, read
// through viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// StoreDirName is the on-disk directory name holding the item/edge logs,
	// lockfile, and daemon socket/pidfile.
	StoreDirName = ".engram"
	// ConfigFileName is the optional per-project settings file.
	ConfigFileName = "config.yaml"
)

// Settings are the project-level knobs read from config.yaml / env vars.
// Load returns them; no CLI command calls Load, so neither setting changes
// how the engram binary behaves.
type Settings struct {
	// AutoStartDaemon is the auto_start_daemon setting. Nothing acts on it:
	// CLI commands never spawn a daemon.
	AutoStartDaemon bool `mapstructure:"auto_start_daemon"`
	// CompactOlderThanDays is the compact_older_than_days setting. `engram
	// compact` does not read it; its --older-than-days flag defaults to 30.
	CompactOlderThanDays int `mapstructure:"compact_older_than_days"`
}

func defaultSettings() Settings {
	return Settings{
		AutoStartDaemon:      false,
		CompactOlderThanDays: 30,
	}
}

// ResolveDir returns the store directory for a workspace rooted at
// workDir. ENGRAM_DIR overrides discovery entirely; otherwise it's
// workDir/.engram.
func ResolveDir(workDir string) string {
	if v := os.Getenv("ENGRAM_DIR"); v != "" {
		return v
	}
	return filepath.Join(workDir, StoreDirName)
}

// Load reads Settings for the store directory dir, applying defaults for
// anything config.yaml or the environment doesn't set.
func Load(dir string) (Settings, error) {
	settings := defaultSettings()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("ENGRAM")
	v.AutomaticEnv()

	v.SetDefault("auto_start_daemon", settings.AutoStartDaemon)
	v.SetDefault("compact_older_than_days", settings.CompactOlderThanDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return settings, fmt.Errorf("reading %s: %w", filepath.Join(dir, ConfigFileName), err)
		}
	}

	if err := v.Unmarshal(&settings); err != nil {
		return settings, fmt.Errorf("parsing config: %w", err)
	}
	return settings, nil
}
