// Package config provides configuration loading and defaults for the codecord
// daemon.
//
// Configuration is loaded from a TOML file in the user's data directory. The
// package covers the Discord identity, presence intent, display templates,
// privacy controls and logging, and owns the per-workspace intent file
// (see [IntentStore]).
package config

//go:generate go run ../../cmd/genconfig

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/codecord/internal/atomicfile"
	"tools.zach/dev/codecord/internal/migrate"
	"tools.zach/dev/codecord/internal/paths"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Discord selects the Discord application the presence is published under.
	Discord DiscordConfig `toml:"discord"`
	// Presence holds the global intent and controller tuning.
	Presence PresenceConfig `toml:"presence"`
	// Display holds the activity templates.
	Display DisplayConfig `toml:"display"`
	// Privacy holds workspace ignore rules.
	Privacy PrivacyConfig `toml:"privacy"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// DiscordConfig selects the Discord application identity.
type DiscordConfig struct {
	// App is a known editor name ("vscode", "insiders", "vscodium", "cursor")
	// or "custom".
	App string `toml:"app"`
	// AppID overrides the application ID. Required when App is "custom".
	AppID string `toml:"app_id,omitempty"`
}

// PresenceConfig holds the global presence intent and controller tuning.
type PresenceConfig struct {
	// Enabled is the global intent. A workspace entry in workspaces.toml
	// takes precedence.
	Enabled bool `toml:"enabled"`
	// SuppressNotifications hides the confirmation shown after a toggle command.
	SuppressNotifications bool `toml:"suppress_notifications"`
	// UpdateDebounceMS is how long activity changes settle before being sent.
	UpdateDebounceMS int `toml:"update_debounce_ms"`
	// IdleTimeoutMinutes switches to the idle templates after this much editor
	// inactivity. 0 disables idle detection.
	IdleTimeoutMinutes int `toml:"idle_timeout_minutes"`
}

// DisplayConfig holds the activity templates. Available variables: {file},
// {workspace}, {language}, {line}, {app}.
type DisplayConfig struct {
	// Details is the top line while a file is open.
	Details string `toml:"details"`
	// State is the bottom line while a file is open.
	State string `toml:"state"`
	// DetailsIdle is the top line when no file is open or the editor is idle.
	DetailsIdle string `toml:"details_idle"`
	// StateIdle is the bottom line when no file is open or the editor is idle.
	StateIdle string `toml:"state_idle"`
	// LargeImage is the Discord asset key for the large image. "{language}"
	// selects a per-language asset.
	LargeImage string `toml:"large_image"`
	// LargeText is the large image tooltip.
	LargeText string `toml:"large_text"`
	// ShowElapsed shows the elapsed timer since the workspace was opened.
	ShowElapsed bool `toml:"show_elapsed"`
}

// PrivacyConfig holds privacy settings.
type PrivacyConfig struct {
	// Ignore lists glob patterns for workspaces whose activity is never shown.
	Ignore []string `toml:"ignore"`
	// HideFileNames replaces {file} with HiddenFileText.
	HideFileNames bool `toml:"hide_file_names"`
	// HiddenFileText is shown instead of the file name when HideFileNames is set.
	HiddenFileText string `toml:"hidden_file_text"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Discord: DiscordConfig{
			App: "vscode",
		},
		Presence: PresenceConfig{
			Enabled:               true,
			SuppressNotifications: false,
			UpdateDebounceMS:      1000,
			IdleTimeoutMinutes:    5,
		},
		Display: DisplayConfig{
			Details:     "Editing {file}",
			State:       "Workspace: {workspace}",
			DetailsIdle: "Idling",
			StateIdle:   "Workspace: {workspace}",
			LargeImage:  "{language}",
			LargeText:   "Editing a {language} file",
			ShowElapsed: true,
		},
		Privacy: PrivacyConfig{
			Ignore:         []string{},
			HiddenFileText: "a file",
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing, zero or unparsable.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil || v.Version == 0 {
		return 1
	}
	return v.Version
}

// Load reads dataDir/config.toml over the defaults, migrating and re-saving
// older files. A missing file yields DefaultConfig.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)
	if version != migrate.Config.CurrentVersion {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
	}
	data, migrated, err := migrate.Config.Upgrade(data, version)
	if err != nil {
		return nil, fmt.Errorf("migrate config: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if migrated {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}
	return cfg, nil
}

// Save writes the config to path as TOML.
func (c *Config) Save(path string) error {
	return atomicfile.WriteWith(path, 0o644, func(w io.Writer) error {
		if err := toml.NewEncoder(w).Encode(c); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return nil
	})
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if _, known := knownApps[c.Discord.App]; !known && c.Discord.App != AppCustom {
		return fmt.Errorf("invalid discord.app %q: must be one of %s or %s", c.Discord.App, knownAppList(), AppCustom)
	}

	if c.Discord.AppID != "" && !snowflakeRe.MatchString(c.Discord.AppID) {
		return fmt.Errorf("invalid discord.app_id %q: must be a numeric Discord application ID", c.Discord.AppID)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	if c.Presence.UpdateDebounceMS < 0 {
		return fmt.Errorf("presence.update_debounce_ms must be >= 0, got %d", c.Presence.UpdateDebounceMS)
	}

	if c.Presence.IdleTimeoutMinutes < 0 {
		return fmt.Errorf("presence.idle_timeout_minutes must be >= 0, got %d", c.Presence.IdleTimeoutMinutes)
	}

	for _, pattern := range c.Privacy.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid privacy.ignore pattern %q", pattern)
		}
	}

	return nil
}

// ///////////////////////////////////////////////
// Privacy Helpers
// ///////////////////////////////////////////////

// IsIgnored reports whether the workspace directory matches any configured
// ignore pattern. Patterns are matched against the slash-separated path.
func (c *Config) IsIgnored(workspace string) bool {
	target := filepath.ToSlash(workspace)
	for _, pattern := range c.Privacy.Ignore {
		matched, err := doublestar.Match(pattern, target)
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// FileLabel returns the name to show for a file, honoring HideFileNames.
func (c *Config) FileLabel(name string) string {
	if c.Privacy.HideFileNames {
		return c.Privacy.HiddenFileText
	}
	return name
}
