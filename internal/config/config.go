package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"riffle.click/internal/riff"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// FileLoggingConfig represents file-based logging configuration
type FileLoggingConfig struct {
	Enabled    bool   `json:"enabled"`
	Filename   string `json:"filename"`     // empty = XDG cache path
	MaxSizeMB  int    `json:"max_size_mb"`  // size before rotation
	MaxBackups int    `json:"max_backups"`  // rotated files kept
	MaxAgeDays int    `json:"max_age_days"` // age before deletion
	Compress   bool   `json:"compress"`
}

// Config represents riffle configuration
type Config struct {
	Volume          *float64           `json:"volume,omitempty"`       // playback volume 0.0-1.0
	LogLevel        string             `json:"log_level"`              // debug, info, warn, error
	AudioBackend    string             `json:"audio_backend"`          // auto, system_command, malgo, oto
	DuplicatePolicy string             `json:"duplicate_policy"`       // first, last
	SkipPadding     *bool              `json:"skip_padding,omitempty"` // skip the pad byte after odd chunks
	FileLogging     *FileLoggingConfig `json:"file_logging,omitempty"`
	History         *HistoryConfig     `json:"history,omitempty"`
}

// Valid values for string settings
var (
	ValidLogLevels         = []string{"debug", "info", "warn", "error"}
	ValidAudioBackends     = []string{"auto", "system_command", "malgo", "oto"}
	ValidDuplicatePolicies = []string{"first", "last"}
)

// VolumeOrDefault returns the configured volume, or 1.0 when unset
func (c *Config) VolumeOrDefault() float64 {
	if c.Volume == nil {
		return 1.0
	}
	return *c.Volume
}

// DecodeOptions turns the decode-related settings into riff options
func (c *Config) DecodeOptions() []riff.Option {
	var opts []riff.Option
	if c.DuplicatePolicy == "last" {
		opts = append(opts, riff.WithDuplicatePolicy(riff.LastWins))
	}
	if c.SkipPadding != nil && !*c.SkipPadding {
		opts = append(opts, riff.WithPadding(false))
	}
	return opts
}

// XDGInterface defines the interface for XDG directory operations
type XDGInterface interface {
	GetConfigPaths(filename string) []string
	GetCachePath(purpose string) string
}

// ConfigManager handles loading, saving, and validating configuration
type ConfigManager struct {
	xdg XDGInterface
	fs  afero.Fs
}

// NewConfigManager creates a configuration manager on the OS filesystem
func NewConfigManager() *ConfigManager {
	return NewConfigManagerWithFilesystem(afero.NewOsFs())
}

// NewConfigManagerWithFilesystem creates a configuration manager reading through fs
func NewConfigManagerWithFilesystem(fs afero.Fs) *ConfigManager {
	slog.Debug("creating new config manager")
	return NewConfigManagerWithDependencies(fs, NewXDGDirs(fs))
}

// NewConfigManagerWithDependencies injects the filesystem and path provider for testing
func NewConfigManagerWithDependencies(fs afero.Fs, xdg XDGInterface) *ConfigManager {
	return &ConfigManager{xdg: xdg, fs: fs}
}

// GetDefaultConfig returns the default configuration
func (cm *ConfigManager) GetDefaultConfig() *Config {
	volume := 1.0
	skipPadding := true

	defaultConfig := &Config{
		Volume:          &volume,
		LogLevel:        "warn",
		AudioBackend:    "auto",
		DuplicatePolicy: "first",
		SkipPadding:     &skipPadding,
		FileLogging: &FileLoggingConfig{
			Enabled:    false,
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		History: GetDefaultHistoryConfig(),
	}

	slog.Debug("generated default config",
		"volume", volume,
		"log_level", defaultConfig.LogLevel,
		"audio_backend", defaultConfig.AudioBackend,
		"duplicate_policy", defaultConfig.DuplicatePolicy)

	return defaultConfig
}

// LoadFromFile loads configuration from a specific file
func (cm *ConfigManager) LoadFromFile(filePath string) (*Config, error) {
	slog.Debug("loading config from file", "file_path", filePath)

	data, err := afero.ReadFile(cm.fs, filePath)
	if err != nil {
		slog.Error("failed to read config file", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Error("failed to parse config JSON", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cm.ValidateConfig(&config); err != nil {
		return nil, err
	}

	slog.Debug("config loaded successfully",
		"file_path", filePath,
		"log_level", config.LogLevel,
		"audio_backend", config.AudioBackend)

	return &config, nil
}

// SaveToFile saves configuration to a specific file
func (cm *ConfigManager) SaveToFile(config *Config, filePath string) error {
	slog.Debug("saving config to file", "file_path", filePath)

	if err := cm.ValidateConfig(config); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	dir := filepath.Dir(filePath)
	if err := cm.fs.MkdirAll(dir, 0755); err != nil {
		slog.Error("failed to create config directory", "directory", dir, "error", err)
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(cm.fs, filePath, data, 0644); err != nil {
		slog.Error("failed to write config file", "file_path", filePath, "error", err)
		return fmt.Errorf("failed to write config file: %w", err)
	}

	slog.Info("config saved successfully", "file_path", filePath)
	return nil
}

// LoadConfig loads the first config file found on the XDG search path,
// merged over the defaults. No file means defaults.
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	configPaths := cm.xdg.GetConfigPaths("config.json")
	slog.Debug("searching for config file", "paths", configPaths)

	for i, configPath := range configPaths {
		exists, err := afero.Exists(cm.fs, configPath)
		if err != nil || !exists {
			slog.Debug("config file not found", "path_index", i, "path", configPath)
			continue
		}

		slog.Debug("found config file", "path", configPath)
		fileConfig, err := cm.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		return cm.MergeConfigs(cm.GetDefaultConfig(), fileConfig), nil
	}

	slog.Debug("no config file found, using defaults")
	return cm.GetDefaultConfig(), nil
}

// ValidateConfig validates configuration values
func (cm *ConfigManager) ValidateConfig(config *Config) error {
	var problems []string

	if config.Volume != nil && (*config.Volume < 0.0 || *config.Volume > 1.0) {
		problems = append(problems, fmt.Sprintf("volume must be between 0.0 and 1.0, got %f", *config.Volume))
	}

	check := func(field, value string, valid []string) {
		if value != "" && !slices.Contains(valid, value) {
			problems = append(problems, fmt.Sprintf("invalid %s '%s', must be one of: %s",
				field, value, strings.Join(valid, ", ")))
		}
	}
	check("log level", config.LogLevel, ValidLogLevels)
	check("audio backend", config.AudioBackend, ValidAudioBackends)
	check("duplicate policy", config.DuplicatePolicy, ValidDuplicatePolicies)

	if fl := config.FileLogging; fl != nil {
		if fl.MaxSizeMB < 0 {
			problems = append(problems, fmt.Sprintf("file logging max_size_mb must be >= 0, got %d", fl.MaxSizeMB))
		}
		if fl.MaxBackups < 0 {
			problems = append(problems, fmt.Sprintf("file logging max_backups must be >= 0, got %d", fl.MaxBackups))
		}
		if fl.MaxAgeDays < 0 {
			problems = append(problems, fmt.Sprintf("file logging max_age_days must be >= 0, got %d", fl.MaxAgeDays))
		}
	}

	if len(problems) > 0 {
		errMsg := strings.Join(problems, "; ")
		slog.Error("config validation failed", "errors", errMsg)
		return fmt.Errorf("%w: %s", ErrInvalidConfig, errMsg)
	}

	slog.Debug("config validation passed")
	return nil
}

// MergeConfigs merges two configurations, with set fields of override taking precedence
func (cm *ConfigManager) MergeConfigs(base, override *Config) *Config {
	merged := *base

	if override.Volume != nil {
		merged.Volume = override.Volume
	}
	if override.LogLevel != "" {
		merged.LogLevel = override.LogLevel
	}
	if override.AudioBackend != "" {
		merged.AudioBackend = override.AudioBackend
	}
	if override.DuplicatePolicy != "" {
		merged.DuplicatePolicy = override.DuplicatePolicy
	}
	if override.SkipPadding != nil {
		merged.SkipPadding = override.SkipPadding
	}
	if override.FileLogging != nil {
		merged.FileLogging = override.FileLogging
	}
	if override.History != nil {
		merged.History = override.History
	}

	slog.Debug("configurations merged",
		"volume", merged.VolumeOrDefault(),
		"log_level", merged.LogLevel,
		"audio_backend", merged.AudioBackend,
		"duplicate_policy", merged.DuplicatePolicy)
	return &merged
}

// ApplyEnvironmentOverrides applies RIFFLE_* environment variables to a copy of config.
// Invalid values are logged and ignored.
func (cm *ConfigManager) ApplyEnvironmentOverrides(config *Config) *Config {
	result := *config

	if volStr := os.Getenv("RIFFLE_VOLUME"); volStr != "" {
		if vol, err := strconv.ParseFloat(volStr, 64); err == nil && vol >= 0 && vol <= 1 {
			result.Volume = &vol
			slog.Debug("applied volume override from environment", "value", vol)
		} else {
			slog.Warn("invalid RIFFLE_VOLUME environment variable", "value", volStr)
		}
	}

	if logLevel := strings.ToLower(os.Getenv("RIFFLE_LOG_LEVEL")); logLevel != "" {
		if slices.Contains(ValidLogLevels, logLevel) {
			result.LogLevel = logLevel
			slog.Debug("applied log level override from environment", "value", logLevel)
		} else {
			slog.Warn("invalid RIFFLE_LOG_LEVEL environment variable", "value", logLevel)
		}
	}

	if backend := os.Getenv("RIFFLE_AUDIO_BACKEND"); backend != "" {
		if slices.Contains(ValidAudioBackends, backend) {
			result.AudioBackend = backend
			slog.Debug("applied audio backend override from environment", "value", backend)
		} else {
			slog.Warn("invalid RIFFLE_AUDIO_BACKEND environment variable", "value", backend)
		}
	}

	if policy := os.Getenv("RIFFLE_DUPLICATE_POLICY"); policy != "" {
		if slices.Contains(ValidDuplicatePolicies, policy) {
			result.DuplicatePolicy = policy
			slog.Debug("applied duplicate policy override from environment", "value", policy)
		} else {
			slog.Warn("invalid RIFFLE_DUPLICATE_POLICY environment variable", "value", policy)
		}
	}

	if result.History != nil {
		result.History = ApplyHistoryEnvironmentOverrides(result.History)
	}

	return &result
}

// ParseLogLevel converts a config log level to a slog.Level
func ParseLogLevel(logLevel string) (slog.Level, error) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("%w: log level '%s', must be one of: %s",
			ErrInvalidConfig, logLevel, strings.Join(ValidLogLevels, ", "))
	}
}

// ResolveLogFilePath resolves the log file path using the XDG cache directory when filename is empty
func (cm *ConfigManager) ResolveLogFilePath(filename string) string {
	if filename != "" {
		return filename
	}
	return filepath.Join(cm.xdg.GetCachePath("logs"), "riffle.log")
}

// ResolveHistoryPath resolves the history database path using the XDG cache directory when path is empty
func (cm *ConfigManager) ResolveHistoryPath(path string) string {
	if path != "" {
		return path
	}
	return filepath.Join(cm.xdg.GetCachePath(""), "history.db")
}
