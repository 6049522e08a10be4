package config

import (
	"log/slog"
	"os"
	"strconv"
)

// HistoryConfig controls the decode/playback history database
type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"` // empty = XDG cache path
}

// GetDefaultHistoryConfig returns the default history configuration
func GetDefaultHistoryConfig() *HistoryConfig {
	return &HistoryConfig{Enabled: false}
}

// ApplyHistoryEnvironmentOverrides applies RIFFLE_HISTORY to a copy of config
func ApplyHistoryEnvironmentOverrides(config *HistoryConfig) *HistoryConfig {
	result := *config

	if historyStr := os.Getenv("RIFFLE_HISTORY"); historyStr != "" {
		if enabled, err := strconv.ParseBool(historyStr); err == nil {
			result.Enabled = enabled
			slog.Debug("applied history override from environment", "value", enabled)
		} else {
			slog.Warn("invalid RIFFLE_HISTORY environment variable", "value", historyStr, "error", err)
		}
	}

	return &result
}
