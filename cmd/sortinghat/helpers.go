package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/kestrelfin/sortinghat/internal/learning"
	"github.com/kestrelfin/sortinghat/internal/pattern"
	"github.com/kestrelfin/sortinghat/internal/service"
	"github.com/kestrelfin/sortinghat/internal/storage"
)

// openStorage opens the SQLite store at the configured path.
func openStorage() (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "sortinghat", "sortinghat.db")
	}

	return storage.NewSQLiteStorage(dbPath)
}

// rankConfigFromViper builds the ranking configuration, letting the
// config file override the tuned defaults.
func rankConfigFromViper() pattern.Config {
	config := pattern.DefaultConfig()

	if v := viper.GetInt("ranking.top_n"); v > 0 {
		config.TopN = v
	}
	if v := viper.GetFloat64("ranking.ceiling"); v > 0 {
		config.Ceiling = v
	}
	if v := viper.GetFloat64("ranking.merchant_threshold"); v > 0 {
		config.Thresholds.Merchant = v
	}
	if v := viper.GetFloat64("ranking.keyword_threshold"); v > 0 {
		config.Thresholds.Keyword = v
	}
	if v := viper.GetFloat64("ranking.description_threshold"); v > 0 {
		config.Thresholds.Description = v
	}

	return config
}

// learnConfigFromViper builds the learning configuration.
func learnConfigFromViper() learning.Config {
	config := learning.DefaultConfig()

	if v := viper.GetInt64("learning.synthesis_threshold"); v > 0 {
		config.SynthesisThreshold = v
	}
	if v := viper.GetInt64("learning.min_samples"); v > 0 {
		config.MinSamples = v
	}
	if v := viper.GetFloat64("learning.success_floor"); v > 0 {
		config.SuccessFloor = v
	}
	config.Retry = service.RetryOptions{MaxAttempts: 3}

	return config
}
