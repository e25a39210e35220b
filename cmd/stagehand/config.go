package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/metalagman/stagehand/internal/config"
	"github.com/spf13/viper"
)

func loadConfig(repoRoot string) (config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = filepath.Join(".stagehand", "config.json")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := config.ValidateSettings(viper.AllSettings()); err != nil {
		return config.Config{}, err
	}
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Budgets.MaxIterations <= 0 {
		return config.Config{}, fmt.Errorf("budgets.max_iterations must be > 0")
	}
	return cfg, nil
}
