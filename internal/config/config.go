// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the optional YAML configuration file. Every setting
// has a built-in default; the file and environment only override.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Default comparison settings
	Defaults struct {
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
		SequenceLength      int     `yaml:"sequence_length"`
		ProcessingMode      string  `yaml:"processing_mode"`
		ContentFilter       string  `yaml:"content_filter"`
		MaxMatches          int     `yaml:"max_matches"`
		ContextChars        int     `yaml:"context_chars"`
		MinLineLength       int     `yaml:"min_line_length"`
		Format              string  `yaml:"format"`
		NoColor             bool    `yaml:"no_color"`
		Debug               bool    `yaml:"debug"`
	} `yaml:"defaults"`

	// Server settings for web mode
	Server struct {
		Port            int    `yaml:"port"`
		UploadDir       string `yaml:"upload_dir"`
		MaxUploadMB     int64  `yaml:"max_upload_mb"`
		Workers         int    `yaml:"workers"`
		QueueSize       int    `yaml:"queue_size"`
		RetentionMins   int    `yaml:"retention_minutes"`
		ShutdownTimeout int    `yaml:"shutdown_timeout_seconds"`
	} `yaml:"server"`
}

// LoadConfig reads the configuration file at configPath, starting from the
// built-in defaults. An empty path returns the defaults unchanged.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	config.Defaults.SimilarityThreshold = 0.75
	config.Defaults.SequenceLength = 8
	config.Defaults.ProcessingMode = "standard"
	config.Defaults.ContentFilter = "main_content_only"
	config.Defaults.MaxMatches = 1000
	config.Defaults.ContextChars = 100
	config.Defaults.MinLineLength = 10
	config.Defaults.Format = "text"

	config.Server.Port = 8000
	config.Server.UploadDir = filepath.Join(os.TempDir(), "twinscan-uploads")
	config.Server.MaxUploadMB = 100
	config.Server.Workers = defaultWorkers()
	config.Server.QueueSize = 256
	config.Server.RetentionMins = 60
	config.Server.ShutdownTimeout = 10

	if configPath == "" {
		applyEnvOverrides(config)
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	applyEnvOverrides(config)
	return config, nil
}

// LoadConfigOrDefault loads the config file, falling back to defaults when
// the file is missing or invalid.
func LoadConfigOrDefault(configPath string) *Config {
	config, err := LoadConfig(configPath)
	if err != nil {
		config, _ = LoadConfig("")
	}
	return config
}

// FindConfigFile looks for a configuration file in the conventional places.
// Returns the empty string when none exists.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"twinscan.yaml",
		"twinscan.yml",
		".twinscan.yaml",
		".twinscan.yml",
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		c := filepath.Join(home, ".twinscan", "config.yaml")
		if fileExists(c) {
			return c
		}
	}
	return ""
}

// applyEnvOverrides layers TWINSCAN_* environment variables on top of the
// file. godotenv loading in main makes .env files visible here too.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TWINSCAN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("TWINSCAN_UPLOAD_DIR"); v != "" {
		config.Server.UploadDir = v
	}
	if v := os.Getenv("TWINSCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Server.Workers = n
		}
	}
	if v := os.Getenv("TWINSCAN_MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			config.Server.MaxUploadMB = n
		}
	}
	if v := os.Getenv("TWINSCAN_DEBUG"); v == "1" || v == "true" {
		config.Defaults.Debug = true
	}
}

func defaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n > 4 {
		n = 4
	}
	if n < 1 {
		n = 1
	}
	return n
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
