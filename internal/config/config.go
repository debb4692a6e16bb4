// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads the console client configuration from yaml files,
// environment variables and CLI flags, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the persisted client configuration.
type Config struct {
	// Server is the BounCA base URL, e.g. https://ca.example.com.
	Server string `mapstructure:"server" yaml:"server"`
	// PollSeconds is the catalog refresh interval for watch mode.
	PollSeconds int      `mapstructure:"poll_seconds" yaml:"poll_seconds"`
	Database    Database `mapstructure:"database" yaml:"database"`
	Verbose     bool     `mapstructure:"verbose" yaml:"verbose"`
}

// Database selects the local state backend.
type Database struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "BounCA")
		default: // Linux, macOS, etc.
			configDir = "/etc/bounca"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "bounca")
	}

	return filepath.Join(configDir, "bounca.yaml"), nil
}

// LoadConfig builds the configuration from defaults, config files, the
// BOUNCA_* environment and the command's flags, in that order of
// precedence. A missing config file surfaces as
// viper.ConfigFileNotFoundError so callers can write a default one.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitConfigPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("bounca")
	v.SetConfigType("yaml")

	// An explicit --config path has the highest precedence for
	// file-based configuration.
	if explicitConfigPath != nil {
		v.SetConfigFile(*explicitConfigPath)
	}

	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	var notFound error
	if err := v.ReadInConfig(); err != nil {
		// A missing file is expected on first run; other errors are fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
		// Defaults, env and flags still apply; report the miss so the
		// caller can write a default file.
		notFound = err
	}

	if err := bindAndUnmarshal(v, cmd, &c); err != nil {
		return c, err
	}
	return c, notFound
}

func bindAndUnmarshal[T any](v *viper.Viper, cmd *cobra.Command, c *T) error {
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("bounca")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return v.Unmarshal(c)
}

// WriteConfigFile persists the configuration as yaml at the standard path.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600 because the local DSN may contain credentials.
	return os.WriteFile(path, data, 0600)
}
