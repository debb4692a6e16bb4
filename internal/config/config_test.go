// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/repleo/bounca/internal/config"
)

func defaults() map[string]any {
	return map[string]any{
		"server":        "http://localhost:8000",
		"poll_seconds":  60,
		"database.type": "sqlite",
		"database.dsn":  "./bounca-console.db",
	}
}

func TestLoadConfig_MissingFileReturnsDefaultsAndNotFound(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	// Keep the working-directory candidate from picking up a real file.
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, defaults(), nil)
	if err == nil {
		t.Fatalf("expected ConfigFileNotFoundError, got nil")
	}
	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ConfigFileNotFoundError, got: %T %v", err, err)
	}

	// Defaults must still be applied so first runs work out of the box.
	if got.Server != "http://localhost:8000" {
		t.Fatalf("default server not applied: %q", got.Server)
	}
	if got.PollSeconds != 60 {
		t.Fatalf("default poll_seconds not applied: %d", got.PollSeconds)
	}
	if got.Database.Type != "sqlite" {
		t.Fatalf("default database.type not applied: %q", got.Database.Type)
	}
}

func TestLoadConfig_ReadsExplicitFile(t *testing.T) {
	tmp := t.TempDir()
	yaml := "server: https://ca.example.com\npoll_seconds: 30\ndatabase:\n  type: postgres\n  dsn: postgresql://user@/bounca\n"
	file := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Server != "https://ca.example.com" {
		t.Fatalf("expected server from file, got %q", got.Server)
	}
	if got.PollSeconds != 30 {
		t.Fatalf("expected poll_seconds 30, got %d", got.PollSeconds)
	}
	if got.Database.Type != "postgres" {
		t.Fatalf("expected postgres, got %q", got.Database.Type)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	tmp := t.TempDir()
	yaml := "server: https://file.example.com\n"
	file := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cmd := &cobra.Command{}
	cmd.Flags().String("server", "", "")
	if err := cmd.Flags().Set("server", "https://flag.example.com"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](cmd, defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Server != "https://flag.example.com" {
		t.Fatalf("flag must win over file, got %q", got.Server)
	}
}

func TestWriteConfigFile_CreatesFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	c := cfg.Config{Server: "https://ca.example.com", PollSeconds: 60}
	c.Database.Type = "sqlite"
	c.Database.Dsn = "./bounca-console.db"

	if err := cfg.WriteConfigFile(&c, false); err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}

	path, err := cfg.GetConfigPath(false)
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected config file at %s: %v", path, err)
	}
	if !strings.Contains(string(data), "ca.example.com") {
		t.Fatalf("written config missing server value:\n%s", data)
	}
}

func TestGetConfigPath_UserPath(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	path, err := cfg.GetConfigPath(false)
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	want := filepath.Join(tmp, "bounca", "bounca.yaml")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
}
