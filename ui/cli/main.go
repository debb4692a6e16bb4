// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for the BounCA console client
// using the Cobra library. It defines the root command, the session and
// catalog subcommands, and wires the core services together.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/repleo/bounca/internal/api"
	"github.com/repleo/bounca/internal/catalog"
	"github.com/repleo/bounca/internal/config"
	"github.com/repleo/bounca/internal/forms"
	"github.com/repleo/bounca/internal/logging"
	"github.com/repleo/bounca/internal/session"
	"github.com/repleo/bounca/internal/store"
)

var version = "dev" // set by the linker

var (
	cfgFile string
	verbose bool

	appConfig config.Config

	appStore   store.Store
	apiClient  *api.Client
	sessionMgr *session.Manager
	catSync    *catalog.Synchronizer
	submitter  *forms.Submitter
)

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	explicitConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	defaults := map[string]any{
		"server":        "http://localhost:8000",
		"poll_seconds":  60,
		"database.type": "sqlite",
		"database.dsn":  "./bounca-console.db",
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, defaults, explicitConfigPath)
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		// First run, or the config file was deleted. Create a default one.
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			log.Warnf("Warning: could not write default config file: %v", writeErr)
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if verbose || appConfig.Verbose {
		logging.SetDebug(true)
	}

	appStore, err = store.New(appConfig.Database.Type, appConfig.Database.Dsn)
	if err != nil {
		return fmt.Errorf("error opening local state store: %w", err)
	}

	mailbox := session.NewTokenMailbox()
	apiClient = api.New(appConfig.Server, mailbox)
	sessionMgr = session.NewManager(apiClient, appStore, mailbox)
	sessionMgr.Initialize()

	catSync = catalog.New(apiClient, time.Duration(appConfig.PollSeconds)*time.Second)
	submitter = forms.NewSubmitter(apiClient, appStore)
	submitter.OnChanged = catSync.NotifyChanged

	return nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// requireLogin guards catalog and profile commands.
func requireLogin() error {
	if !sessionMgr.LoggedIn() {
		return errors.New("not logged in; run 'bounca-console login' first")
	}
	return nil
}

// cmdContext returns the context for a single CLI invocation.
func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

// NewRootCmd creates and configures a new root cobra command. Used for the
// main application and for fresh instances in tests.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bounca-console",
		Short: "bounca-console is a terminal client for a BounCA certificate authority.",
		Long: `bounca-console talks to the BounCA REST API.
It manages your session, keeps a synchronized view of the certificate
catalog (root, intermediate and leaf certificates), and submits create,
revoke and CRL actions. Local state lives in a small database next to
your config.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupDefaultServices(cmd, args)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appStore != nil {
				return appStore.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default bounca.yaml in the user config dir)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().String("server", "", "BounCA base URL (overrides config)")
	cmd.PersistentFlags().String("database.type", "", "local state database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("database.dsn", "", "local state database DSN")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newPasswordCmd())
	cmd.AddCommand(newTokensCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newRevokeCmd())
	cmd.AddCommand(newCRLCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newJournalCmd())

	return cmd
}

// Execute runs the CLI entrypoint. The root main package calls this and
// handles process exit.
func Execute() error {
	return NewRootCmd().Execute()
}
