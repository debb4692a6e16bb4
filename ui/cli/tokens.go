// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repleo/bounca/internal/model"
)

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Manage long-lived app tokens for API automation.",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the account's app tokens.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			tokens, err := apiClient.ListAppTokens(ctx)
			if err != nil {
				return err
			}
			if len(tokens) == 0 {
				fmt.Println("No app tokens.")
				return nil
			}
			fmt.Println(headerStyle.Render(fmt.Sprintf("%-6s %-30s %s", "ID", "NAME", "TOKEN")))
			for _, tok := range tokens {
				fmt.Printf("%-6d %-30s %s\n", tok.ID, tok.Name, tok.Token)
			}
			return nil
		},
	}

	var createName string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a named app token. The name must be unique per account.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			if createName == "" {
				return errors.New("provide --name")
			}
			ctx, cancel := cmdContext()
			defer cancel()

			tok, err := apiClient.CreateAppToken(ctx, createName)
			if err != nil {
				var validation *model.SubmissionValidationError
				if errors.As(err, &validation) {
					fmt.Fprintln(os.Stderr, "Token rejected:")
					printFieldErrors(validation.Fields)
				}
				return err
			}
			fmt.Printf("App token %q created: %s\n", tok.Name, tok.Token)
			return nil
		},
	}
	create.Flags().StringVar(&createName, "name", "", "token name")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Revoke an app token.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			if err := apiClient.DeleteAppToken(ctx, id); err != nil {
				return err
			}
			fmt.Printf("App token %d revoked.\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, create, del)
	return cmd
}
