// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/repleo/bounca/internal/api"
	"github.com/repleo/bounca/internal/model"
)

// promptPassword reads a password without echo, falling back to a plain
// line read when stdin is not a terminal (tests, pipes).
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", err
	}
	return line, nil
}

func printFieldErrors(fields model.FieldErrors) {
	for field, msgs := range fields {
		if field == model.NonFieldKey {
			fmt.Fprintf(os.Stderr, "  %s\n", strings.Join(msgs, "; "))
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s: %s\n", field, strings.Join(msgs, "; "))
	}
}

func newLoginCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the BounCA server and store the session token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" && email == "" {
				return errors.New("provide --username or --email")
			}
			if password == "" {
				var err error
				password, err = promptPassword("Password: ")
				if err != nil {
					return err
				}
			}

			ctx, cancel := cmdContext()
			defer cancel()

			_, err := sessionMgr.Login(ctx, api.Credentials{
				Username: username,
				Email:    email,
				Password: password,
			})
			if err != nil {
				var authErr *model.AuthenticationError
				if errors.As(err, &authErr) {
					fmt.Fprintln(os.Stderr, "Login rejected:")
					printFieldErrors(authErr.Fields)
				}
				return err
			}
			fmt.Println("Logged in.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session. Local state is cleared even if the server is unreachable.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext()
			defer cancel()
			sessionMgr.Logout(ctx)
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a BounCA account and log in.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || email == "" {
				return errors.New("provide --username and --email")
			}
			if password == "" {
				var err error
				password, err = promptPassword("Password: ")
				if err != nil {
					return err
				}
				confirm, err := promptPassword("Repeat password: ")
				if err != nil {
					return err
				}
				if confirm != password {
					return errors.New("passwords do not match")
				}
			}

			ctx, cancel := cmdContext()
			defer cancel()

			_, err := sessionMgr.Register(ctx, api.Registration{
				Username:  username,
				Email:     email,
				Password1: password,
				Password2: password,
			})
			if err != nil {
				var authErr *model.AuthenticationError
				if errors.As(err, &authErr) {
					fmt.Fprintln(os.Stderr, "Registration rejected:")
					printFieldErrors(authErr.Fields)
				}
				return err
			}
			fmt.Println("Account created; check your mail to verify the address.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			account, err := apiClient.GetAccount(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s <%s> (session %s)\n", account.Username, account.Email, sessionMgr.Status())
			return nil
		},
	}
}

func newPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Password maintenance.",
	}

	var resetEmail string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Request a password reset email.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resetEmail == "" {
				return errors.New("provide --email")
			}
			ctx, cancel := cmdContext()
			defer cancel()
			if err := sessionMgr.PasswordReset(ctx, resetEmail); err != nil {
				return err
			}
			fmt.Println("Reset email requested.")
			return nil
		},
	}
	reset.Flags().StringVarP(&resetEmail, "email", "e", "", "account email address")

	change := &cobra.Command{
		Use:   "change",
		Short: "Change the password of the logged-in account.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			oldPassword, err := promptPassword("Current password: ")
			if err != nil {
				return err
			}
			newPassword, err := promptPassword("New password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Repeat new password: ")
			if err != nil {
				return err
			}
			if confirm != newPassword {
				return errors.New("passwords do not match")
			}

			ctx, cancel := cmdContext()
			defer cancel()
			err = sessionMgr.ChangePassword(ctx, api.PasswordChange{
				OldPassword:  oldPassword,
				NewPassword1: newPassword,
				NewPassword2: newPassword,
			})
			if err != nil {
				var authErr *model.AuthenticationError
				if errors.As(err, &authErr) {
					fmt.Fprintln(os.Stderr, "Change rejected:")
					printFieldErrors(authErr.Fields)
				}
				return err
			}
			fmt.Println("Password changed.")
			return nil
		},
	}

	cmd.AddCommand(reset, change)
	return cmd
}
