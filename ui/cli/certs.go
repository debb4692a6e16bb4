// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/repleo/bounca/internal/forms"
	"github.com/repleo/bounca/internal/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	revokedStyle = lipgloss.NewStyle().Strikethrough(true).Faint(true)
)

func renderPage(page model.CatalogPage) {
	if !page.Loaded {
		fmt.Println("(not yet loaded)")
		return
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-6s %-4s %-30s %-24s %-12s", "ID", "TYPE", "NAME", "COMMON NAME", "EXPIRES")))
	for _, item := range page.Items {
		line := fmt.Sprintf("%-6d %-4s %-30s %-24s %-12s",
			item.ID, item.Type, item.Name, item.CommonName, item.ExpiresAt.Format("2006-01-02"))
		if item.Revoked {
			line = revokedStyle.Render(line)
		}
		fmt.Println(line)
	}
	fmt.Printf("page %d, %d of %d certificates\n", page.Page, len(page.Items), page.TotalCount)
}

// applyScopeFlags moves the synchronizer to the requested scope, search and
// page in one fetch.
func applyScopeFlags(ctx context.Context, parent int, search string, page int) error {
	scope := model.RootScope()
	if parent > 0 {
		scope = model.ChildrenScope(parent)
	}
	return catSync.SetView(ctx, scope, search, page)
}

func newListCmd() *cobra.Command {
	var parent, page int
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List certificates: root authorities by default, or the children of a parent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			if err := applyScopeFlags(ctx, parent, search, page); err != nil {
				return err
			}
			renderPage(catSync.CurrentPage())
			return nil
		},
	}
	cmd.Flags().IntVar(&parent, "parent", 0, "list children of this certificate id")
	cmd.Flags().StringVar(&search, "search", "", "search term")
	cmd.Flags().IntVar(&page, "page", 1, "page number (1-based)")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var parent int
	var search string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the certificate list on screen, refreshed on the poll interval.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			events, unsubscribe := catSync.Subscribe()
			defer unsubscribe()

			if err := applyScopeFlags(ctx, parent, search, 1); err != nil {
				return err
			}
			renderPage(catSync.CurrentPage())

			stop := catSync.StartPolling(ctx)
			defer stop()

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(interrupt)

			for {
				select {
				case <-interrupt:
					fmt.Println("watch stopped")
					return nil
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					if ev.Err != nil {
						var expired *model.SessionExpiredError
						if errors.As(ev.Err, &expired) {
							return ev.Err
						}
						fmt.Fprintf(os.Stderr, "refresh failed, showing last good page: %v\n", ev.Err)
						continue
					}
					renderPage(ev.Page)
				}
			}
		},
	}
	cmd.Flags().IntVar(&parent, "parent", 0, "watch children of this certificate id")
	cmd.Flags().StringVar(&search, "search", "", "search term")
	return cmd
}

func newCreateCmd() *cobra.Command {
	form := &forms.CertificateForm{}
	var certType string
	var parent int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a certificate (root, intermediate, server or client).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			form.Type = model.CertificateType(certType)
			if parent > 0 {
				form.Parent = &parent
			}
			if form.PassphraseOut != "" && form.PassphraseOutConfirmation == "" {
				form.PassphraseOutConfirmation = form.PassphraseOut
			}

			ctx, cancel := cmdContext()
			defer cancel()

			if err := submitter.Create(ctx, form); err != nil {
				var validation *model.SubmissionValidationError
				if errors.As(err, &validation) {
					fmt.Fprintln(os.Stderr, "Certificate rejected:")
					printFieldErrors(form.Errors)
				}
				return err
			}
			fmt.Printf("Certificate %q submitted.\n", form.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "certificate name")
	cmd.Flags().StringVar(&certType, "type", "S", "certificate type: R, I, S, C or O")
	cmd.Flags().IntVar(&parent, "parent", 0, "issuing certificate id")
	cmd.Flags().StringVar(&form.CommonName, "cn", "", "subject common name")
	cmd.Flags().StringVar(&form.CountryName, "country", "", "subject country code")
	cmd.Flags().StringVar(&form.StateOrProvinceName, "state", "", "subject state or province")
	cmd.Flags().StringVar(&form.LocalityName, "locality", "", "subject locality")
	cmd.Flags().StringVar(&form.OrganizationName, "org", "", "subject organization")
	cmd.Flags().StringVar(&form.OrganizationalUnitName, "org-unit", "", "subject organizational unit")
	cmd.Flags().StringVar(&form.EmailAddress, "subject-email", "", "subject email address")
	cmd.Flags().StringVar(&form.SubjectAltNames, "alt-names", "", "comma-separated subject alternative names")
	cmd.Flags().StringVar(&form.ExpiresAt, "expires", "", "expiry date (YYYY-MM-DD, server default when omitted)")
	cmd.Flags().StringVar(&form.PassphraseIssuer, "issuer-passphrase", "", "passphrase of the issuing key")
	cmd.Flags().StringVar(&form.PassphraseOut, "passphrase", "", "passphrase for the new key")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("cn")
	return cmd
}

func newRevokeCmd() *cobra.Command {
	var passphrase string
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a certificate. Revocation cascades to children server-side.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if passphrase == "" {
				passphrase, err = promptPassword("Issuer passphrase: ")
				if err != nil {
					return err
				}
			}

			ctx, cancel := cmdContext()
			defer cancel()

			form := &forms.RevokeForm{CertificateID: id, PassphraseIssuer: passphrase}
			if err := submitter.Revoke(ctx, form); err != nil {
				var validation *model.SubmissionValidationError
				if errors.As(err, &validation) {
					fmt.Fprintln(os.Stderr, "Revocation rejected:")
					printFieldErrors(form.Errors)
				}
				return err
			}
			fmt.Printf("Certificate %d revoked.\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&passphrase, "issuer-passphrase", "", "passphrase of the issuing key (prompted when omitted)")
	return cmd
}

func newCRLCmd() *cobra.Command {
	var passphrase string
	cmd := &cobra.Command{
		Use:   "crl <id>",
		Short: "Regenerate the certificate revocation list of an authority.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if passphrase == "" {
				passphrase, err = promptPassword("Issuer passphrase: ")
				if err != nil {
					return err
				}
			}

			ctx, cancel := cmdContext()
			defer cancel()

			form := &forms.CRLForm{CertificateID: id, PassphraseIssuer: passphrase}
			if err := submitter.RegenerateCRL(ctx, form); err != nil {
				var validation *model.SubmissionValidationError
				if errors.As(err, &validation) {
					fmt.Fprintln(os.Stderr, "CRL regeneration rejected:")
					printFieldErrors(form.Errors)
				}
				return err
			}
			fmt.Printf("CRL for certificate %d regenerated.\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&passphrase, "issuer-passphrase", "", "passphrase of the issuing key (prompted when omitted)")
	return cmd
}

func newDownloadCmd() *cobra.Command {
	var outDir string
	var toClipboard, crl bool
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download the certificate bundle (or CRL) of a certificate.",
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

			download := apiClient.DownloadCertificate
			if crl {
				download = apiClient.DownloadCRL
			}
			file, err := download(ctx, id)
			if err != nil {
				return err
			}

			if toClipboard {
				if err := clipboard.WriteAll(string(file.Data)); err != nil {
					return fmt.Errorf("could not copy to clipboard: %w", err)
				}
				fmt.Printf("%s copied to clipboard.\n", file.Filename)
				return nil
			}

			target := filepath.Join(outDir, file.Filename)
			if err := os.WriteFile(target, file.Data, 0644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s (%d bytes).\n", target, len(file.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&toClipboard, "clipboard", false, "copy to the clipboard instead of writing a file")
	cmd.Flags().BoolVar(&crl, "crl", false, "download the CRL instead of the certificate bundle")
	return cmd
}

func newExportCmd() *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a zstd-compressed JSON snapshot of the whole catalog.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			var all []model.CertificateSummary
			query := model.CatalogQuery{Scope: model.RootScope(), Page: 1}
			// Walk the root catalog page by page; child scopes are reachable
			// through the parent ids in the snapshot.
			for {
				list, err := apiClient.ListCertificates(ctx, query)
				if err != nil {
					return err
				}
				all = append(all, list.Items...)
				if len(all) >= list.Count || len(list.Items) == 0 {
					break
				}
				query.Page++
			}

			f, err := os.Create(outFile)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			zw, err := zstd.NewWriter(f)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(zw)
			enc.SetIndent("", "  ")
			if err := enc.Encode(all); err != nil {
				_ = zw.Close()
				return err
			}
			if err := zw.Close(); err != nil {
				return err
			}
			fmt.Printf("Exported %d certificates to %s.\n", len(all), outFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "bounca-catalog.json.zst", "output file")
	return cmd
}

func newJournalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "journal",
		Short: "Show the local journal of submitted mutations.",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := appStore.JournalEntries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No mutations recorded.")
				return nil
			}
			fmt.Println(headerStyle.Render(fmt.Sprintf("%-20s %-16s %s", "WHEN", "ACTION", "SUBJECT")))
			for _, e := range entries {
				fmt.Printf("%-20s %-16s %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Subject)
			}
			return nil
		},
	}
}

func parseID(s string) (int, error) {
	var id int
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid certificate id %q", s)
	}
	return id, nil
}
