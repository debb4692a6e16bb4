// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package store is the local persistence layer for the console client.
// It keeps the sealed session token, the per-install sealing secret and a
// journal of submitted mutations behind a backend-agnostic interface.
package store

import (
	"fmt"

	"github.com/repleo/bounca/internal/model"
)

// Store defines the local persistence operations. Implementations must be
// safe for use from the CLI goroutine plus the catalog poll goroutine.
type Store interface {
	// Session token. LoadToken returns nil when no token is persisted.
	SaveToken(sealed []byte) error
	LoadToken() ([]byte, error)
	ClearToken() error

	// InstallSecret returns the per-install sealing secret, generating and
	// persisting one on first use.
	InstallSecret() ([]byte, error)

	// Mutation journal.
	AppendJournal(action, subject string) error
	JournalEntries() ([]model.JournalEntry, error)

	Close() error
}

// New opens a store for the given backend type and DSN. Supported types are
// sqlite (default), postgres and mysql.
func New(dbType, dsn string) (Store, error) {
	switch dbType {
	case "sqlite", "postgres", "mysql":
		return newBunStore(dbType, dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %q", dbType)
	}
}
