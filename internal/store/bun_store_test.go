// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package store_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/repleo/bounca/internal/store"
)

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "state.db")
	s, err := store.New("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNew_RejectsUnknownBackend(t *testing.T) {
	if _, err := store.New("oracle", "whatever"); err == nil {
		t.Fatalf("expected error for unsupported database type")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)

	got, err := s.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken on empty store: %v", err)
	}
	if got != nil {
		t.Fatalf("empty store must return nil token, got %v", got)
	}

	sealed := []byte("sealed-token-blob")
	if err := s.SaveToken(sealed); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	got, err = s.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if !bytes.Equal(got, sealed) {
		t.Fatalf("LoadToken = %q, want %q", got, sealed)
	}

	// A second save must overwrite, not accumulate rows.
	sealed2 := []byte("rotated-token-blob")
	if err := s.SaveToken(sealed2); err != nil {
		t.Fatalf("second SaveToken: %v", err)
	}
	got, err = s.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken after overwrite: %v", err)
	}
	if !bytes.Equal(got, sealed2) {
		t.Fatalf("LoadToken = %q, want %q", got, sealed2)
	}

	if err := s.ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	got, err = s.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken after clear: %v", err)
	}
	if got != nil {
		t.Fatalf("cleared store must return nil token, got %v", got)
	}
}

func TestClearToken_EmptyStoreIsNoop(t *testing.T) {
	s := newSQLiteStore(t)
	if err := s.ClearToken(); err != nil {
		t.Fatalf("ClearToken on empty store: %v", err)
	}
}

func TestInstallSecret_StableAcrossCalls(t *testing.T) {
	s := newSQLiteStore(t)

	first, err := s.InstallSecret()
	if err != nil {
		t.Fatalf("InstallSecret: %v", err)
	}
	if len(first) != 32 {
		t.Fatalf("secret length = %d, want 32", len(first))
	}

	second, err := s.InstallSecret()
	if err != nil {
		t.Fatalf("second InstallSecret: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("install secret must be stable across calls")
	}
}

func TestJournal_NewestFirst(t *testing.T) {
	s := newSQLiteStore(t)

	entries, err := s.JournalEntries()
	if err != nil {
		t.Fatalf("JournalEntries on empty store: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty journal, got %d entries", len(entries))
	}

	for _, e := range []struct{ action, subject string }{
		{"create", "root-ca"},
		{"revoke", "web-server"},
		{"crl", "intermediate-ca"},
	} {
		if err := s.AppendJournal(e.action, e.subject); err != nil {
			t.Fatalf("AppendJournal(%s): %v", e.action, err)
		}
	}

	entries, err = s.JournalEntries()
	if err != nil {
		t.Fatalf("JournalEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Action != "crl" || entries[2].Action != "create" {
		t.Fatalf("entries not newest-first: %+v", entries)
	}
	if entries[0].ID <= entries[1].ID || entries[1].ID <= entries[2].ID {
		t.Fatalf("ids not descending: %d %d %d", entries[0].ID, entries[1].ID, entries[2].ID)
	}
	if entries[1].Subject != "web-server" {
		t.Fatalf("subject = %q, want web-server", entries[1].Subject)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Fatalf("created_at not populated")
	}
}
