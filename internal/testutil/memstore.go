// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package testutil

import (
	"errors"
	"sync"
	"time"

	"github.com/repleo/bounca/internal/model"
)

// MemStore is an in-memory store.Store used by tests to avoid touching a
// real database file.
type MemStore struct {
	mu      sync.Mutex
	token   []byte
	secret  []byte
	journal []model.JournalEntry

	// FailSave, when set, makes SaveToken return an error.
	FailSave bool
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) SaveToken(sealed []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave {
		return errors.New("save disabled")
	}
	m.token = append([]byte(nil), sealed...)
	return nil
}

func (m *MemStore) LoadToken() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil {
		return nil, nil
	}
	return append([]byte(nil), m.token...), nil
}

func (m *MemStore) ClearToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	return nil
}

func (m *MemStore) InstallSecret() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.secret == nil {
		m.secret = []byte("0123456789abcdef0123456789abcdef")
	}
	return m.secret, nil
}

func (m *MemStore) AppendJournal(action, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = append(m.journal, model.JournalEntry{
		ID:        len(m.journal) + 1,
		Action:    action,
		Subject:   subject,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *MemStore) JournalEntries() ([]model.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.JournalEntry, len(m.journal))
	copy(out, m.journal)
	return out, nil
}

func (m *MemStore) Close() error { return nil }

// HasToken reports whether a token is currently persisted.
func (m *MemStore) HasToken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != nil
}
