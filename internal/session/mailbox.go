// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package session

import "sync"

// TokenMailbox is a concurrency-safe holder for the one process-wide bearer
// token. The Manager is its only writer; the API client and anything else
// issuing requests read through the api.TokenSource interface it satisfies.
type TokenMailbox struct {
	mu    sync.RWMutex
	token string
}

// NewTokenMailbox returns an empty mailbox.
func NewTokenMailbox() *TokenMailbox {
	return &TokenMailbox{}
}

// Token returns the current bearer token, or "" when unauthenticated.
func (b *TokenMailbox) Token() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

func (b *TokenMailbox) set(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}
