// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "time"

// JournalEntry records a mutation this client submitted (create, revoke,
// CRL regeneration). It is a local audit trail only; the server remains the
// source of truth for certificate state.
type JournalEntry struct {
	ID        int
	Action    string
	Subject   string
	CreatedAt time.Time
}
