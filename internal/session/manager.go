// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package session owns the authentication state of the console client: the
// bearer token, its sealed persistence, the derived status, and the
// session-changed notifications consumed by the view layer.
package session

import (
	"context"
	"sync"

	"github.com/repleo/bounca/internal/api"
	"github.com/repleo/bounca/internal/logging"
	"github.com/repleo/bounca/internal/model"
	"github.com/repleo/bounca/internal/store"
)

// Snapshot is the state published on every session change.
type Snapshot struct {
	Status   model.SessionStatus
	LoggedIn bool
}

// Manager is the authentication state machine. It is the single writer of
// the shared token mailbox; a token change by any operation is immediately
// visible to every outbound request.
type Manager struct {
	mu      sync.Mutex
	api     *api.Client
	store   store.Store
	mailbox *TokenMailbox
	status  model.SessionStatus

	initialized bool

	subs    map[int]chan Snapshot
	nextSub int
}

// NewManager wires the manager to the API client, the local store and the
// shared token mailbox. It installs the forced-logout hook so any 401/403
// seen by the client triggers local cleanup.
func NewManager(client *api.Client, st store.Store, mailbox *TokenMailbox) *Manager {
	m := &Manager{
		api:     client,
		store:   st,
		mailbox: mailbox,
		status:  model.StatusIdle,
		subs:    make(map[int]chan Snapshot),
	}
	client.OnUnauthorized = m.HandleSessionExpired
	return m
}

// Initialize loads any persisted token without validating it against the
// server; a stale token is treated as authenticated until a request using
// it is rejected. Safe to call repeatedly: it never clears a live in-memory
// token with stale persisted state and emits no event when nothing changed.
func (m *Manager) Initialize() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized || m.mailbox.Token() != "" {
		m.initialized = true
		return
	}
	m.initialized = true

	sealed, err := m.store.LoadToken()
	if err != nil {
		logging.Warnf("session: failed to read persisted token: %v", err)
		return
	}
	if sealed == nil {
		return
	}
	secret, err := m.store.InstallSecret()
	if err != nil {
		logging.Warnf("session: failed to read install secret: %v", err)
		return
	}
	token, err := openToken(secret, sealed)
	if err != nil {
		logging.Warnf("session: discarding unreadable persisted token: %v", err)
		_ = m.store.ClearToken()
		return
	}

	m.mailbox.set(token)
	m.status = model.StatusAuthenticated
	m.notifyLocked()
}

// Login exchanges credentials for a token. On success the token is stored
// in memory and sealed to disk and the status becomes authenticated; on
// failure any token is cleared and the status becomes failed. Both paths
// emit a session-changed snapshot.
func (m *Manager) Login(ctx context.Context, creds api.Credentials) (api.TokenResponse, error) {
	m.setStatus(model.StatusAuthenticating)

	resp, err := m.api.Login(ctx, creds)
	if err != nil {
		m.clearLocal(model.StatusFailed)
		return api.TokenResponse{}, err
	}
	m.adoptToken(resp.Key)
	return resp, nil
}

// Logout invalidates the session. The remote call is best effort; local
// cleanup happens unconditionally and the method never fails.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		logging.Warnf("session: remote logout failed, clearing local state anyway: %v", err)
	}
	m.clearLocal(model.StatusIdle)
}

// Register creates an account. The server issues a token on success, so the
// success path behaves like Login.
func (m *Manager) Register(ctx context.Context, reg api.Registration) (api.TokenResponse, error) {
	m.setStatus(model.StatusAuthenticating)

	resp, err := m.api.Register(ctx, reg)
	if err != nil {
		m.clearLocal(model.StatusFailed)
		return api.TokenResponse{}, err
	}
	m.adoptToken(resp.Key)
	return resp, nil
}

// PasswordReset requests a reset email. Session state is untouched.
func (m *Manager) PasswordReset(ctx context.Context, email string) error {
	return m.api.PasswordReset(ctx, email)
}

// PasswordResetConfirm completes an emailed reset. Session state is untouched.
func (m *Manager) PasswordResetConfirm(ctx context.Context, confirmation api.PasswordResetConfirmation) error {
	return m.api.PasswordResetConfirm(ctx, confirmation)
}

// VerifyEmail confirms a registration. Session state is untouched.
func (m *Manager) VerifyEmail(ctx context.Context, key string) error {
	return m.api.VerifyEmail(ctx, key)
}

// ChangePassword updates the password. When the server rotates the token it
// behaves like the success path of Login; otherwise session state is kept.
func (m *Manager) ChangePassword(ctx context.Context, change api.PasswordChange) error {
	resp, err := m.api.ChangePassword(ctx, change)
	if err != nil {
		return err
	}
	if resp.Key != "" {
		m.adoptToken(resp.Key)
	}
	return nil
}

// HandleSessionExpired performs the local half of logout after the server
// rejected an authenticated request. It never calls the remote logout
// endpoint and emits exactly one session-changed event even when several
// in-flight requests fail at once.
func (m *Manager) HandleSessionExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mailbox.Token() == "" && m.status == model.StatusIdle {
		return
	}
	logging.Infof("session: server rejected credentials, logging out locally")
	m.mailbox.set("")
	if err := m.store.ClearToken(); err != nil {
		logging.Warnf("session: failed to clear persisted token: %v", err)
	}
	m.status = model.StatusIdle
	m.notifyLocked()
}

// Status returns the current session status.
func (m *Manager) Status() model.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LoggedIn reports whether a bearer token is present.
func (m *Manager) LoggedIn() bool {
	return m.mailbox.Token() != ""
}

// Subscribe returns a channel of session snapshots and a cancel function.
// Sends never block; a slow subscriber skips intermediate states.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Snapshot, 8)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (m *Manager) adoptToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mailbox.set(token)
	m.status = model.StatusAuthenticated
	m.persistLocked(token)
	m.notifyLocked()
}

func (m *Manager) persistLocked(token string) {
	secret, err := m.store.InstallSecret()
	if err != nil {
		logging.Warnf("session: failed to load install secret, token not persisted: %v", err)
		return
	}
	sealed, err := sealToken(secret, token)
	if err != nil {
		logging.Warnf("session: failed to seal token, token not persisted: %v", err)
		return
	}
	if err := m.store.SaveToken(sealed); err != nil {
		logging.Warnf("session: failed to persist token: %v", err)
	}
}

func (m *Manager) clearLocal(status model.SessionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mailbox.set("")
	if err := m.store.ClearToken(); err != nil {
		logging.Warnf("session: failed to clear persisted token: %v", err)
	}
	m.status = status
	m.notifyLocked()
}

func (m *Manager) setStatus(status model.SessionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == status {
		return
	}
	m.status = status
	m.notifyLocked()
}

func (m *Manager) notifyLocked() {
	snap := Snapshot{Status: m.status, LoggedIn: m.mailbox.Token() != ""}
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
