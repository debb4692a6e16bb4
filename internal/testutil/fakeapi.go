// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil provides a scriptable in-process BounCA API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// FakeAPI is an httptest-backed double of the BounCA REST API. Tests
// configure its token, certificate fixtures and injected failures, then
// point an api.Client at URL().
type FakeAPI struct {
	mu sync.Mutex

	srv *httptest.Server

	// Key is the token issued by login/registration.
	Key string
	// ValidUsers maps username to password for login.
	ValidUsers map[string]string
	// LoginFieldErrors, when set, is returned as a 400 body on login.
	LoginFieldErrors map[string][]string

	// Certificates served by the list endpoint, in server order.
	Certificates []map[string]any
	// PageSize for the paginated list. Defaults to 10.
	PageSize int

	// RejectAuthenticated forces 403 on every authenticated request.
	RejectAuthenticated bool
	// FailList forces 500 on the list endpoint.
	FailList bool

	// CreateErrors, when set, is returned as a 400 body on create.
	CreateErrors map[string][]string

	// Requests counts requests per "METHOD path" key.
	Requests map[string]int

	// LastCreateBody captures the most recent create payload.
	LastCreateBody map[string]any

	// LogoutCalls counts remote logout invocations.
	LogoutCalls int
	// FailLogout forces 500 on the logout endpoint.
	FailLogout bool

	// AppTokens served and mutated by the /auth/tokens endpoints.
	AppTokens []map[string]any
	// AppTokenErrors, when set, is returned as a 400 body on token create.
	AppTokenErrors map[string][]string
}

// NewFakeAPI starts the fake server. Callers must Close it.
func NewFakeAPI() *FakeAPI {
	f := &FakeAPI{
		Key:        "tok1",
		ValidUsers: map[string]string{"a": "p"},
		PageSize:   10,
		Requests:   make(map[string]int),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

// URL returns the fake server's base URL.
func (f *FakeAPI) URL() string { return f.srv.URL }

// Close shuts the fake server down.
func (f *FakeAPI) Close() { f.srv.Close() }

// RequestCount returns how many times "METHOD path" was called.
func (f *FakeAPI) RequestCount(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Requests[method+" "+path]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *FakeAPI) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Token "+f.Key
}

func (f *FakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	f.Requests[r.Method+" "+path]++
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && path == "/auth/login/":
		f.handleLogin(w, r)
	case r.Method == http.MethodPost && path == "/auth/logout/":
		f.handleLogout(w)
	case r.Method == http.MethodPost && path == "/auth/registration/":
		writeJSON(w, http.StatusCreated, map[string]string{"key": f.Key})
	case r.Method == http.MethodPost && strings.HasPrefix(path, "/auth/password/"):
		writeJSON(w, http.StatusOK, map[string]string{"detail": "ok"})
	case r.Method == http.MethodPost && path == "/auth/registration/verify-email/":
		writeJSON(w, http.StatusOK, map[string]string{"detail": "ok"})
	case path == "/auth/user/":
		f.handleUser(w, r)
	case path == "/auth/tokens" || path == "/auth/tokens/":
		f.handleAppTokens(w, r)
	case strings.HasPrefix(path, "/auth/tokens/"):
		f.handleAppTokenInstance(w, r, strings.TrimPrefix(path, "/auth/tokens/"))
	case path == "/certificates":
		f.handleCertificates(w, r)
	case strings.HasPrefix(path, "/certificates/"):
		f.handleCertificateInstance(w, r, strings.TrimPrefix(path, "/certificates/"))
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.LoginFieldErrors != nil {
		writeJSON(w, http.StatusBadRequest, f.LoginFieldErrors)
		return
	}
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&creds)
	if pw, ok := f.ValidUsers[creds.Username]; !ok || pw != creds.Password {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"non_field_errors": {"Unable to log in with provided credentials."},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": f.Key})
}

func (f *FakeAPI) handleLogout(w http.ResponseWriter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogoutCalls++
	if f.FailLogout {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "ok"})
}

func (f *FakeAPI) handleUser(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	reject := f.RejectAuthenticated || !f.authorized(r)
	f.mu.Unlock()
	if reject {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "forbidden"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": "a", "email": "a@example.com"})
}

func (f *FakeAPI) handleAppTokens(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RejectAuthenticated || !f.authorized(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "forbidden"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		tokens := f.AppTokens
		if tokens == nil {
			tokens = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, tokens)
	case http.MethodPost:
		if f.AppTokenErrors != nil {
			writeJSON(w, http.StatusBadRequest, f.AppTokenErrors)
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		created := map[string]any{
			"id":    len(f.AppTokens) + 1,
			"name":  body.Name,
			"token": fmt.Sprintf("apptok-%d", len(f.AppTokens)+1),
		}
		f.AppTokens = append(f.AppTokens, created)
		writeJSON(w, http.StatusCreated, created)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *FakeAPI) handleAppTokenInstance(w http.ResponseWriter, r *http.Request, rest string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RejectAuthenticated || !f.authorized(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "forbidden"})
		return
	}

	for i, tok := range f.AppTokens {
		if fmt.Sprint(tok["id"]) != rest {
			continue
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, tok)
		case http.MethodDelete:
			f.AppTokens = append(f.AppTokens[:i], f.AppTokens[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	http.NotFound(w, r)
}

func (f *FakeAPI) handleCertificates(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RejectAuthenticated || !f.authorized(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "forbidden"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		if f.FailList {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
			return
		}
		f.writeList(w, r)
	case http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.LastCreateBody = body
		if f.CreateErrors != nil {
			writeJSON(w, http.StatusBadRequest, f.CreateErrors)
			return
		}
		writeJSON(w, http.StatusCreated, body)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// writeList filters fixtures the way the server does: type and parent
// filters, substring search on name, then page-number pagination.
func (f *FakeAPI) writeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matched := make([]map[string]any, 0, len(f.Certificates))
	for _, c := range f.Certificates {
		if t := q.Get("type"); t != "" && fmt.Sprint(c["type"]) != t {
			continue
		}
		if p := q.Get("parent"); p != "" && fmt.Sprint(c["parent"]) != p {
			continue
		}
		if s := q.Get("search"); s != "" && !strings.Contains(fmt.Sprint(c["name"]), s) {
			continue
		}
		matched = append(matched, c)
	}

	page := 1
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		page = n
	}
	size := f.PageSize
	start := (page - 1) * size
	end := start + size
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results":  matched[start:end],
		"count":    len(matched),
		"next":     nil,
		"previous": nil,
	})
}

func (f *FakeAPI) handleCertificateInstance(w http.ResponseWriter, r *http.Request, rest string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RejectAuthenticated || !f.authorized(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "forbidden"})
		return
	}

	parts := strings.SplitN(rest, "/", 2)
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		http.NotFound(w, r)
		return
	}

	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}
	switch {
	case sub == "download" && r.Method == http.MethodGet:
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=cert-%d.pem", id))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("-----BEGIN CERTIFICATE-----\nfake\n-----END CERTIFICATE-----\n"))
	case sub == "crl" && r.Method == http.MethodGet:
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=crl-%d.pem", id))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("-----BEGIN X509 CRL-----\nfake\n-----END X509 CRL-----\n"))
	case sub == "crl" && r.Method == http.MethodPatch:
		writeJSON(w, http.StatusOK, map[string]string{"detail": "ok"})
	case sub == "info":
		writeJSON(w, http.StatusOK, map[string]string{"text": fmt.Sprintf("Certificate %d", id)})
	case sub == "" && r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	case sub == "" && r.Method == http.MethodGet:
		for _, c := range f.Certificates {
			if fmt.Sprint(c["id"]) == parts[0] {
				writeJSON(w, http.StatusOK, c)
				return
			}
		}
		http.NotFound(w, r)
	default:
		http.NotFound(w, r)
	}
}
