// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package api implements the REST client for the BounCA certificate
// authority API. It owns request construction, bearer authentication and
// the mapping of server responses onto the client error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/repleo/bounca/internal/logging"
	"github.com/repleo/bounca/internal/model"
)

// TokenSource yields the current bearer token. An empty string means
// unauthenticated. The session manager is the only writer; everything that
// issues requests reads through this interface.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource, mainly for tests and one-shot calls.
type StaticToken string

// Token returns the fixed token value.
func (s StaticToken) Token() string { return string(s) }

// Client talks to the BounCA API (mounted under /api/v1).
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource

	// OnUnauthorized is invoked once per 401/403 response to an
	// authenticated request, before the error is returned to the caller.
	// The session manager installs its forced-logout handler here.
	OnUnauthorized func()
}

// New returns a Client for the API rooted at baseURL (scheme://host[:port],
// without the /api/v1 suffix).
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: trimSlash(baseURL) + "/api/v1",
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
	}
}

// SetHTTPClient overrides the underlying HTTP client, e.g. for tests.
func (c *Client) SetHTTPClient(h *http.Client) { c.http = h }

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// authMode controls whether a request carries the Authorization header.
type authMode int

const (
	anonymous authMode = iota
	authenticated
)

// do issues a JSON request and decodes a successful response into out (when
// out is non-nil). 401/403 on authenticated requests become
// SessionExpiredError after firing the OnUnauthorized hook; 400 bodies are
// decoded as field errors and returned via mkFieldErr; anything else
// unexpected is wrapped by mkTransportErr.
func (c *Client) do(ctx context.Context, method, path string, body any, out any, mode authMode,
	mkFieldErr func(model.FieldErrors) error, mkTransportErr func(error) error) error {

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return mkTransportErr(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return mkTransportErr(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mode == authenticated {
		if key := c.tokens.Token(); key != "" {
			req.Header.Set("Authorization", "Token "+key)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mkTransportErr(err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return mkTransportErr(fmt.Errorf("decode response: %w", err))
		}
		return nil
	case mode == authenticated && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden):
		logging.Debugf("api: %s %s rejected with %d; treating session as expired", method, path, resp.StatusCode)
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return &model.SessionExpiredError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusBadRequest:
		if fields := decodeFieldErrors(resp.Body); fields != nil {
			return mkFieldErr(fields)
		}
		return mkTransportErr(fmt.Errorf("server returned %d", resp.StatusCode))
	default:
		return mkTransportErr(fmt.Errorf("server returned %d", resp.StatusCode))
	}
}

// decodeFieldErrors parses a DRF validation body. Values may be a list of
// strings or a single string; both forms appear in the wild.
func decodeFieldErrors(r io.Reader) model.FieldErrors {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil || len(raw) == 0 {
		return nil
	}
	fields := model.FieldErrors{}
	for key, msg := range raw {
		var list []string
		if err := json.Unmarshal(msg, &list); err == nil {
			fields[key] = list
			continue
		}
		var single string
		if err := json.Unmarshal(msg, &single); err == nil {
			fields[key] = []string{single}
			continue
		}
		// Nested objects (e.g. dn sub-errors) are flattened one level.
		var nested map[string][]string
		if err := json.Unmarshal(msg, &nested); err == nil {
			for sub, msgs := range nested {
				fields[key+"."+sub] = msgs
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func asValidationErr(fields model.FieldErrors) error {
	return &model.SubmissionValidationError{Fields: fields}
}

func asTransportErr(err error) error {
	return &model.SubmissionTransportError{Err: err}
}
