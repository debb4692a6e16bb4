// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"fmt"
	"sort"
	"strings"
)

// FieldErrors maps a form field name to the server-reported messages for it.
// The server reports form-wide problems under "non_field_errors".
type FieldErrors map[string][]string

// NonFieldKey is the key the API uses for errors not tied to a single field.
const NonFieldKey = "non_field_errors"

func (f FieldErrors) summary() string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(f[k], "; ")))
	}
	return strings.Join(parts, ", ")
}

// AuthenticationError reports rejected credentials. It carries the server's
// field-level validation errors so the view can bind them to the login form.
type AuthenticationError struct {
	Fields FieldErrors
}

func (e *AuthenticationError) Error() string {
	if s := e.Fields.summary(); s != "" {
		return "authentication failed: " + s
	}
	return "authentication failed"
}

// SessionExpiredError reports that a previously valid session was rejected
// mid-use. It forces local logout before it is surfaced to the caller.
type SessionExpiredError struct {
	StatusCode int
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired (server returned %d)", e.StatusCode)
}

// CatalogFetchError reports a transient catalog read failure. The previous
// page stays visible; nothing is cleared.
type CatalogFetchError struct {
	Err error
}

func (e *CatalogFetchError) Error() string {
	return "catalog fetch failed: " + e.Err.Error()
}

func (e *CatalogFetchError) Unwrap() error { return e.Err }

// SubmissionValidationError reports field-level validation failures for a
// mutation submission. Non-fatal; bound to the originating form.
type SubmissionValidationError struct {
	Fields FieldErrors
}

func (e *SubmissionValidationError) Error() string {
	if s := e.Fields.summary(); s != "" {
		return "submission rejected: " + s
	}
	return "submission rejected"
}

// SubmissionTransportError reports a submission that never produced a
// structured validation response (network failure, unexpected status).
type SubmissionTransportError struct {
	Err error
}

func (e *SubmissionTransportError) Error() string {
	return "submission failed: " + e.Err.Error()
}

func (e *SubmissionTransportError) Unwrap() error { return e.Err }
