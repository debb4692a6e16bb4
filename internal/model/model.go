// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model defines the domain types shared by the session manager,
// the catalog synchronizer and the REST client: certificate projections,
// catalog queries and pages, and the session status enum.
package model

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// CertificateType is the server's one-letter certificate type code.
type CertificateType string

const (
	TypeRoot         CertificateType = "R"
	TypeIntermediate CertificateType = "I"
	TypeServer       CertificateType = "S"
	TypeClient       CertificateType = "C"
	TypeOCSP         CertificateType = "O"
)

// Label returns the human-readable name for the type code.
func (t CertificateType) Label() string {
	switch t {
	case TypeRoot:
		return "Root CA Certificate"
	case TypeIntermediate:
		return "Intermediate CA Certificate"
	case TypeServer:
		return "Server Certificate"
	case TypeClient:
		return "Client Certificate"
	case TypeOCSP:
		return "OCSP Signing Certificate"
	}
	return string(t)
}

// CertificateSummary is a read-only projection of a remote certificate.
// The server owns every field; the client never mutates a summary, it only
// triggers remote mutations and re-fetches.
type CertificateSummary struct {
	ID         int
	Name       string
	Type       CertificateType
	ParentID   *int
	CommonName string
	ExpiresAt  time.Time
	Revoked    bool
	RevokedAt  *time.Time
}

// String returns the name and type, e.g. "intranet.example.com (S)".
func (c CertificateSummary) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Type)
}

// Scope selects which slice of the catalog is being viewed: the root-level
// certificates, or the children of a given parent.
type Scope struct {
	ParentID *int
}

// RootScope views certificates without a parent (type R).
func RootScope() Scope { return Scope{} }

// ChildrenScope views the children of the given certificate.
func ChildrenScope(parentID int) Scope {
	return Scope{ParentID: &parentID}
}

// IsRoot reports whether the scope is the root-level view.
func (s Scope) IsRoot() bool { return s.ParentID == nil }

func (s Scope) String() string {
	if s.ParentID == nil {
		return "root"
	}
	return "children-of-" + strconv.Itoa(*s.ParentID)
}

// CatalogQuery describes the current catalog view: scope, search term and
// 1-based page. Ordering is fixed to descending identifier; the server
// accepts other orderings but the client does not expose them.
type CatalogQuery struct {
	Scope      Scope
	SearchTerm string
	Page       int
}

// Values renders the query as certificate-list URL parameters. The root
// scope pins the type filter to R and omits the parent filter; a child
// scope sets the parent filter and leaves the type open.
func (q CatalogQuery) Values() url.Values {
	v := url.Values{}
	v.Set("ordering", "-id")
	page := q.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	if q.SearchTerm != "" {
		v.Set("search", q.SearchTerm)
	}
	if q.Scope.IsRoot() {
		v.Set("type", string(TypeRoot))
	} else {
		v.Set("parent", strconv.Itoa(*q.Scope.ParentID))
	}
	return v
}

// CatalogPage is the cached, most recently fetched slice of the certificate
// collection. It is replaced wholesale on every successful fetch so the view
// never sees a mix of two queries. Loaded is false only before the first
// fetch resolves.
type CatalogPage struct {
	Items      []CertificateSummary
	TotalCount int
	Page       int
	PageSize   int
	Loaded     bool
}

// SessionStatus is the derived authentication state.
type SessionStatus int

const (
	StatusIdle SessionStatus = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusFailed
)

func (s SessionStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}
