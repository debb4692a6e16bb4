// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package forms holds the mutation form models and the shared submission
// pattern: payload normalization, field-error binding and the
// catalog-changed signal after a successful mutation.
package forms

import (
	"strings"

	"github.com/repleo/bounca/internal/api"
	"github.com/repleo/bounca/internal/model"
)

// SplitMultiValue normalizes a comma-separated free-text field into an
// ordered slice of trimmed values. Empty input yields an empty (non-nil)
// slice so the serialized payload is always a list, never a raw string.
func SplitMultiValue(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// CertificateForm collects the create-certificate input. SubjectAltNames
// accepts free text ("a.com,b.com"); an already-plural value can be set on
// SubjectAltNamesList instead and is passed through untouched.
type CertificateForm struct {
	Name   string
	Type   model.CertificateType
	Parent *int

	CommonName             string
	CountryName            string
	StateOrProvinceName    string
	LocalityName           string
	OrganizationName       string
	OrganizationalUnitName string
	EmailAddress           string
	SubjectAltNames        string
	SubjectAltNamesList    []string

	ExpiresAt            string
	CRLDistributionURL   string
	OCSPDistributionHost string

	PassphraseIssuer          string
	PassphraseOut             string
	PassphraseOutConfirmation string

	// Errors is populated from the server's field-level validation
	// response so the view can render inline messages.
	Errors model.FieldErrors
}

// Payload serializes the form, normalizing the alt-name field.
func (f *CertificateForm) Payload() api.CertificateRequest {
	altNames := f.SubjectAltNamesList
	if altNames == nil {
		altNames = SplitMultiValue(f.SubjectAltNames)
	}
	return api.CertificateRequest{
		Name:   f.Name,
		Type:   f.Type,
		Parent: f.Parent,
		DN: api.DistinguishedName{
			CommonName:             f.CommonName,
			CountryName:            f.CountryName,
			StateOrProvinceName:    f.StateOrProvinceName,
			LocalityName:           f.LocalityName,
			OrganizationName:       f.OrganizationName,
			OrganizationalUnitName: f.OrganizationalUnitName,
			EmailAddress:           f.EmailAddress,
			SubjectAltNames:        altNames,
		},
		ExpiresAt:                 f.ExpiresAt,
		CRLDistributionURL:        f.CRLDistributionURL,
		OCSPDistributionHost:      f.OCSPDistributionHost,
		PassphraseIssuer:          f.PassphraseIssuer,
		PassphraseOut:             f.PassphraseOut,
		PassphraseOutConfirmation: f.PassphraseOutConfirmation,
	}
}

// RevokeForm collects the revoke input for one certificate.
type RevokeForm struct {
	CertificateID    int
	Subject          string
	PassphraseIssuer string

	Errors model.FieldErrors
}

// CRLForm collects the CRL-regeneration input for one authority.
type CRLForm struct {
	CertificateID    int
	Subject          string
	PassphraseIssuer string

	Errors model.FieldErrors
}
