// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/repleo/bounca/internal/logging"
	"github.com/repleo/bounca/internal/model"
)

// DistinguishedName is the subject of a certificate request. SubjectAltNames
// must already be a normalized slice; free-text input is split by the forms
// package before it reaches the client.
type DistinguishedName struct {
	CommonName             string   `json:"commonName"`
	CountryName            string   `json:"countryName,omitempty"`
	StateOrProvinceName    string   `json:"stateOrProvinceName,omitempty"`
	LocalityName           string   `json:"localityName,omitempty"`
	OrganizationName       string   `json:"organizationName,omitempty"`
	OrganizationalUnitName string   `json:"organizationalUnitName,omitempty"`
	EmailAddress           string   `json:"emailAddress,omitempty"`
	SubjectAltNames        []string `json:"subjectAltNames"`
}

// CertificateRequest is the create-certificate body.
type CertificateRequest struct {
	Name                      string                `json:"name"`
	Type                      model.CertificateType `json:"type"`
	Parent                    *int                  `json:"parent,omitempty"`
	DN                        DistinguishedName     `json:"dn"`
	ExpiresAt                 string                `json:"expires_at,omitempty"`
	CRLDistributionURL        string                `json:"crl_distribution_url,omitempty"`
	OCSPDistributionHost      string                `json:"ocsp_distribution_host,omitempty"`
	PassphraseIssuer          string                `json:"passphrase_issuer,omitempty"`
	PassphraseOut             string                `json:"passphrase_out,omitempty"`
	PassphraseOutConfirmation string                `json:"passphrase_out_confirmation,omitempty"`
}

// CertificateList is one page of the server's certificate collection.
// Next and Previous are the server's page URLs; the client pages by number
// and does not follow them.
type CertificateList struct {
	Items    []model.CertificateSummary
	Count    int
	Next     *string
	Previous *string
}

type dnPayload struct {
	CommonName      string   `json:"commonName"`
	SubjectAltNames []string `json:"subjectAltNames"`
}

type certificatePayload struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Parent    *int       `json:"parent"`
	DN        *dnPayload `json:"dn"`
	ExpiresAt string     `json:"expires_at"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *string    `json:"revoked_at"`
}

type certificateListPayload struct {
	Results  []certificatePayload `json:"results"`
	Count    int                  `json:"count"`
	Next     *string              `json:"next"`
	Previous *string              `json:"previous"`
}

// parseAPITime accepts the server's date and datetime renderings.
func parseAPITime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	logging.Debugf("api: unparseable timestamp %q in server payload", s)
	return time.Time{}
}

func (p certificatePayload) summary() model.CertificateSummary {
	s := model.CertificateSummary{
		ID:        p.ID,
		Name:      p.Name,
		Type:      model.CertificateType(p.Type),
		ParentID:  p.Parent,
		ExpiresAt: parseAPITime(p.ExpiresAt),
		Revoked:   p.Revoked,
	}
	if p.DN != nil {
		s.CommonName = p.DN.CommonName
	}
	if p.RevokedAt != nil {
		t := parseAPITime(*p.RevokedAt)
		s.RevokedAt = &t
	}
	return s
}

func asFetchErr(fields model.FieldErrors) error {
	return &model.CatalogFetchError{Err: fmt.Errorf("rejected query: %s", (&model.SubmissionValidationError{Fields: fields}).Error())}
}

func asFetchTransportErr(err error) error {
	return &model.CatalogFetchError{Err: err}
}

// ListCertificates fetches one page of the collection for the given query.
// Server order is preserved; the client never re-sorts.
func (c *Client) ListCertificates(ctx context.Context, q model.CatalogQuery) (CertificateList, error) {
	var payload certificateListPayload
	path := "/certificates?" + q.Values().Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &payload, authenticated, asFetchErr, asFetchTransportErr); err != nil {
		return CertificateList{}, err
	}
	list := CertificateList{
		Count:    payload.Count,
		Next:     payload.Next,
		Previous: payload.Previous,
		Items:    make([]model.CertificateSummary, 0, len(payload.Results)),
	}
	for _, p := range payload.Results {
		list.Items = append(list.Items, p.summary())
	}
	return list, nil
}

// GetCertificate fetches a single certificate by id.
func (c *Client) GetCertificate(ctx context.Context, id int) (model.CertificateSummary, error) {
	var payload certificatePayload
	err := c.do(ctx, http.MethodGet, "/certificates/"+strconv.Itoa(id), nil, &payload, authenticated, asFetchErr, asFetchTransportErr)
	if err != nil {
		return model.CertificateSummary{}, err
	}
	return payload.summary(), nil
}

// CertificateInfo returns the server's openssl-style text dump.
func (c *Client) CertificateInfo(ctx context.Context, id int) (string, error) {
	var payload struct {
		Text string `json:"text"`
	}
	err := c.do(ctx, http.MethodGet, "/certificates/"+strconv.Itoa(id)+"/info", nil, &payload, authenticated, asFetchErr, asFetchTransportErr)
	return payload.Text, err
}

// CreateCertificate submits a create request. Field errors come back as
// SubmissionValidationError for the form layer to bind.
func (c *Client) CreateCertificate(ctx context.Context, req CertificateRequest) error {
	return c.do(ctx, http.MethodPost, "/certificates", req, nil, authenticated, asValidationErr, asTransportErr)
}

// RevokeCertificate revokes by id. The API models revocation as a DELETE
// carrying the issuer passphrase in the body.
func (c *Client) RevokeCertificate(ctx context.Context, id int, passphraseIssuer string) error {
	body := struct {
		PassphraseIssuer string `json:"passphrase_issuer"`
	}{PassphraseIssuer: passphraseIssuer}
	return c.do(ctx, http.MethodDelete, "/certificates/"+strconv.Itoa(id), body, nil, authenticated, asValidationErr, asTransportErr)
}

// RegenerateCRL asks the server to rebuild the CRL for an authority.
func (c *Client) RegenerateCRL(ctx context.Context, id int, passphraseIssuer string) error {
	body := struct {
		PassphraseIssuer string `json:"passphrase_issuer"`
	}{PassphraseIssuer: passphraseIssuer}
	return c.do(ctx, http.MethodPatch, "/certificates/"+strconv.Itoa(id)+"/crl", body, nil, authenticated, asValidationErr, asTransportErr)
}

// Download is a binary payload with the server-suggested filename.
type Download struct {
	Filename string
	Data     []byte
}

// download fetches a file endpoint and derives the filename from the
// Content-Disposition header, falling back to "download".
func (c *Client) download(ctx context.Context, path string) (Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Download{}, &model.SubmissionTransportError{Err: err}
	}
	if key := c.tokens.Token(); key != "" {
		req.Header.Set("Authorization", "Token "+key)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Download{}, &model.SubmissionTransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return Download{}, &model.SessionExpiredError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Download{}, &model.SubmissionTransportError{Err: fmt.Errorf("server returned %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Download{}, &model.SubmissionTransportError{Err: err}
	}

	filename := "download"
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name, ok := params["filename"]; ok && name != "" {
				filename = name
			}
		}
	}
	return Download{Filename: filename, Data: data}, nil
}

// DownloadCertificate fetches the certificate bundle for the given id.
func (c *Client) DownloadCertificate(ctx context.Context, id int) (Download, error) {
	return c.download(ctx, "/certificates/"+strconv.Itoa(id)+"/download")
}

// DownloadCRL fetches the certificate revocation list for the given id.
func (c *Client) DownloadCRL(ctx context.Context, id int) (Download, error) {
	return c.download(ctx, "/certificates/"+strconv.Itoa(id)+"/crl")
}
