// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package forms

import (
	"context"
	"errors"
	"fmt"

	"github.com/repleo/bounca/internal/api"
	"github.com/repleo/bounca/internal/logging"
	"github.com/repleo/bounca/internal/model"
)

// MutationAPI is the slice of the API client the submitter needs.
type MutationAPI interface {
	CreateCertificate(ctx context.Context, req api.CertificateRequest) error
	RevokeCertificate(ctx context.Context, id int, passphraseIssuer string) error
	RegenerateCRL(ctx context.Context, id int, passphraseIssuer string) error
}

// Journal records successful mutations locally. Optional.
type Journal interface {
	AppendJournal(action, subject string) error
}

// Submitter runs the shared submission pattern for create, revoke and CRL
// actions: serialize, submit with the current token, then on success fire
// the catalog-changed and dismissal signals; on validation failure bind the
// field errors to the originating form.
type Submitter struct {
	api     MutationAPI
	journal Journal

	// OnChanged is the catalog-changed signal (typically
	// Synchronizer.NotifyChanged). OnDismiss tells the view to close the
	// originating dialog. Either may be nil.
	OnChanged func()
	OnDismiss func()
}

// NewSubmitter returns a submitter over the given API. journal may be nil.
func NewSubmitter(mutations MutationAPI, journal Journal) *Submitter {
	return &Submitter{api: mutations, journal: journal}
}

// Create submits a create-certificate form.
func (s *Submitter) Create(ctx context.Context, form *CertificateForm) error {
	err := s.api.CreateCertificate(ctx, form.Payload())
	return s.finish(err, &form.Errors, "create", form.Name)
}

// Revoke submits a revoke form.
func (s *Submitter) Revoke(ctx context.Context, form *RevokeForm) error {
	err := s.api.RevokeCertificate(ctx, form.CertificateID, form.PassphraseIssuer)
	return s.finish(err, &form.Errors, "revoke", subjectOrID(form.Subject, form.CertificateID))
}

// RegenerateCRL submits a CRL-regeneration form.
func (s *Submitter) RegenerateCRL(ctx context.Context, form *CRLForm) error {
	err := s.api.RegenerateCRL(ctx, form.CertificateID, form.PassphraseIssuer)
	return s.finish(err, &form.Errors, "crl-regenerate", subjectOrID(form.Subject, form.CertificateID))
}

func subjectOrID(subject string, id int) string {
	if subject != "" {
		return subject
	}
	return fmt.Sprintf("certificate %d", id)
}

// finish implements the common tail of every submission. Validation errors
// are bound to the form and returned typed; the view renders them inline.
// Success fires the signals and journals the action.
func (s *Submitter) finish(err error, formErrors *model.FieldErrors, action, subject string) error {
	if err == nil {
		*formErrors = nil
		if s.journal != nil {
			if jerr := s.journal.AppendJournal(action, subject); jerr != nil {
				logging.Warnf("forms: failed to journal %s of %s: %v", action, subject, jerr)
			}
		}
		if s.OnChanged != nil {
			s.OnChanged()
		}
		if s.OnDismiss != nil {
			s.OnDismiss()
		}
		return nil
	}

	var validation *model.SubmissionValidationError
	if errors.As(err, &validation) {
		*formErrors = validation.Fields
		return err
	}
	// Session expiry and transport failures pass through untouched; the
	// form keeps any previous field errors cleared.
	*formErrors = nil
	return err
}
