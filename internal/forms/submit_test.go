// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package forms_test

import (
	"context"
	"errors"
	"testing"

	"github.com/repleo/bounca/internal/api"
	"github.com/repleo/bounca/internal/forms"
	"github.com/repleo/bounca/internal/model"
	"github.com/repleo/bounca/internal/testutil"
)

// fakeMutationAPI scripts the outcome of every mutation call.
type fakeMutationAPI struct {
	err        error
	lastCreate api.CertificateRequest
	revoked    []int
	crls       []int
}

func (f *fakeMutationAPI) CreateCertificate(_ context.Context, req api.CertificateRequest) error {
	f.lastCreate = req
	return f.err
}

func (f *fakeMutationAPI) RevokeCertificate(_ context.Context, id int, _ string) error {
	f.revoked = append(f.revoked, id)
	return f.err
}

func (f *fakeMutationAPI) RegenerateCRL(_ context.Context, id int, _ string) error {
	f.crls = append(f.crls, id)
	return f.err
}

func TestSubmitCreate_SuccessFiresSignalsAndJournals(t *testing.T) {
	apiDouble := &fakeMutationAPI{}
	journal := testutil.NewMemStore()
	s := forms.NewSubmitter(apiDouble, journal)

	var changed, dismissed int
	s.OnChanged = func() { changed++ }
	s.OnDismiss = func() { dismissed++ }

	form := &forms.CertificateForm{Name: "srv", Type: model.TypeServer, CommonName: "srv.example.com"}
	if err := s.Create(context.Background(), form); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if changed != 1 || dismissed != 1 {
		t.Fatalf("expected one changed and one dismiss signal, got %d/%d", changed, dismissed)
	}
	entries, err := journal.JournalEntries()
	if err != nil {
		t.Fatalf("JournalEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "create" || entries[0].Subject != "srv" {
		t.Fatalf("unexpected journal: %+v", entries)
	}
}

func TestSubmitCreate_ValidationErrorBindsFormWithoutSignals(t *testing.T) {
	apiDouble := &fakeMutationAPI{err: &model.SubmissionValidationError{
		Fields: model.FieldErrors{"dn.commonName": {"This field is required."}},
	}}
	s := forms.NewSubmitter(apiDouble, nil)

	var fired bool
	s.OnChanged = func() { fired = true }
	s.OnDismiss = func() { fired = true }

	form := &forms.CertificateForm{Name: "srv", Type: model.TypeServer}
	err := s.Create(context.Background(), form)

	var validation *model.SubmissionValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected SubmissionValidationError, got %v", err)
	}
	if got := form.Errors["dn.commonName"]; len(got) != 1 || got[0] != "This field is required." {
		t.Fatalf("field errors not bound to form: %+v", form.Errors)
	}
	if fired {
		t.Fatalf("no signals may fire on a rejected submission")
	}
}

func TestSubmitRevoke_TransportErrorPassesThrough(t *testing.T) {
	apiDouble := &fakeMutationAPI{err: &model.SubmissionTransportError{Err: errors.New("connection refused")}}
	s := forms.NewSubmitter(apiDouble, nil)

	form := &forms.RevokeForm{CertificateID: 9, PassphraseIssuer: "secret"}
	err := s.Revoke(context.Background(), form)

	var transport *model.SubmissionTransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected SubmissionTransportError, got %v", err)
	}
	if len(form.Errors) != 0 {
		t.Fatalf("transport failure must not leave field errors on the form: %+v", form.Errors)
	}
}

func TestSubmitCRL_SuccessJournalsSubject(t *testing.T) {
	apiDouble := &fakeMutationAPI{}
	journal := testutil.NewMemStore()
	s := forms.NewSubmitter(apiDouble, journal)

	form := &forms.CRLForm{CertificateID: 4, Subject: "Example Root", PassphraseIssuer: "secret"}
	if err := s.RegenerateCRL(context.Background(), form); err != nil {
		t.Fatalf("RegenerateCRL failed: %v", err)
	}
	if len(apiDouble.crls) != 1 || apiDouble.crls[0] != 4 {
		t.Fatalf("CRL call not forwarded: %v", apiDouble.crls)
	}
	entries, _ := journal.JournalEntries()
	if len(entries) != 1 || entries[0].Subject != "Example Root" {
		t.Fatalf("unexpected journal: %+v", entries)
	}
}
