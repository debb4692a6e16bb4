// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package forms_test

import (
	"reflect"
	"testing"

	"github.com/repleo/bounca/internal/forms"
	"github.com/repleo/bounca/internal/model"
)

func TestSplitMultiValue(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a.com,b.com", []string{"a.com", "b.com"}},
		{" a.com , b.com ", []string{"a.com", "b.com"}},
		{"a.com", []string{"a.com"}},
		{"", []string{}},
		{" , ,", []string{}},
		{"a.com,,b.com", []string{"a.com", "b.com"}},
	}
	for _, c := range cases {
		got := forms.SplitMultiValue(c.in)
		if got == nil {
			t.Errorf("SplitMultiValue(%q) returned nil, want non-nil slice", c.in)
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("SplitMultiValue(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCertificateFormPayload_SplitsAltNames(t *testing.T) {
	form := &forms.CertificateForm{
		Name:            "intranet",
		Type:            model.TypeServer,
		CommonName:      "intranet.example.com",
		SubjectAltNames: "a.com,b.com",
	}

	payload := form.Payload()
	want := []string{"a.com", "b.com"}
	if !reflect.DeepEqual(payload.DN.SubjectAltNames, want) {
		t.Fatalf("SubjectAltNames = %v, want %v", payload.DN.SubjectAltNames, want)
	}
}

func TestCertificateFormPayload_EmptyAltNamesIsList(t *testing.T) {
	form := &forms.CertificateForm{Name: "root", Type: model.TypeRoot, CommonName: "Example Root"}

	payload := form.Payload()
	if payload.DN.SubjectAltNames == nil {
		t.Fatalf("empty alt names must serialize as an empty list, not null")
	}
	if len(payload.DN.SubjectAltNames) != 0 {
		t.Fatalf("expected no alt names, got %v", payload.DN.SubjectAltNames)
	}
}

func TestCertificateFormPayload_PluralInputPassesThrough(t *testing.T) {
	form := &forms.CertificateForm{
		Name:                "srv",
		Type:                model.TypeServer,
		CommonName:          "srv.example.com",
		SubjectAltNames:     "ignored.example.com",
		SubjectAltNamesList: []string{"x.com", "y.com"},
	}

	payload := form.Payload()
	want := []string{"x.com", "y.com"}
	if !reflect.DeepEqual(payload.DN.SubjectAltNames, want) {
		t.Fatalf("plural input should pass through untouched, got %v", payload.DN.SubjectAltNames)
	}
}
