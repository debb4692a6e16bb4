// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package catalog_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/repleo/bounca/internal/api"
	"github.com/repleo/bounca/internal/catalog"
	"github.com/repleo/bounca/internal/model"
)

// scriptedFetcher answers ListCertificates from a function, recording every
// query it saw.
type scriptedFetcher struct {
	mu      sync.Mutex
	calls   int
	queries []model.CatalogQuery
	respond func(call int, q model.CatalogQuery) (api.CertificateList, error)
}

func (f *scriptedFetcher) ListCertificates(_ context.Context, q model.CatalogQuery) (api.CertificateList, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.queries = append(f.queries, q)
	respond := f.respond
	f.mu.Unlock()
	return respond(call, q)
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *scriptedFetcher) lastQuery() model.CatalogQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func listOf(names ...string) api.CertificateList {
	items := make([]model.CertificateSummary, 0, len(names))
	for i, n := range names {
		items = append(items, model.CertificateSummary{ID: i + 1, Name: n, Type: model.TypeRoot})
	}
	return api.CertificateList{Items: items, Count: len(items)}
}

func fixed(list api.CertificateList) func(int, model.CatalogQuery) (api.CertificateList, error) {
	return func(int, model.CatalogQuery) (api.CertificateList, error) { return list, nil }
}

func TestSearchAndScopeResetPageToOne(t *testing.T) {
	f := &scriptedFetcher{respond: fixed(listOf("a"))}
	s := catalog.New(f, time.Minute)
	ctx := context.Background()

	if err := s.SetPage(ctx, 5); err != nil {
		t.Fatalf("SetPage failed: %v", err)
	}
	if got := s.Query().Page; got != 5 {
		t.Fatalf("page = %d, want 5", got)
	}

	if err := s.SetSearchTerm(ctx, "example.com"); err != nil {
		t.Fatalf("SetSearchTerm failed: %v", err)
	}
	if got := s.Query().Page; got != 1 {
		t.Fatalf("page after search = %d, want 1", got)
	}

	if err := s.SetPage(ctx, 3); err != nil {
		t.Fatalf("SetPage failed: %v", err)
	}
	if err := s.SetScope(ctx, model.ChildrenScope(9)); err != nil {
		t.Fatalf("SetScope failed: %v", err)
	}
	q := s.Query()
	if q.Page != 1 {
		t.Fatalf("page after scope change = %d, want 1", q.Page)
	}
	if q.SearchTerm != "example.com" {
		t.Fatalf("scope change must not clear the search term, got %q", q.SearchTerm)
	}
	if q.Scope.IsRoot() {
		t.Fatalf("scope not applied")
	}
}

func TestSetView_SingleFetchForCombinedChange(t *testing.T) {
	f := &scriptedFetcher{respond: fixed(listOf("a"))}
	s := catalog.New(f, time.Minute)

	if err := s.SetView(context.Background(), model.ChildrenScope(7), "web", 3); err != nil {
		t.Fatalf("SetView failed: %v", err)
	}
	if f.callCount() != 1 {
		t.Fatalf("combined view change must fetch exactly once, got %d fetches", f.callCount())
	}
	q := f.lastQuery()
	if q.Scope.IsRoot() || *q.Scope.ParentID != 7 || q.SearchTerm != "web" || q.Page != 3 {
		t.Fatalf("query not applied atomically: %+v", q)
	}

	// Page values below 1 clamp instead of erroring.
	if err := s.SetView(context.Background(), model.RootScope(), "", 0); err != nil {
		t.Fatalf("SetView with page 0 failed: %v", err)
	}
	if q := f.lastQuery(); q.Page != 1 {
		t.Fatalf("page = %d, want clamp to 1", q.Page)
	}
}

func TestSetPage_RejectsNonPositive(t *testing.T) {
	f := &scriptedFetcher{respond: fixed(listOf())}
	s := catalog.New(f, time.Minute)

	if err := s.SetPage(context.Background(), 0); err == nil {
		t.Fatalf("SetPage(0) must fail")
	}
	if f.callCount() != 0 {
		t.Fatalf("rejected page change must not fetch")
	}
}

func TestRefresh_ReplacesPageWholesale(t *testing.T) {
	f := &scriptedFetcher{respond: fixed(listOf("a", "b", "c"))}
	s := catalog.New(f, time.Minute)

	if got := s.CurrentPage(); got.Loaded {
		t.Fatalf("page must be marked not-yet-loaded before the first fetch")
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	page := s.CurrentPage()
	if !page.Loaded {
		t.Fatalf("page should be loaded")
	}
	if page.TotalCount != 3 || len(page.Items) != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestRefresh_EmptyResultIsNotAnError(t *testing.T) {
	f := &scriptedFetcher{respond: fixed(api.CertificateList{Items: []model.CertificateSummary{}, Count: 0})}
	s := catalog.New(f, time.Minute)
	ctx := context.Background()

	if err := s.SetSearchTerm(ctx, "example.com"); err != nil {
		t.Fatalf("SetSearchTerm failed: %v", err)
	}
	if err := s.SetPage(ctx, 2); err != nil {
		t.Fatalf("SetPage failed: %v", err)
	}

	page := s.CurrentPage()
	if len(page.Items) != 0 || page.TotalCount != 0 {
		t.Fatalf("expected an empty page, got %+v", page)
	}
	if !page.Loaded {
		t.Fatalf("an empty result still counts as loaded")
	}
}

func TestRefresh_FailureKeepsPreviousPage(t *testing.T) {
	f := &scriptedFetcher{}
	f.respond = func(call int, _ model.CatalogQuery) (api.CertificateList, error) {
		if call == 1 {
			return listOf("a", "b"), nil
		}
		return api.CertificateList{}, &model.CatalogFetchError{Err: errors.New("boom")}
	}
	s := catalog.New(f, time.Minute)
	ctx := context.Background()

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("first Refresh failed: %v", err)
	}
	before := s.CurrentPage()

	events, cancel := s.Subscribe()
	defer cancel()

	err := s.Refresh(ctx)
	var fetchErr *model.CatalogFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected CatalogFetchError, got %v", err)
	}

	after := s.CurrentPage()
	if len(after.Items) != len(before.Items) || after.TotalCount != before.TotalCount {
		t.Fatalf("failed refresh must keep the previous page: before %+v after %+v", before, after)
	}

	select {
	case ev := <-events:
		if ev.Err == nil {
			t.Fatalf("subscribers must see the fetch error")
		}
	default:
		t.Fatalf("no event published for the failed refresh")
	}
}

func TestOutOfOrderResponse_LaterIssuedWins(t *testing.T) {
	firstEntered := make(chan struct{})
	releaseFirst := make(chan struct{})

	f := &scriptedFetcher{}
	f.respond = func(call int, q model.CatalogQuery) (api.CertificateList, error) {
		if call == 1 {
			close(firstEntered)
			<-releaseFirst
			return listOf("stale"), nil
		}
		return listOf("fresh-a", "fresh-b"), nil
	}
	s := catalog.New(f, time.Minute)

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	<-firstEntered

	// A newer fetch is issued and resolves while the first is in flight.
	if err := s.SetSearchTerm(context.Background(), "fresh"); err != nil {
		t.Fatalf("SetSearchTerm failed: %v", err)
	}

	// Now the stale response arrives; it must be discarded silently.
	close(releaseFirst)
	if err := <-done; err != nil {
		t.Fatalf("superseded refresh must not report an error, got %v", err)
	}

	page := s.CurrentPage()
	if page.TotalCount != 2 || page.Items[0].Name != "fresh-a" {
		t.Fatalf("stale response overwrote the newer page: %+v", page)
	}
}

func TestNotifyChanged_TriggersRefetch(t *testing.T) {
	f := &scriptedFetcher{respond: fixed(listOf("a"))}
	s := catalog.New(f, time.Minute)

	events, cancel := s.Subscribe()
	defer cancel()

	s.NotifyChanged()

	select {
	case ev := <-events:
		if ev.Err != nil {
			t.Fatalf("unexpected error: %v", ev.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("NotifyChanged did not trigger a refresh")
	}
	if f.callCount() != 1 {
		t.Fatalf("expected one fetch, got %d", f.callCount())
	}
}

func TestPolling_RefreshesUntilStopped(t *testing.T) {
	f := &scriptedFetcher{respond: fixed(listOf("a"))}
	s := catalog.New(f, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := s.StartPolling(ctx)

	deadline := time.After(2 * time.Second)
	for f.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("poller never fired, calls = %d", f.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	stop()
	stop() // idempotent
	calls := f.callCount()
	time.Sleep(50 * time.Millisecond)
	if f.callCount() != calls {
		t.Fatalf("poller kept refreshing after stop: %d -> %d", calls, f.callCount())
	}
}

func TestPolling_ContextCancelStopsPoller(t *testing.T) {
	f := &scriptedFetcher{respond: fixed(listOf("a"))}
	s := catalog.New(f, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	_ = s.StartPolling(ctx)
	cancel()

	time.Sleep(30 * time.Millisecond)
	calls := f.callCount()
	time.Sleep(50 * time.Millisecond)
	if f.callCount() != calls {
		t.Fatalf("poller survived context cancellation")
	}
}

func TestQueryParametersReachTheFetcher(t *testing.T) {
	f := &scriptedFetcher{respond: fixed(listOf())}
	s := catalog.New(f, time.Minute)
	ctx := context.Background()

	if err := s.SetScope(ctx, model.ChildrenScope(3)); err != nil {
		t.Fatalf("SetScope failed: %v", err)
	}
	q := f.lastQuery()
	if q.Scope.IsRoot() || *q.Scope.ParentID != 3 {
		t.Fatalf("scope not forwarded: %+v", q)
	}
	if q.Page != 1 {
		t.Fatalf("page = %d, want 1", q.Page)
	}
}
