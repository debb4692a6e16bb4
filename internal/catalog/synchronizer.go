// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package catalog keeps an in-memory page of the remote certificate
// inventory synchronized with the server: query mutation, periodic
// refresh, and the out-of-order response guard.
package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/repleo/bounca/internal/api"
	"github.com/repleo/bounca/internal/logging"
	"github.com/repleo/bounca/internal/model"
)

// Fetcher is the slice of the API client the synchronizer needs.
type Fetcher interface {
	ListCertificates(ctx context.Context, q model.CatalogQuery) (api.CertificateList, error)
}

// Event is published to subscribers after every fetch attempt: a fresh page
// snapshot on success, the fetch error (previous page retained) on failure.
type Event struct {
	Page model.CatalogPage
	Err  error
}

// DefaultPollInterval matches the dashboard's historical 60s refresh cycle.
const DefaultPollInterval = 60 * time.Second

// Synchronizer owns the current catalog query and its last good page.
// Exactly one page is live; it is replaced wholesale on every successful
// fetch so subscribers never see a mix of two queries.
type Synchronizer struct {
	mu       sync.Mutex
	fetch    Fetcher
	query    model.CatalogQuery
	page     model.CatalogPage
	seq      uint64
	interval time.Duration

	subs    map[int]chan Event
	nextSub int
}

// New returns a synchronizer over the root scope, page 1, empty search.
func New(fetch Fetcher, interval time.Duration) *Synchronizer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Synchronizer{
		fetch:    fetch,
		query:    model.CatalogQuery{Scope: model.RootScope(), Page: 1},
		interval: interval,
		subs:     make(map[int]chan Event),
	}
}

// SetScope switches between the root view and a children view. The page
// resets to 1 and a refetch is issued immediately.
func (s *Synchronizer) SetScope(ctx context.Context, scope model.Scope) error {
	s.mu.Lock()
	s.query.Scope = scope
	s.query.Page = 1
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetSearchTerm updates the search filter, resets the page to 1 and issues
// a refetch.
func (s *Synchronizer) SetSearchTerm(ctx context.Context, term string) error {
	s.mu.Lock()
	s.query.SearchTerm = term
	s.query.Page = 1
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetView applies scope, search term and page in one step with a single
// fetch. Page values below 1 clamp to 1.
func (s *Synchronizer) SetView(ctx context.Context, scope model.Scope, term string, page int) error {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	s.query = model.CatalogQuery{Scope: scope, SearchTerm: term, Page: page}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetPage moves to page n (n >= 1) without touching scope or search and
// issues a refetch.
func (s *Synchronizer) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		return errors.New("page must be >= 1")
	}
	s.mu.Lock()
	s.query.Page = n
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh re-issues the fetch for the current query unconditionally. When a
// newer fetch was issued while this one was in flight, the stale response
// is discarded silently and Refresh returns nil; the newer fetch owns the
// cached page. A failed fetch leaves the previous page in place and returns
// (and publishes) the error.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	q := s.query
	s.mu.Unlock()

	list, err := s.fetch.ListCertificates(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		// A newer request was issued; this response is superseded
		// whether it succeeded or not.
		logging.Debugf("catalog: discarding stale response (seq %d, latest %d)", seq, s.seq)
		return nil
	}

	if err != nil {
		var expired *model.SessionExpiredError
		if errors.As(err, &expired) {
			// Forced logout already ran via the API hook; report as is.
			s.publishLocked(Event{Page: s.page, Err: err})
			return err
		}
		fetchErr := err
		var cfe *model.CatalogFetchError
		if !errors.As(err, &cfe) {
			fetchErr = &model.CatalogFetchError{Err: err}
		}
		logging.Warnf("catalog: fetch failed, keeping previous page: %v", err)
		s.publishLocked(Event{Page: s.page, Err: fetchErr})
		return fetchErr
	}

	s.page = model.CatalogPage{
		Items:      list.Items,
		TotalCount: list.Count,
		Page:       q.Page,
		PageSize:   len(list.Items),
		Loaded:     true,
	}
	s.publishLocked(Event{Page: s.page})
	return nil
}

// NotifyChanged signals that a mutation succeeded elsewhere (create,
// revoke, CRL regeneration). The response is always a full refetch; the
// server owns computed fields like expiry and revocation cascades.
func (s *Synchronizer) NotifyChanged() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.Refresh(ctx)
	}()
}

// CurrentPage returns the last successfully fetched page. Loaded is false
// before the first fetch resolves.
func (s *Synchronizer) CurrentPage() model.CatalogPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Query returns a copy of the current catalog query.
func (s *Synchronizer) Query() model.CatalogQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// StartPolling refreshes the catalog on a fixed interval until the returned
// stop function is called or ctx is canceled. Stop is idempotent; after it
// returns no further refreshes are issued by this poller.
func (s *Synchronizer) StartPolling(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() { close(done) })
	}

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Refresh(ctx)
			}
		}
	}()
	return stop
}

// Subscribe returns a channel of catalog events and a cancel function.
// Sends never block; a slow subscriber skips intermediate pages.
func (s *Synchronizer) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 8)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Synchronizer) publishLocked(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
