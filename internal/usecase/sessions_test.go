package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"campusvoice/internal/domain"
)

func TestCatalogRefreshReplacesWholesale(t *testing.T) {
	t.Parallel()

	service := newFakeAnswerService()
	sink := &fakeEventSink{}
	catalog := newSessionCatalog(service, sink, time.Second)

	service.catalog = []domain.Session{{ID: "a", Title: "first"}, {ID: "b", Title: "second"}}
	if _, err := catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	// A session deleted server-side disappears locally on the next fetch.
	service.mu.Lock()
	service.catalog = []domain.Session{{ID: "b", Title: "second"}}
	service.mu.Unlock()
	if _, err := catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	got := catalog.Snapshot()
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected wholesale replacement, got %+v", got)
	}
	if lists := sink.snapshotSessionLists(); len(lists) != 2 {
		t.Fatalf("expected 2 catalog events, got %d", len(lists))
	}
}

func TestCatalogRefreshAuthExpiry(t *testing.T) {
	t.Parallel()

	service := newFakeAnswerService()
	service.catalogErr = domain.ErrAuthExpired
	catalog := newSessionCatalog(service, &fakeEventSink{}, time.Second)

	handoffs := 0
	catalog.onAuthExpired = func() { handoffs++ }

	if _, err := catalog.Refresh(context.Background()); !errors.Is(err, domain.ErrAuthExpired) {
		t.Fatalf("expected auth expiry, got %v", err)
	}
	if handoffs != 1 {
		t.Fatalf("expected one auth handoff, got %d", handoffs)
	}
}

func TestCatalogAdoptSetsActiveAndRefreshes(t *testing.T) {
	t.Parallel()

	service := newFakeAnswerService()
	service.catalog = []domain.Session{{ID: "minted", Title: "new chat"}}
	sink := &fakeEventSink{}
	catalog := newSessionCatalog(service, sink, time.Second)

	catalog.Adopt("minted")

	if got := catalog.Active(); got != "minted" {
		t.Fatalf("expected active session minted, got %q", got)
	}
	waitUntil(t, "background refresh", func() bool {
		return len(sink.snapshotSessionLists()) == 1
	})
}

func TestCatalogSelectIsLocal(t *testing.T) {
	t.Parallel()

	service := newFakeAnswerService()
	catalog := newSessionCatalog(service, &fakeEventSink{}, time.Second)

	catalog.Select("s9")
	if got := catalog.Active(); got != "s9" {
		t.Fatalf("expected s9, got %q", got)
	}
	if service.askCount() != 0 {
		t.Fatalf("select must not call the service")
	}

	catalog.Select("")
	if got := catalog.Active(); got != "" {
		t.Fatalf("expected unassigned, got %q", got)
	}
}
