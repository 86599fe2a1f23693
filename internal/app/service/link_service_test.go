package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/evanlinks/shortlink/internal/app/model"
	"github.com/evanlinks/shortlink/internal/app/repository"
)

func newTestService(t *testing.T, opts Options) (LinkService, repository.LinkStore) {
	t.Helper()
	ctx := context.Background()
	store, err := repository.NewLinkStore(ctx, repository.NewMemoryKV(), nil)
	if err != nil {
		t.Fatalf("NewLinkStore() error: %v", err)
	}
	svc, err := NewLinkService(ctx, store, nil, opts)
	if err != nil {
		t.Fatalf("NewLinkService() error: %v", err)
	}
	return svc, store
}

func TestLinkService_CreateNormalizesAndAllocates(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Options{})

	link, err := svc.Create(ctx, CreateLinkInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if link.OriginalURL != "https://example.com" {
		t.Fatalf("OriginalURL = %q, want https://example.com", link.OriginalURL)
	}
	if !regexp.MustCompile(`^[a-z0-9]{3}$`).MatchString(link.ShortCode) {
		t.Fatalf("ShortCode = %q, want 3 lowercase alphanumerics", link.ShortCode)
	}
	if link.ShortURL != "evanlinks.com/"+link.ShortCode {
		t.Fatalf("ShortURL = %q, want evanlinks.com/%s", link.ShortURL, link.ShortCode)
	}
	if link.Clicks != 0 {
		t.Fatalf("Clicks = %d on fresh record, want 0", link.Clicks)
	}
	if link.ID == "" || link.CreatedAt.IsZero() {
		t.Fatalf("record missing id or createdAt: %+v", link)
	}
	if store.Len() != 1 {
		t.Fatalf("store Len() = %d, want 1", store.Len())
	}
}

func TestLinkService_CreateDedupByURL(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Options{})

	first, err := svc.Create(ctx, CreateLinkInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("first Create() error: %v", err)
	}
	second, err := svc.Create(ctx, CreateLinkInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("second Create() error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("dedup returned id %q, want existing id %q", second.ID, first.ID)
	}
	if store.Len() != 1 {
		t.Fatalf("store Len() = %d after duplicate create, want 1", store.Len())
	}
}

func TestLinkService_CreateCustomCode(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	link, err := svc.Create(ctx, CreateLinkInput{URL: "example.com", CustomCode: "promo1"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if link.ShortCode != "promo1" || link.CustomCode != "promo1" {
		t.Fatalf("custom create got code %q customDomain %q, want promo1", link.ShortCode, link.CustomCode)
	}

	if _, err := svc.Create(ctx, CreateLinkInput{URL: "other.com", CustomCode: "www"}); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("reserved custom code error = %v, want ErrInvalidCode", err)
	}

	// Same code requested for a distinct URL collides.
	if _, err := svc.Create(ctx, CreateLinkInput{URL: "another.com", CustomCode: "promo1"}); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("taken custom code error = %v, want ErrInvalidCode", err)
	}
}

func TestLinkService_ResolveCountsClicks(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Options{})

	link, err := svc.Create(ctx, CreateLinkInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	resolved, err := svc.Resolve(ctx, link.ShortCode)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if resolved.Clicks != 1 {
		t.Fatalf("Clicks = %d after first resolve, want 1", resolved.Clicks)
	}

	resolved, err = svc.Resolve(ctx, link.ShortCode)
	if err != nil {
		t.Fatalf("second Resolve() error: %v", err)
	}
	if resolved.Clicks != 2 {
		t.Fatalf("Clicks = %d after second resolve, want 2", resolved.Clicks)
	}

	persisted, err := store.FindByCode(ctx, link.ShortCode)
	if err != nil {
		t.Fatalf("FindByCode() error: %v", err)
	}
	if persisted.Clicks != 2 {
		t.Fatalf("persisted Clicks = %d, want 2", persisted.Clicks)
	}
}

func TestLinkService_ResolveAbsentLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Options{})

	link, err := svc.Create(ctx, CreateLinkInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := svc.Resolve(ctx, "zzz"); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("Resolve(absent) error = %v, want ErrLinkNotFound", err)
	}
	persisted, _ := store.FindByCode(ctx, link.ShortCode)
	if persisted.Clicks != 0 || store.Len() != 1 {
		t.Fatalf("store changed by absent resolve: clicks=%d len=%d", persisted.Clicks, store.Len())
	}
}

func TestLinkService_ResolveExpiredStillResolves(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	past := time.Now().UTC().Add(-time.Hour)
	link, err := svc.Create(ctx, CreateLinkInput{URL: "example.com", ExpiryDate: &past})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !IsExpired(*link, time.Now()) {
		t.Fatalf("record with past expiry not reported expired")
	}

	resolved, err := svc.Resolve(ctx, link.ShortCode)
	if err != nil {
		t.Fatalf("Resolve(expired) error = %v, expiry must not block resolution", err)
	}
	if resolved.Clicks != 1 {
		t.Fatalf("Clicks = %d, want 1", resolved.Clicks)
	}
}

func TestLinkService_UpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	link, err := svc.Create(ctx, CreateLinkInput{URL: "example.com", CustomCode: "promo1"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := svc.Resolve(ctx, "promo1"); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	newURL := "changed.example.com"
	category := "work"
	updated, err := svc.Update(ctx, link.ID, UpdateLinkInput{URL: &newURL, Category: &category})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	if updated.ID != link.ID {
		t.Fatalf("Update changed id: %q -> %q", link.ID, updated.ID)
	}
	if !updated.CreatedAt.Equal(link.CreatedAt) {
		t.Fatalf("Update changed createdAt: %v -> %v", link.CreatedAt, updated.CreatedAt)
	}
	if updated.Clicks != 1 {
		t.Fatalf("Update changed clicks: want 1, got %d", updated.Clicks)
	}
	if updated.OriginalURL != "https://changed.example.com" {
		t.Fatalf("OriginalURL = %q, want normalized https://changed.example.com", updated.OriginalURL)
	}
	if updated.Category != "work" {
		t.Fatalf("Category = %q, want work", updated.Category)
	}
}

func TestLinkService_UpdateCodeCollision(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	if _, err := svc.Create(ctx, CreateLinkInput{URL: "a.example.com", CustomCode: "first"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	second, err := svc.Create(ctx, CreateLinkInput{URL: "b.example.com", CustomCode: "second"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	taken := "first"
	if _, err := svc.Update(ctx, second.ID, UpdateLinkInput{CustomCode: &taken}); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("Update to taken code error = %v, want ErrInvalidCode", err)
	}

	// Re-submitting the record's own code is not a collision.
	own := "second"
	if _, err := svc.Update(ctx, second.ID, UpdateLinkInput{CustomCode: &own}); err != nil {
		t.Fatalf("Update to own code error: %v", err)
	}

	fresh := "renamed"
	updated, err := svc.Update(ctx, second.ID, UpdateLinkInput{CustomCode: &fresh})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.ShortCode != "renamed" || updated.ShortURL != "evanlinks.com/renamed" {
		t.Fatalf("rename got code %q shortUrl %q", updated.ShortCode, updated.ShortURL)
	}
	if _, err := svc.Resolve(ctx, "renamed"); err != nil {
		t.Fatalf("Resolve(renamed) error: %v", err)
	}
}

func TestLinkService_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Options{})

	link, err := svc.Create(ctx, CreateLinkInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := svc.Delete(ctx, "missing"); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("Delete(missing) error = %v, want ErrLinkNotFound", err)
	}
	if err := svc.Delete(ctx, link.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("store Len() = %d after delete, want 0", store.Len())
	}

	if _, err := svc.Create(ctx, CreateLinkInput{URL: "a.example.com"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := svc.Create(ctx, CreateLinkInput{URL: "b.example.com"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := svc.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("store Len() = %d after clear, want 0", store.Len())
	}
}

func TestLinkService_FilteredByCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	if _, err := svc.Create(ctx, CreateLinkInput{URL: "a.example.com", Category: "work"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := svc.Create(ctx, CreateLinkInput{URL: "b.example.com", Category: "personal"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := svc.Create(ctx, CreateLinkInput{URL: "c.example.com"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	work, err := svc.Filtered(ctx, "work")
	if err != nil {
		t.Fatalf("Filtered() error: %v", err)
	}
	if len(work) != 1 || work[0].Category != "work" {
		t.Fatalf("Filtered(work) = %+v, want one work record", work)
	}

	all, err := svc.Filtered(ctx, "")
	if err != nil {
		t.Fatalf("Filtered() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Filtered(\"\") returned %d records, want 3", len(all))
	}
}

func TestLinkService_Export(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	link, err := svc.Create(ctx, CreateLinkInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := svc.Resolve(ctx, link.ShortCode); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	export, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if len(export) != 1 {
		t.Fatalf("Export() returned %d records, want 1", len(export))
	}
	got := export[0]
	if got.ShortURL != link.ShortURL || got.OriginalURL != link.OriginalURL ||
		got.Clicks != 1 || !got.CreatedAt.Equal(link.CreatedAt) {
		t.Fatalf("Export()[0] = %+v, want snapshot of %+v with 1 click", got, link)
	}
}

func TestLinkService_CreateDelayCancellable(t *testing.T) {
	svc, store := newTestService(t, Options{CreateDelay: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Create(ctx, CreateLinkInput{URL: "example.com"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Create(cancelled) error = %v, want context.Canceled", err)
	}
	if store.Len() != 0 {
		t.Fatalf("cancelled create mutated the store")
	}
}

func TestLinkService_CreateDelayDoesNotBlockResolve(t *testing.T) {
	ctx := context.Background()
	store, err := repository.NewLinkStore(ctx, repository.NewMemoryKV(), nil)
	if err != nil {
		t.Fatalf("NewLinkStore() error: %v", err)
	}
	seeded := model.LinkRecord{
		ID: "1", ShortCode: "abc", ShortURL: "evanlinks.com/abc",
		OriginalURL: "https://a.example.com", CreatedAt: time.Now().UTC(),
	}
	if err := store.SaveAll(ctx, []model.LinkRecord{seeded}); err != nil {
		t.Fatalf("SaveAll() error: %v", err)
	}
	svc, err := NewLinkService(ctx, store, nil, Options{CreateDelay: 500 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewLinkService() error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Create(ctx, CreateLinkInput{URL: "b.example.com"})
		done <- err
	}()

	// Give the create time to enter its pause, then resolve concurrently.
	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	if _, err := svc.Resolve(ctx, "abc"); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("Resolve blocked for %v while a create was pausing", elapsed)
	}

	if err := <-done; err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("store Len() = %d, want 2", store.Len())
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if IsExpired(model.LinkRecord{}, now) {
		t.Fatalf("record without expiry reported expired")
	}
	if !IsExpired(model.LinkRecord{ExpiryDate: &past}, now) {
		t.Fatalf("record with past expiry not reported expired")
	}
	if IsExpired(model.LinkRecord{ExpiryDate: &future}, now) {
		t.Fatalf("record with future expiry reported expired")
	}
	if !IsExpired(model.LinkRecord{ExpiryDate: &now}, now) {
		t.Fatalf("expiry exactly now should count as expired")
	}
}
