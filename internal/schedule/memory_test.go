package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-lifecycle/domain"
	"github.com/google/uuid"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMemoryStoreSetPublicationRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(fixedClock(base)))

	itemID := uuid.New()
	req := PublicationRequest{ItemID: itemID, FireAt: base.Add(time.Hour)}

	record, err := store.SetPublication(ctx, req)
	if err != nil {
		t.Fatalf("set publication: %v", err)
	}
	if record.ItemID != itemID {
		t.Fatalf("expected item %s, got %s", itemID, record.ItemID)
	}
	if !record.AllLocales {
		t.Fatalf("expected default scope to cover all locales")
	}

	if _, err := store.SetPublication(ctx, req); !errors.Is(err, ErrAlreadyScheduled) {
		t.Fatalf("expected ErrAlreadyScheduled, got %v", err)
	}

	// Unpublishing schedules are tracked independently.
	if _, err := store.SetUnpublishing(ctx, UnpublishingRequest{ItemID: itemID, FireAt: base.Add(2 * time.Hour)}); err != nil {
		t.Fatalf("set unpublishing: %v", err)
	}
}

func TestMemoryStoreCancelLifecycle(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(fixedClock(base)))

	itemID := uuid.New()
	if err := store.CancelPublication(ctx, itemID); !errors.Is(err, ErrNotScheduled) {
		t.Fatalf("expected ErrNotScheduled, got %v", err)
	}

	if _, err := store.SetPublication(ctx, PublicationRequest{ItemID: itemID, FireAt: base.Add(time.Minute)}); err != nil {
		t.Fatalf("set publication: %v", err)
	}
	if err := store.CancelPublication(ctx, itemID); err != nil {
		t.Fatalf("cancel publication: %v", err)
	}
	if _, err := store.GetPublication(ctx, itemID); !errors.Is(err, ErrNotScheduled) {
		t.Fatalf("expected record gone after cancel, got %v", err)
	}
}

func TestMemoryStoreCancelWhileClaimed(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(fixedClock(base)))

	itemID := uuid.New()
	if _, err := store.SetPublication(ctx, PublicationRequest{ItemID: itemID, FireAt: base.Add(-time.Minute)}); err != nil {
		t.Fatalf("set publication: %v", err)
	}
	claimed, err := store.Claim(ctx, KindPublication, itemID, base.Add(time.Minute))
	if err != nil || !claimed {
		t.Fatalf("expected claim to succeed, got claimed=%v err=%v", claimed, err)
	}

	if err := store.CancelPublication(ctx, itemID); !errors.Is(err, ErrAlreadyFiring) {
		t.Fatalf("expected ErrAlreadyFiring while claimed, got %v", err)
	}

	// Claims are exclusive while active.
	claimed, err = store.Claim(ctx, KindPublication, itemID, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatalf("expected second claim to lose")
	}
}

func TestMemoryStoreDueBeforeOrdering(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(fixedClock(base)))

	early := uuid.New()
	late := uuid.New()
	future := uuid.New()

	if _, err := store.SetPublication(ctx, PublicationRequest{ItemID: late, FireAt: base.Add(-time.Minute)}); err != nil {
		t.Fatalf("set late: %v", err)
	}
	if _, err := store.SetPublication(ctx, PublicationRequest{ItemID: early, FireAt: base.Add(-time.Hour)}); err != nil {
		t.Fatalf("set early: %v", err)
	}
	if _, err := store.SetPublication(ctx, PublicationRequest{ItemID: future, FireAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("set future: %v", err)
	}

	due, err := store.DueBefore(ctx, base, 10)
	if err != nil {
		t.Fatalf("due before: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due records, got %d", len(due))
	}
	if due[0].ItemID != early || due[1].ItemID != late {
		t.Fatalf("expected fire_at ordering, got %v then %v", due[0].ItemID, due[1].ItemID)
	}

	// Claimed records leave the due listing until the claim expires.
	if _, err := store.Claim(ctx, KindPublication, early, base.Add(time.Minute)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	due, err = store.DueBefore(ctx, base, 10)
	if err != nil {
		t.Fatalf("due before: %v", err)
	}
	if len(due) != 1 || due[0].ItemID != late {
		t.Fatalf("expected only unclaimed record, got %d records", len(due))
	}
}

func TestMemoryStoreReleaseAndFireFailed(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(fixedClock(base)))

	itemID := uuid.New()
	if _, err := store.SetUnpublishing(ctx, UnpublishingRequest{
		ItemID: itemID,
		FireAt: base.Add(-time.Minute),
		Scope:  domain.LocaleSet("en"),
	}); err != nil {
		t.Fatalf("set unpublishing: %v", err)
	}

	if _, err := store.Claim(ctx, KindUnpublishing, itemID, base.Add(time.Minute)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.Release(ctx, KindUnpublishing, itemID, errors.New("repo offline")); err != nil {
		t.Fatalf("release: %v", err)
	}

	record, err := store.GetUnpublishing(ctx, itemID)
	if err != nil {
		t.Fatalf("get unpublishing: %v", err)
	}
	if record.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", record.Attempts)
	}
	if record.LastError != "repo offline" {
		t.Fatalf("expected failure message, got %q", record.LastError)
	}
	if record.ClaimedUntil != nil {
		t.Fatalf("expected claim cleared after release")
	}

	if err := store.MarkFireFailed(ctx, KindUnpublishing, itemID, errors.New("gave up")); err != nil {
		t.Fatalf("mark fire failed: %v", err)
	}

	due, err := store.DueBefore(ctx, base, 10)
	if err != nil {
		t.Fatalf("due before: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected fire_failed records excluded from due listing")
	}

	failed, err := store.ListFireFailed(ctx)
	if err != nil {
		t.Fatalf("list fire failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ItemID != itemID {
		t.Fatalf("expected failed record listed, got %v", failed)
	}

	// Delete still works so operators can clean up.
	if err := store.Delete(ctx, KindUnpublishing, itemID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
