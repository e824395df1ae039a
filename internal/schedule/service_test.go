package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-lifecycle/domain"
	"github.com/goliatone/go-lifecycle/internal/schedule"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/goliatone/go-lifecycle/pkg/testsupport"
	"github.com/google/uuid"
)

func newService(t *testing.T, base time.Time, repo *testsupport.ItemRepository) schedule.Service {
	t.Helper()
	store := schedule.NewMemoryStore(schedule.WithClock(func() time.Time { return base }))
	return schedule.NewService(store, repo,
		schedule.WithServiceClock(func() time.Time { return base }),
	)
}

func TestServiceSetPublicationValidation(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := testsupport.NewItemRepository("en", "es")
	svc := newService(t, base, repo)

	itemID := uuid.New()
	repo.Seed(itemID, uuid.New())

	if _, err := svc.SetPublication(ctx, schedule.PublicationRequest{FireAt: base.Add(time.Hour)}); !errors.Is(err, schedule.ErrItemRequired) {
		t.Fatalf("expected ErrItemRequired, got %v", err)
	}
	if _, err := svc.SetPublication(ctx, schedule.PublicationRequest{ItemID: itemID, FireAt: base.Add(-time.Hour)}); !errors.Is(err, schedule.ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule for past fire_at, got %v", err)
	}
	if _, err := svc.SetPublication(ctx, schedule.PublicationRequest{ItemID: itemID, FireAt: base}); !errors.Is(err, schedule.ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule for present fire_at, got %v", err)
	}
	if _, err := svc.SetPublication(ctx, schedule.PublicationRequest{
		ItemID: itemID,
		FireAt: base.Add(time.Hour),
		Scope:  domain.LocaleSet("fr"),
	}); !errors.Is(err, domain.ErrUnknownLocale) {
		t.Fatalf("expected ErrUnknownLocale, got %v", err)
	}
	if _, err := svc.SetPublication(ctx, schedule.PublicationRequest{
		ItemID: uuid.New(),
		FireAt: base.Add(time.Hour),
	}); !errors.Is(err, interfaces.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound for missing item, got %v", err)
	}

	record, err := svc.SetPublication(ctx, schedule.PublicationRequest{
		ItemID: itemID,
		FireAt: base.Add(time.Hour),
		Scope:  domain.LocaleSet("ES", " en "),
	})
	if err != nil {
		t.Fatalf("set publication: %v", err)
	}
	scope := record.Scope()
	if scope.IsAll() || len(scope.Locales) != 2 {
		t.Fatalf("expected normalized two-locale scope, got %v", scope)
	}
}

func TestServiceSetUnpublishingRequiresPublishedItem(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := testsupport.NewItemRepository("en", "es")
	svc := newService(t, base, repo)

	draft := uuid.New()
	repo.Seed(draft, uuid.New())

	if _, err := svc.SetUnpublishing(ctx, schedule.UnpublishingRequest{
		ItemID: draft,
		FireAt: base.Add(time.Hour),
	}); !errors.Is(err, schedule.ErrItemNotPublished) {
		t.Fatalf("expected ErrItemNotPublished, got %v", err)
	}

	published := uuid.New()
	repo.SeedPublished(published, uuid.New(), "en")

	// Published in en, so an es-only unpublishing has nothing to undo.
	if _, err := svc.SetUnpublishing(ctx, schedule.UnpublishingRequest{
		ItemID: published,
		FireAt: base.Add(time.Hour),
		Scope:  domain.LocaleSet("es"),
	}); !errors.Is(err, schedule.ErrItemNotPublished) {
		t.Fatalf("expected ErrItemNotPublished outside published scope, got %v", err)
	}

	record, err := svc.SetUnpublishing(ctx, schedule.UnpublishingRequest{
		ItemID: published,
		FireAt: base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("set unpublishing: %v", err)
	}
	if !record.AllLocales {
		t.Fatalf("expected zero scope to default to all locales")
	}
}

func TestServiceCancelPassesThroughStoreErrors(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := testsupport.NewItemRepository("en")
	svc := newService(t, base, repo)

	if err := svc.CancelPublication(ctx, uuid.New()); !errors.Is(err, schedule.ErrNotScheduled) {
		t.Fatalf("expected ErrNotScheduled, got %v", err)
	}
	if err := svc.CancelUnpublishing(ctx, uuid.New()); !errors.Is(err, schedule.ErrNotScheduled) {
		t.Fatalf("expected ErrNotScheduled, got %v", err)
	}
	if err := svc.CancelPublication(ctx, uuid.Nil); !errors.Is(err, schedule.ErrItemRequired) {
		t.Fatalf("expected ErrItemRequired, got %v", err)
	}
}
