package testsupport

import (
	"context"
	"sync"

	"github.com/goliatone/go-lifecycle/domain"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/google/uuid"
)

// ItemRepository is an in-memory content repository for tests. Items are
// seeded with Seed and mutated through the interfaces.ContentRepository
// surface the runtime drives.
type ItemRepository struct {
	mu      sync.Mutex
	locales []string
	items   map[uuid.UUID]*itemRecord

	// FailWith, when set, makes every repository call return this error.
	FailWith error
}

type itemRecord struct {
	modelID   uuid.UUID
	published map[string]bool
}

// NewItemRepository builds a repository configured with the given locales.
// Defaults to a single "en" locale when none are supplied.
func NewItemRepository(locales ...string) *ItemRepository {
	if len(locales) == 0 {
		locales = []string{"en"}
	}
	return &ItemRepository{
		locales: locales,
		items:   make(map[uuid.UUID]*itemRecord),
	}
}

// Seed registers an item belonging to the given content model.
func (r *ItemRepository) Seed(itemID, modelID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[itemID] = &itemRecord{
		modelID:   modelID,
		published: make(map[string]bool),
	}
}

// SeedPublished registers an item already published in the given locales.
func (r *ItemRepository) SeedPublished(itemID, modelID uuid.UUID, locales ...string) {
	r.Seed(itemID, modelID)
	r.mu.Lock()
	defer r.mu.Unlock()
	record := r.items[itemID]
	if len(locales) == 0 {
		locales = r.locales
	}
	for _, code := range locales {
		record.published[code] = true
	}
}

// Remove deletes an item, simulating out-of-band deletion.
func (r *ItemRepository) Remove(itemID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, itemID)
}

// Published reports the item's publication status for a locale.
func (r *ItemRepository) Published(itemID uuid.UUID, locale string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.items[itemID]
	if !ok {
		return false
	}
	return record.published[locale]
}

func (r *ItemRepository) ItemExists(_ context.Context, itemID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	_, ok := r.items[itemID]
	return ok, nil
}

func (r *ItemRepository) GetItemState(_ context.Context, itemID uuid.UUID) (*interfaces.ItemState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	record, ok := r.items[itemID]
	if !ok {
		return nil, interfaces.ErrItemNotFound
	}
	published := make(map[string]bool, len(record.published))
	for code, value := range record.published {
		published[code] = value
	}
	return &interfaces.ItemState{
		ModelID:          record.modelID,
		PublishedLocales: published,
	}, nil
}

func (r *ItemRepository) SetPublicationState(_ context.Context, itemID uuid.UUID, scope domain.LocaleScope, published bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	record, ok := r.items[itemID]
	if !ok {
		return interfaces.ErrItemNotFound
	}
	for _, code := range scope.Resolve(r.locales) {
		record.published[code] = published
	}
	return nil
}

func (r *ItemRepository) Locales(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	return append([]string(nil), r.locales...), nil
}
