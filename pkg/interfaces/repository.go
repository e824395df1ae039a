package interfaces

import (
	"context"
	"errors"

	"github.com/goliatone/go-lifecycle/domain"
	"github.com/google/uuid"
)

// ErrItemNotFound reports lookups against items the content repository no
// longer holds. Schedule firing treats this as a terminal outcome.
var ErrItemNotFound = errors.New("repository: item not found")

// ItemState is the slice of item data the lifecycle runtime reads from the
// content repository: per-locale publication status plus the content model the
// item belongs to (which determines its workflow assignment).
type ItemState struct {
	ModelID uuid.UUID
	// PublishedLocales maps locale codes to their publication status. Locales
	// missing from the map are unpublished.
	PublishedLocales map[string]bool
}

// PublishedIn reports whether the item is published in at least one locale
// covered by the supplied scope.
func (s *ItemState) PublishedIn(scope domain.LocaleScope) bool {
	if s == nil {
		return false
	}
	for code, published := range s.PublishedLocales {
		if published && scope.Includes(code) {
			return true
		}
	}
	return false
}

// ContentRepository is the external collaborator owning item records. The
// lifecycle runtime never creates or destroys items; it only reads their state
// and flips per-locale publication flags.
type ContentRepository interface {
	// ItemExists reports whether the item is still present.
	ItemExists(ctx context.Context, itemID uuid.UUID) (bool, error)
	// GetItemState returns the publication state snapshot for the item,
	// or ErrItemNotFound when the item no longer exists.
	GetItemState(ctx context.Context, itemID uuid.UUID) (*ItemState, error)
	// SetPublicationState publishes or unpublishes the item for the scoped
	// locales. Implementations must apply the change atomically per item.
	SetPublicationState(ctx context.Context, itemID uuid.UUID, scope domain.LocaleScope, published bool) error
	// Locales returns the project's configured locale codes, used to validate
	// explicit locale scopes.
	Locales(ctx context.Context) ([]string, error)
}
