package workflow

import (
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func NewWorkflowRepository(db *bun.DB) repository.Repository[*Workflow] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Workflow]{
		NewRecord: func() *Workflow { return &Workflow{} },
		GetID: func(w *Workflow) uuid.UUID {
			return w.ID
		},
		SetID: func(w *Workflow, id uuid.UUID) {
			w.ID = id
		},
		GetIdentifier: func() string {
			return "api_key"
		},
		GetIdentifierValue: func(w *Workflow) string {
			return w.APIKey
		},
	})
}

func NewItemStageRepository(db *bun.DB) repository.Repository[*ItemStage] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*ItemStage]{
		NewRecord: func() *ItemStage { return &ItemStage{} },
		GetID: func(is *ItemStage) uuid.UUID {
			return is.ItemID
		},
		SetID: func(is *ItemStage, id uuid.UUID) {
			is.ItemID = id
		},
		GetIdentifier: func() string {
			return "item_id"
		},
		GetIdentifierValue: func(is *ItemStage) string {
			if is == nil {
				return ""
			}
			return is.ItemID.String()
		},
	})
}

func wrapWithCache[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer) repository.Repository[T] {
	if cacheService == nil || keySerializer == nil {
		return base
	}
	return repositorycache.New(base, cacheService, keySerializer)
}
