package migrations

import (
	"context"
	"fmt"

	"github.com/goliatone/go-lifecycle/internal/jobs"
	"github.com/goliatone/go-lifecycle/internal/schedule"
	"github.com/goliatone/go-lifecycle/internal/workflow"
	"github.com/uptrace/bun"
)

// Models returns every bun model the module persists, in creation order.
func Models() []any {
	return []any{
		(*schedule.ScheduledPublication)(nil),
		(*schedule.ScheduledUnpublishing)(nil),
		(*workflow.Workflow)(nil),
		(*workflow.Stage)(nil),
		(*workflow.ModelAssignment)(nil),
		(*workflow.ItemStage)(nil),
		(*jobs.Job)(nil),
	}
}

// RegisterModels registers the module's models with the bun handle so
// relations resolve.
func RegisterModels(db *bun.DB) {
	for _, model := range Models() {
		db.RegisterModel(model)
	}
}

// CreateTables creates the module's tables if they do not exist. Intended for
// embedded deployments and tests; production setups typically run their own
// migration tooling against the same models.
func CreateTables(ctx context.Context, db *bun.DB) error {
	RegisterModels(db)
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("migrations: create table %T: %w", model, err)
		}
	}
	return nil
}
