package main

import (
	"context"
	"fmt"
	"log"
	"time"

	lifecycle "github.com/goliatone/go-lifecycle"
	"github.com/goliatone/go-lifecycle/internal/workflow"
	"github.com/goliatone/go-lifecycle/pkg/testsupport"
	"github.com/google/uuid"
)

func main() {
	ctx := context.Background()

	repo := testsupport.NewItemRepository("en", "es")

	cfg := lifecycle.DefaultConfig()
	cfg.Storage.Provider = "bun"
	cfg.Dispatcher.Interval = time.Second
	cfg.Features.Logger = true
	cfg.Logging.Provider = "gologger"
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "debug"

	db, err := testsupport.NewBunDB()
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	module, err := lifecycle.New(cfg,
		lifecycle.WithContentRepository(repo),
		lifecycle.WithDB(db),
	)
	if err != nil {
		log.Fatalf("assemble module: %v", err)
	}
	if err := module.CreateTables(ctx); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	modelID := uuid.New()
	itemID := uuid.New()
	repo.Seed(itemID, modelID)

	// Editorial workflow with three ordered stages.
	flow, err := module.Workflows().CreateWorkflow(ctx, workflow.CreateRequest{
		Name:   "Editorial",
		APIKey: "editorial",
		Stages: []workflow.StageInput{
			{Name: "Draft", Color: "#999999"},
			{Name: "Review", Color: "#f5a623"},
			{Name: "Done", Color: "#2ecc71"},
		},
	})
	if err != nil {
		log.Fatalf("create workflow: %v", err)
	}
	if err := module.Workflows().AssignToModel(ctx, modelID, &flow.ID); err != nil {
		log.Fatalf("assign workflow: %v", err)
	}
	if err := module.Engine().MoveStage(ctx, itemID, flow.Stages[1].ID); err != nil {
		log.Fatalf("move stage: %v", err)
	}
	stage, err := module.Engine().CurrentStage(ctx, itemID)
	if err != nil {
		log.Fatalf("current stage: %v", err)
	}
	fmt.Printf("item %s now in stage %q\n", itemID, stage.Name)

	// Schedule a publication a moment out and let the dispatcher fire it.
	if _, err := module.Schedules().SetPublication(ctx, lifecycle.PublicationRequest{
		ItemID: itemID,
		FireAt: time.Now().UTC().Add(500 * time.Millisecond),
	}); err != nil {
		log.Fatalf("schedule publication: %v", err)
	}

	if err := module.Start(ctx); err != nil {
		log.Fatalf("start module: %v", err)
	}
	time.Sleep(3 * time.Second)
	if err := module.Stop(ctx); err != nil {
		log.Fatalf("stop module: %v", err)
	}

	fmt.Printf("published in en: %v, es: %v\n",
		repo.Published(itemID, "en"),
		repo.Published(itemID, "es"),
	)
}
