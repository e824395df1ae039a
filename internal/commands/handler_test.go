package commands

import (
	"context"
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

type testMessage struct {
	Value string
}

func (testMessage) Type() string { return "lifecycle.test.message" }

func (m testMessage) Validate() error {
	if m.Value == "" {
		return validation.Errors{
			"value": validation.NewError("lifecycle.test.value_required", "value is required"),
		}
	}
	return nil
}

func TestHandlerValidatesBeforeExecuting(t *testing.T) {
	executed := false
	handler := NewHandler(func(context.Context, testMessage) error {
		executed = true
		return nil
	})

	err := handler.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if executed {
		t.Fatalf("handler ran despite invalid message")
	}

	if err := handler.Execute(context.Background(), testMessage{Value: "ok"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !executed {
		t.Fatalf("handler did not run")
	}
}

func TestHandlerWrapsExecutionFailures(t *testing.T) {
	handler := NewHandler(func(context.Context, testMessage) error {
		return errors.New("store offline")
	})

	err := handler.Execute(context.Background(), testMessage{Value: "ok"})
	if err == nil {
		t.Fatalf("expected execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
}

func TestHandlerHonoursCancelledContext(t *testing.T) {
	handler := NewHandler(func(context.Context, testMessage) error {
		t.Fatalf("handler must not run with cancelled context")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, testMessage{Value: "ok"})
	if err == nil {
		t.Fatalf("expected context error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
}
