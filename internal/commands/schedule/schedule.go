package schedulecmd

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-lifecycle/domain"
	"github.com/goliatone/go-lifecycle/internal/commands"
	"github.com/goliatone/go-lifecycle/internal/schedule"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/google/uuid"
)

const (
	schedulePublishMessageType     = "lifecycle.schedule.publish"
	cancelPublishMessageType       = "lifecycle.schedule.publish.cancel"
	scheduleUnpublishMessageType   = "lifecycle.schedule.unpublish"
	cancelUnpublishMessageType     = "lifecycle.schedule.unpublish.cancel"
)

func scopeFrom(allLocales bool, locales []string) domain.LocaleScope {
	if allLocales || len(locales) == 0 {
		return domain.AllLocales()
	}
	return domain.LocaleSet(locales...)
}

// SchedulePublishCommand requests a future publication for an item.
type SchedulePublishCommand struct {
	ItemID       uuid.UUID `json:"item_id"`
	FireAt       time.Time `json:"fire_at"`
	AllLocales   bool      `json:"all_locales,omitempty"`
	Locales      []string  `json:"locales,omitempty"`
	NonLocalized bool      `json:"non_localized,omitempty"`
}

// Type implements command.Message.
func (SchedulePublishCommand) Type() string { return schedulePublishMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m SchedulePublishCommand) Validate() error {
	errs := validation.Errors{}
	if m.ItemID == uuid.Nil {
		errs["item_id"] = validation.NewError("lifecycle.schedule.publish.item_id_required", "item_id is required")
	}
	if m.FireAt.IsZero() {
		errs["fire_at"] = validation.NewError("lifecycle.schedule.publish.fire_at_required", "fire_at is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SchedulePublishHandler registers publications via the schedule service.
type SchedulePublishHandler struct {
	inner *commands.Handler[SchedulePublishCommand]
}

// NewSchedulePublishHandler constructs a handler wired to the schedule service.
func NewSchedulePublishHandler(service schedule.Service, logger interfaces.Logger, opts ...commands.HandlerOption[SchedulePublishCommand]) *SchedulePublishHandler {
	exec := func(ctx context.Context, msg SchedulePublishCommand) error {
		_, err := service.SetPublication(ctx, schedule.PublicationRequest{
			ItemID:       msg.ItemID,
			FireAt:       msg.FireAt,
			Scope:        scopeFrom(msg.AllLocales, msg.Locales),
			NonLocalized: msg.NonLocalized,
		})
		return err
	}

	handlerOpts := []commands.HandlerOption[SchedulePublishCommand]{
		commands.WithLogger[SchedulePublishCommand](logger),
		commands.WithOperation[SchedulePublishCommand]("schedule.publish"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &SchedulePublishHandler{
		inner: commands.NewHandler[SchedulePublishCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[SchedulePublishCommand].Execute.
func (h *SchedulePublishHandler) Execute(ctx context.Context, msg SchedulePublishCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CancelScheduledPublishCommand removes a pending publication.
type CancelScheduledPublishCommand struct {
	ItemID uuid.UUID `json:"item_id"`
}

// Type implements command.Message.
func (CancelScheduledPublishCommand) Type() string { return cancelPublishMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m CancelScheduledPublishCommand) Validate() error {
	if m.ItemID == uuid.Nil {
		return validation.Errors{
			"item_id": validation.NewError("lifecycle.schedule.publish.cancel.item_id_required", "item_id is required"),
		}
	}
	return nil
}

// CancelScheduledPublishHandler cancels pending publications.
type CancelScheduledPublishHandler struct {
	inner *commands.Handler[CancelScheduledPublishCommand]
}

// NewCancelScheduledPublishHandler constructs a handler wired to the schedule service.
func NewCancelScheduledPublishHandler(service schedule.Service, logger interfaces.Logger, opts ...commands.HandlerOption[CancelScheduledPublishCommand]) *CancelScheduledPublishHandler {
	exec := func(ctx context.Context, msg CancelScheduledPublishCommand) error {
		return service.CancelPublication(ctx, msg.ItemID)
	}

	handlerOpts := []commands.HandlerOption[CancelScheduledPublishCommand]{
		commands.WithLogger[CancelScheduledPublishCommand](logger),
		commands.WithOperation[CancelScheduledPublishCommand]("schedule.publish.cancel"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &CancelScheduledPublishHandler{
		inner: commands.NewHandler[CancelScheduledPublishCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[CancelScheduledPublishCommand].Execute.
func (h *CancelScheduledPublishHandler) Execute(ctx context.Context, msg CancelScheduledPublishCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ScheduleUnpublishCommand requests a future unpublishing for an item.
type ScheduleUnpublishCommand struct {
	ItemID     uuid.UUID `json:"item_id"`
	FireAt     time.Time `json:"fire_at"`
	AllLocales bool      `json:"all_locales,omitempty"`
	Locales    []string  `json:"locales,omitempty"`
}

// Type implements command.Message.
func (ScheduleUnpublishCommand) Type() string { return scheduleUnpublishMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m ScheduleUnpublishCommand) Validate() error {
	errs := validation.Errors{}
	if m.ItemID == uuid.Nil {
		errs["item_id"] = validation.NewError("lifecycle.schedule.unpublish.item_id_required", "item_id is required")
	}
	if m.FireAt.IsZero() {
		errs["fire_at"] = validation.NewError("lifecycle.schedule.unpublish.fire_at_required", "fire_at is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ScheduleUnpublishHandler registers unpublishings via the schedule service.
type ScheduleUnpublishHandler struct {
	inner *commands.Handler[ScheduleUnpublishCommand]
}

// NewScheduleUnpublishHandler constructs a handler wired to the schedule service.
func NewScheduleUnpublishHandler(service schedule.Service, logger interfaces.Logger, opts ...commands.HandlerOption[ScheduleUnpublishCommand]) *ScheduleUnpublishHandler {
	exec := func(ctx context.Context, msg ScheduleUnpublishCommand) error {
		_, err := service.SetUnpublishing(ctx, schedule.UnpublishingRequest{
			ItemID: msg.ItemID,
			FireAt: msg.FireAt,
			Scope:  scopeFrom(msg.AllLocales, msg.Locales),
		})
		return err
	}

	handlerOpts := []commands.HandlerOption[ScheduleUnpublishCommand]{
		commands.WithLogger[ScheduleUnpublishCommand](logger),
		commands.WithOperation[ScheduleUnpublishCommand]("schedule.unpublish"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ScheduleUnpublishHandler{
		inner: commands.NewHandler[ScheduleUnpublishCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ScheduleUnpublishCommand].Execute.
func (h *ScheduleUnpublishHandler) Execute(ctx context.Context, msg ScheduleUnpublishCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CancelScheduledUnpublishCommand removes a pending unpublishing.
type CancelScheduledUnpublishCommand struct {
	ItemID uuid.UUID `json:"item_id"`
}

// Type implements command.Message.
func (CancelScheduledUnpublishCommand) Type() string { return cancelUnpublishMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m CancelScheduledUnpublishCommand) Validate() error {
	if m.ItemID == uuid.Nil {
		return validation.Errors{
			"item_id": validation.NewError("lifecycle.schedule.unpublish.cancel.item_id_required", "item_id is required"),
		}
	}
	return nil
}

// CancelScheduledUnpublishHandler cancels pending unpublishings.
type CancelScheduledUnpublishHandler struct {
	inner *commands.Handler[CancelScheduledUnpublishCommand]
}

// NewCancelScheduledUnpublishHandler constructs a handler wired to the schedule service.
func NewCancelScheduledUnpublishHandler(service schedule.Service, logger interfaces.Logger, opts ...commands.HandlerOption[CancelScheduledUnpublishCommand]) *CancelScheduledUnpublishHandler {
	exec := func(ctx context.Context, msg CancelScheduledUnpublishCommand) error {
		return service.CancelUnpublishing(ctx, msg.ItemID)
	}

	handlerOpts := []commands.HandlerOption[CancelScheduledUnpublishCommand]{
		commands.WithLogger[CancelScheduledUnpublishCommand](logger),
		commands.WithOperation[CancelScheduledUnpublishCommand]("schedule.unpublish.cancel"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &CancelScheduledUnpublishHandler{
		inner: commands.NewHandler[CancelScheduledUnpublishCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[CancelScheduledUnpublishCommand].Execute.
func (h *CancelScheduledUnpublishHandler) Execute(ctx context.Context, msg CancelScheduledUnpublishCommand) error {
	return h.inner.Execute(ctx, msg)
}
