package cancel

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

type CancelAccountMessage struct {
	AccountID           int64  `json:"account_id" example:"42" doc:"Account to cancel."`
	Policy              Policy `json:"policy" doc:"Cancellation method, zero uses the configured one."`
	Invoker             Invoker
	NotifyOnCancel      bool `json:"notify_on_cancel"`
	RequireConfirmation bool `json:"require_confirmation"`
	OnResponse          func(out Outcome)
}

func (m CancelAccountMessage) Type() string { return "user.cancel" }

// CancelAccountHandler runs RequestCancellation as a command.
type CancelAccountHandler struct {
	scheduler *Scheduler
	logger    Logger
}

func NewCancelAccountHandler(scheduler *Scheduler) *CancelAccountHandler {
	return &CancelAccountHandler{scheduler: scheduler, logger: scheduler.logger}
}

func (h *CancelAccountHandler) WithLogger(logger Logger) *CancelAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CancelAccountHandler) Execute(ctx context.Context, event CancelAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account cancellation",
		)
	default:
	}

	out, err := h.scheduler.RequestCancellation(ctx, Request{
		AccountID:           event.AccountID,
		Policy:              event.Policy,
		Invoker:             event.Invoker,
		NotifyOnCancel:      event.NotifyOnCancel,
		RequireConfirmation: event.RequireConfirmation,
	})
	if err != nil {
		h.logger.Debug("cancel command for account %d failed: %v", event.AccountID, err)
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(out)
	}
	return nil
}

type ConfirmCancellationMessage struct {
	Link       ConfirmationLink
	OnResponse func(out Outcome)
}

func (m ConfirmCancellationMessage) Type() string { return "user.cancel.confirm" }

// ConfirmCancellationHandler runs ConfirmLink as a command.
type ConfirmCancellationHandler struct {
	scheduler *Scheduler
}

func NewConfirmCancellationHandler(scheduler *Scheduler) *ConfirmCancellationHandler {
	return &ConfirmCancellationHandler{scheduler: scheduler}
}

func (h *ConfirmCancellationHandler) Execute(ctx context.Context, event ConfirmCancellationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during cancellation confirmation",
		)
	default:
	}

	out, err := h.scheduler.ConfirmLink(ctx, event.Link)
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(out)
	}
	return nil
}
