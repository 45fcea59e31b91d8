package cancel

import (
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterCancelRoutes mounts the cancellation endpoints on app.
func RegisterCancelRoutes[T any](app router.Router[T], scheduler *Scheduler, opts ...CancelControllerOption) *CancelController {
	controller := NewCancelController(scheduler, opts...)

	app.Get(controller.Routes.Confirm, controller.ConfirmGet)
	app.Post(controller.Routes.Request, controller.RequestPost)
	app.Post(controller.Routes.Bulk, controller.BulkPost)

	return controller
}

// NewHTTPServer returns a fiber backed server with the cancellation routes
// mounted under the root group.
func NewHTTPServer(scheduler *Scheduler, opts ...CancelControllerOption) (router.Server[*fiber.App], *CancelController) {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	controller := RegisterCancelRoutes(srv.Router().Group("/"), scheduler, opts...)

	return srv, controller
}

type CancelControllerRoutes struct {
	Confirm string
	Request string
	Bulk    string
}

type CancelController struct {
	Debug           bool
	Logger          Logger
	Scheduler       *Scheduler
	Bulk            *BulkCoordinator
	Routes          *CancelControllerRoutes
	InvokerResolver InvokerResolver
	ErrorHandler    router.ErrorHandler
}

type CancelControllerOption func(*CancelController) *CancelController

// WithControllerInvokerResolver overrides how the invoker is read from requests.
func WithControllerInvokerResolver(resolver InvokerResolver) CancelControllerOption {
	return func(cc *CancelController) *CancelController {
		if resolver != nil {
			cc.InvokerResolver = resolver
		}
		return cc
	}
}

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) CancelControllerOption {
	return func(cc *CancelController) *CancelController {
		if logger != nil {
			cc.Logger = logger
		}
		return cc
	}
}

// WithControllerDebug logs every outcome payload.
func WithControllerDebug(debug bool) CancelControllerOption {
	return func(cc *CancelController) *CancelController {
		cc.Debug = debug
		return cc
	}
}

func NewCancelController(scheduler *Scheduler, opts ...CancelControllerOption) *CancelController {
	c := &CancelController{
		Logger:          defLogger{},
		Scheduler:       scheduler,
		Bulk:            NewBulkCoordinator(scheduler),
		InvokerResolver: JWTInvokerResolver(InvokerSigningKey(scheduler.config)),
		ErrorHandler:    defaultErrHandler,
		Routes: &CancelControllerRoutes{
			Confirm: ConfirmationPathPattern,
			Request: "/user/:id/cancel",
			Bulk:    "/admin/people/cancel",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

// OutcomeResponse is the JSON body answered for each account.
type OutcomeResponse struct {
	AccountID   int64       `json:"account_id"`
	Disposition Disposition `json:"disposition,omitempty"`
	State       RunState    `json:"state,omitempty"`
	Message     string      `json:"message"`
	TextCode    string      `json:"text_code,omitempty"`
}

func NewOutcomeResponse(out Outcome) OutcomeResponse {
	return OutcomeResponse{
		AccountID:   out.AccountID,
		Disposition: out.Disposition,
		State:       out.State,
		Message:     out.Message(),
	}
}

// ConfirmGet handles the mailed confirmation link.
func (cc *CancelController) ConfirmGet(ctx router.Context) error {
	link, err := ParseConfirmationSegments(ctx.Param("id"), ctx.Param("timestamp"), ctx.Param("token"))
	if err != nil {
		return cc.ErrorHandler(ctx, err)
	}

	out, err := cc.Scheduler.ConfirmLink(ctx.Context(), link)
	if err != nil {
		return cc.ErrorHandler(ctx, err)
	}

	cc.debug(out)

	return ctx.JSON(router.StatusOK, NewOutcomeResponse(out))
}

type CancelRequestPayload struct {
	Policy              string `json:"policy"`
	NotifyOnCancel      bool   `json:"notify_on_cancel"`
	RequireConfirmation bool   `json:"require_confirmation"`
}

func (r CancelRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Policy, validation.By(validPolicyID)),
	)
}

// RequestPost starts a cancellation for the account in the path.
func (cc *CancelController) RequestPost(ctx router.Context) error {
	invoker, err := cc.invoker(ctx)
	if err != nil {
		return cc.ErrorHandler(ctx, err)
	}

	accountID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return cc.ErrorHandler(ctx, ErrAccountNotFound)
	}

	payload := new(CancelRequestPayload)
	if len(ctx.Body()) > 0 {
		if err := ctx.Bind(payload); err != nil {
			return cc.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid cancellation payload").
				WithCode(goerrors.CodeBadRequest))
		}
	}

	if err := payload.Validate(); err != nil {
		return cc.ErrorHandler(ctx, validationError(err))
	}

	out, err := cc.Scheduler.RequestCancellation(ctx.Context(), Request{
		AccountID:           accountID,
		Policy:              policyOrZero(payload.Policy),
		Invoker:             invoker,
		NotifyOnCancel:      payload.NotifyOnCancel,
		RequireConfirmation: payload.RequireConfirmation,
	})
	if err != nil {
		return cc.ErrorHandler(ctx, err)
	}

	cc.debug(out)

	return ctx.JSON(router.StatusOK, NewOutcomeResponse(out))
}

type BulkCancelPayload struct {
	AccountIDs          []int64 `json:"account_ids"`
	Policy              string  `json:"policy"`
	NotifyOnCancel      bool    `json:"notify_on_cancel"`
	RequireConfirmation bool    `json:"require_confirmation"`
}

func (r BulkCancelPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AccountIDs, validation.Required, validation.Length(1, 1000)),
		validation.Field(&r.Policy, validation.By(validPolicyID)),
	)
}

// BulkPost cancels the selected accounts and answers one result per account.
func (cc *CancelController) BulkPost(ctx router.Context) error {
	invoker, err := cc.invoker(ctx)
	if err != nil {
		return cc.ErrorHandler(ctx, err)
	}

	payload := new(BulkCancelPayload)
	if err := ctx.Bind(payload); err != nil {
		return cc.ErrorHandler(ctx, ErrInvalidBulkRequest)
	}

	if err := payload.Validate(); err != nil {
		return cc.ErrorHandler(ctx, validationError(err))
	}

	report := cc.Bulk.CancelMany(ctx.Context(), payload.AccountIDs, policyOrZero(payload.Policy), invoker, BulkOptions{
		RequireConfirmation: payload.RequireConfirmation,
		NotifyOnCancel:      payload.NotifyOnCancel,
	})

	results := make([]OutcomeResponse, 0, len(payload.AccountIDs))
	for _, id := range report.AccountIDs() {
		if err, ok := report.Errors[id]; ok {
			results = append(results, OutcomeResponse{
				AccountID: id,
				Message:   err.Error(),
				TextCode:  textCode(err),
			})
			continue
		}
		results = append(results, NewOutcomeResponse(report.PerAccount[id]))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"results": results,
	})
}

// invoker prefers an invoker already placed on the request by
// InvokerMiddleware.
func (cc *CancelController) invoker(ctx router.Context) (Invoker, error) {
	if inv, ok := InvokerFromContext(ctx.Context()); ok {
		return inv, nil
	}
	return cc.InvokerResolver(ctx)
}

func (cc *CancelController) debug(out Outcome) {
	if cc.Debug {
		cc.Logger.Debug("cancel outcome: %s", print.MaybePrettyJSON(out))
	}
}

func validPolicyID(value any) error {
	id, _ := value.(string)
	if id == "" {
		return nil
	}
	_, err := ParsePolicy(id)
	return err
}

func policyOrZero(id string) Policy {
	p, err := ParsePolicy(id)
	if err != nil {
		return 0
	}
	return p
}

func validationError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid cancellation payload").
		WithCode(goerrors.CodeBadRequest)
}

func defaultErrHandler(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = router.StatusInternalServerError
	}

	return ctx.JSON(code, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}
