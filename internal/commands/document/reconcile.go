package documentcmd

import (
	"context"
	"sync"

	"github.com/halim714/markpress/internal/commands"
	"github.com/halim714/markpress/internal/reconcile"
	"github.com/halim714/markpress/pkg/interfaces"
)

const reconcileMessageType = "markpress.document.reconcile"

// ReconcileCommand resynchronises the durable cache with the remote
// repository. DryRun plans without applying.
type ReconcileCommand struct {
	DryRun bool `json:"dry_run"`
}

// Type implements command.Message.
func (ReconcileCommand) Type() string { return reconcileMessageType }

// Validate implements command.Message; every field combination is valid.
func (ReconcileCommand) Validate() error { return nil }

// ReconcileHandler runs cache reconciliation and retains the last report for
// callers that want the outcome after dispatch.
type ReconcileHandler struct {
	inner *commands.Handler[ReconcileCommand]

	mu   sync.Mutex
	last *reconcile.Report
}

// NewReconcileHandler constructs a handler over the provided reconciler.
func NewReconcileHandler(rec *reconcile.Reconciler, logger interfaces.Logger, opts ...commands.HandlerOption[ReconcileCommand]) *ReconcileHandler {
	h := &ReconcileHandler{}

	exec := func(ctx context.Context, msg ReconcileCommand) error {
		report, err := rec.Reconcile(ctx, msg.DryRun)
		if err != nil {
			return err
		}
		h.mu.Lock()
		h.last = report
		h.mu.Unlock()
		return nil
	}

	handlerOpts := []commands.HandlerOption[ReconcileCommand]{
		commands.WithLogger[ReconcileCommand](logger),
		commands.WithOperation[ReconcileCommand]("document.reconcile"),
	}
	handlerOpts = append(handlerOpts, opts...)

	h.inner = commands.NewHandler[ReconcileCommand](exec, handlerOpts...)
	return h
}

// Execute satisfies command.Commander[ReconcileCommand].Execute.
func (h *ReconcileHandler) Execute(ctx context.Context, msg ReconcileCommand) error {
	return h.inner.Execute(ctx, msg)
}

// LastReport returns the report produced by the most recent execution, or nil.
func (h *ReconcileHandler) LastReport() *reconcile.Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
