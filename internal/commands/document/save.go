// Package documentcmd exposes the document lifecycle operations as
// dispatchable command messages over the shared handler foundation.
package documentcmd

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/commands"
	"github.com/halim714/markpress/internal/editor"
	"github.com/halim714/markpress/pkg/interfaces"
)

const saveDocumentMessageType = "markpress.document.save"

// SaveDocumentCommand forces an immediate save of any pending snapshot,
// bypassing the debounce window.
type SaveDocumentCommand struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// Type implements command.Message.
func (SaveDocumentCommand) Type() string { return saveDocumentMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m SaveDocumentCommand) Validate() error {
	errs := validation.Errors{}
	if m.DocumentID == uuid.Nil {
		errs["document_id"] = validation.NewError("markpress.document.save.document_id_required", "document_id is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SaveDocumentHandler flushes pending edits via the editor engine.
type SaveDocumentHandler struct {
	inner *commands.Handler[SaveDocumentCommand]
}

// NewSaveDocumentHandler constructs a handler wired to the provided editor.
func NewSaveDocumentHandler(service *editor.Service, logger interfaces.Logger, opts ...commands.HandlerOption[SaveDocumentCommand]) *SaveDocumentHandler {
	exec := func(ctx context.Context, msg SaveDocumentCommand) error {
		return service.Save(ctx, msg.DocumentID)
	}

	handlerOpts := []commands.HandlerOption[SaveDocumentCommand]{
		commands.WithLogger[SaveDocumentCommand](logger),
		commands.WithOperation[SaveDocumentCommand]("document.save"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &SaveDocumentHandler{
		inner: commands.NewHandler[SaveDocumentCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[SaveDocumentCommand].Execute.
func (h *SaveDocumentHandler) Execute(ctx context.Context, msg SaveDocumentCommand) error {
	return h.inner.Execute(ctx, msg)
}
