package documentcmd

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/commands"
	"github.com/halim714/markpress/internal/editor"
	"github.com/halim714/markpress/pkg/interfaces"
)

const deleteDocumentMessageType = "markpress.document.delete"

// DeleteDocumentCommand removes a document from the remote repository, the
// cache, and the session. Published documents are retracted first.
type DeleteDocumentCommand struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// Type implements command.Message.
func (DeleteDocumentCommand) Type() string { return deleteDocumentMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m DeleteDocumentCommand) Validate() error {
	errs := validation.Errors{}
	if m.DocumentID == uuid.Nil {
		errs["document_id"] = validation.NewError("markpress.document.delete.document_id_required", "document_id is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DeleteDocumentHandler deletes documents via the editor engine.
type DeleteDocumentHandler struct {
	inner *commands.Handler[DeleteDocumentCommand]
}

// NewDeleteDocumentHandler constructs a handler wired to the provided editor.
func NewDeleteDocumentHandler(service *editor.Service, logger interfaces.Logger, opts ...commands.HandlerOption[DeleteDocumentCommand]) *DeleteDocumentHandler {
	exec := func(ctx context.Context, msg DeleteDocumentCommand) error {
		return service.Delete(ctx, msg.DocumentID)
	}

	handlerOpts := []commands.HandlerOption[DeleteDocumentCommand]{
		commands.WithLogger[DeleteDocumentCommand](logger),
		commands.WithOperation[DeleteDocumentCommand]("document.delete"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &DeleteDocumentHandler{
		inner: commands.NewHandler[DeleteDocumentCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[DeleteDocumentCommand].Execute.
func (h *DeleteDocumentHandler) Execute(ctx context.Context, msg DeleteDocumentCommand) error {
	return h.inner.Execute(ctx, msg)
}
