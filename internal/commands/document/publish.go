package documentcmd

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/commands"
	"github.com/halim714/markpress/internal/editor"
	"github.com/halim714/markpress/pkg/interfaces"
)

const (
	publishDocumentMessageType   = "markpress.document.publish"
	unpublishDocumentMessageType = "markpress.document.unpublish"
)

// PublishDocumentCommand requests publication of a document to the public site.
type PublishDocumentCommand struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// Type implements command.Message.
func (PublishDocumentCommand) Type() string { return publishDocumentMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m PublishDocumentCommand) Validate() error {
	errs := validation.Errors{}
	if m.DocumentID == uuid.Nil {
		errs["document_id"] = validation.NewError("markpress.document.publish.document_id_required", "document_id is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// PublishDocumentHandler publishes documents via the editor engine.
type PublishDocumentHandler struct {
	inner *commands.Handler[PublishDocumentCommand]
}

// NewPublishDocumentHandler constructs a handler wired to the provided editor.
func NewPublishDocumentHandler(service *editor.Service, logger interfaces.Logger, opts ...commands.HandlerOption[PublishDocumentCommand]) *PublishDocumentHandler {
	exec := func(ctx context.Context, msg PublishDocumentCommand) error {
		_, err := service.Publish(ctx, msg.DocumentID)
		return err
	}

	handlerOpts := []commands.HandlerOption[PublishDocumentCommand]{
		commands.WithLogger[PublishDocumentCommand](logger),
		commands.WithOperation[PublishDocumentCommand]("document.publish"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &PublishDocumentHandler{
		inner: commands.NewHandler[PublishDocumentCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[PublishDocumentCommand].Execute.
func (h *PublishDocumentHandler) Execute(ctx context.Context, msg PublishDocumentCommand) error {
	return h.inner.Execute(ctx, msg)
}

// UnpublishDocumentCommand removes a document's public post and records the
// draft state.
type UnpublishDocumentCommand struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// Type implements command.Message.
func (UnpublishDocumentCommand) Type() string { return unpublishDocumentMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m UnpublishDocumentCommand) Validate() error {
	errs := validation.Errors{}
	if m.DocumentID == uuid.Nil {
		errs["document_id"] = validation.NewError("markpress.document.unpublish.document_id_required", "document_id is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// UnpublishDocumentHandler retracts published documents via the editor engine.
type UnpublishDocumentHandler struct {
	inner *commands.Handler[UnpublishDocumentCommand]
}

// NewUnpublishDocumentHandler constructs a handler wired to the provided editor.
func NewUnpublishDocumentHandler(service *editor.Service, logger interfaces.Logger, opts ...commands.HandlerOption[UnpublishDocumentCommand]) *UnpublishDocumentHandler {
	exec := func(ctx context.Context, msg UnpublishDocumentCommand) error {
		_, err := service.Unpublish(ctx, msg.DocumentID)
		return err
	}

	handlerOpts := []commands.HandlerOption[UnpublishDocumentCommand]{
		commands.WithLogger[UnpublishDocumentCommand](logger),
		commands.WithOperation[UnpublishDocumentCommand]("document.unpublish"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &UnpublishDocumentHandler{
		inner: commands.NewHandler[UnpublishDocumentCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[UnpublishDocumentCommand].Execute.
func (h *UnpublishDocumentHandler) Execute(ctx context.Context, msg UnpublishDocumentCommand) error {
	return h.inner.Execute(ctx, msg)
}
