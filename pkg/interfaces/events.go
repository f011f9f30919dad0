package interfaces

import "github.com/google/uuid"

// SaveState is the externally visible auto-save status of a document.
type SaveState string

const (
	SaveStateSaved   SaveState = "saved"
	SaveStatePending SaveState = "pending"
	SaveStateSaving  SaveState = "saving"
	SaveStateError   SaveState = "error"
)

// Event is the envelope delivered to bus subscribers.
type Event struct {
	Type    string
	Payload any
}

// Event type identifiers.
const (
	EventTitleChanged        = "document.title_changed"
	EventSaveStatus          = "document.save_status"
	EventDocumentListChanged = "document.list_changed"
)

// TitleChanged notifies listeners that a document title moved; consumers
// update list views, tab labels, and anything else showing the title.
type TitleChanged struct {
	ID    uuid.UUID
	Title string
}

// SaveStatus reports auto-save state transitions for one document.
type SaveStatus struct {
	ID    uuid.UUID
	State SaveState
	Err   error
}

// DocumentListChanged signals that the set of known documents changed.
type DocumentListChanged struct{}

// EventBus is the in-process publish/subscribe channel shared by the editor
// surface and the persistence core. Publish never blocks the caller; slow
// subscribers drop events rather than stalling saves.
type EventBus interface {
	Subscribe() (<-chan Event, func())
	Publish(evt Event)
}
