package interfaces

import "context"

// Uploader converts an attachment blob into a durable URL. The upload
// subsystem lives outside this module; only its boundary is specified here.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Classification is the result of AI-assisted attachment classification.
type Classification struct {
	Type        string
	Title       string
	Description string
}

// Classifier inspects an attachment and suggests presentation metadata.
// Classification failures must not abort the attach flow; callers fall back
// to filename-derived defaults.
type Classifier interface {
	Classify(ctx context.Context, name string, data []byte) (*Classification, error)
}
