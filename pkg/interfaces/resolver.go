package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// Fidelity grades a tier hit. Only a Full hit may be served as document
// content; Partial hits carry summary fields and routing hints only.
type Fidelity int

const (
	Miss Fidelity = iota
	Partial
	Full
)

func (f Fidelity) String() string {
	switch f {
	case Full:
		return "full"
	case Partial:
		return "partial"
	default:
		return "miss"
	}
}

// Provider is one tier in the resolver chain. A Partial result must include
// whatever routing hints the tier has (typically the filename) so later
// tiers can skip directory scans, but it never terminates the search.
type Provider interface {
	Name() string
	TryGet(ctx context.Context, id uuid.UUID) (*Document, Fidelity, error)
}

// Resolver walks an ordered provider chain and returns the first full
// document, backfilling every earlier tier on the way out.
type Resolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (*Document, error)
}
