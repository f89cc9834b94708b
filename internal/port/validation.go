package port

import (
	"context"

	"github.com/orbitek/cargo-storage/internal/core/domain"
)

// Existence is the three-valued result of asking an owning service whether
// an entity id is real. The zero value is Unknown so that a forgotten
// assignment can never read as "exists".
type Existence int

const (
	// ExistenceUnknown: the authority could not be reached, timed out, or
	// answered malformed. Must never be treated as confirmation.
	ExistenceUnknown Existence = iota
	ExistenceConfirmed
	ExistenceMissing
)

// ValidationPort answers "does an entity of one foreign kind with this id
// exist", backed by a remote call to the owning service. Implementations
// return a non-nil error only together with ExistenceUnknown, carrying the
// cause.
type ValidationPort interface {
	Exists(ctx context.Context, id string) (Existence, error)
}

// CargoCatalog extends the cargo validation port with the summary fetch the
// allocator needs to convert quantities into mass/volume deltas.
type CargoCatalog interface {
	ValidationPort

	// GetCargoType returns (nil, nil) when the cargo type does not exist
	// and a non-nil error when the cargo service is unreachable.
	GetCargoType(ctx context.Context, id string) (*domain.CargoType, error)
}

// Ref names one foreign reference on an inbound command: the entity kind,
// the id to check, and the command field it came from.
type Ref struct {
	Kind  domain.EntityKind
	ID    string
	Field string
}
