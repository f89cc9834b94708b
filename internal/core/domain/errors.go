package domain

import (
	"errors"
	"fmt"
)

// EntityKind names a foreign entity class validated against its owning
// service before a local write may reference it.
type EntityKind string

const (
	KindCargo       EntityKind = "cargo"
	KindStorageUnit EntityKind = "storage-unit"
	KindSpacecraft  EntityKind = "spacecraft"
	KindUser        EntityKind = "user"
)

var (
	ErrStorageUnitNotFound = errors.New("storage unit not found")
	ErrAllocationNotFound  = errors.New("allocation not found")
	ErrTransactionNotFound = errors.New("inventory transaction not found")
	ErrManifestNotFound    = errors.New("manifest not found")

	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrConcurrentModification surfaces an optimistic-lock conflict: the
	// entity changed between read and save. Safe to retry the whole request.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrUsageUnderflow: a negative usage delta would take the ledger below
	// zero. The allocation flows never release more than they reserved, so
	// this guard firing indicates a caller bug, not a business rejection.
	ErrUsageUnderflow = errors.New("usage would drop below zero")
)

// ReferenceNotFoundError: the owning service confirmed the entity does not
// exist. User-correctable.
type ReferenceNotFoundError struct {
	Kind  EntityKind
	ID    string
	Field string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q referenced by %s does not exist", e.Kind, e.ID, e.Field)
}

// ValidationUnavailableError: the owning service could not be reached or
// answered indeterminately. Never conflated with ReferenceNotFoundError;
// the caller may retry later.
type ValidationUnavailableError struct {
	Kind  EntityKind
	ID    string
	Field string
	Err   error
}

func (e *ValidationUnavailableError) Error() string {
	return fmt.Sprintf("could not validate %s %q referenced by %s: %v", e.Kind, e.ID, e.Field, e.Err)
}

func (e *ValidationUnavailableError) Unwrap() error { return e.Err }

// InsufficientCapacityError: the reservation does not fit the unit's
// remaining capacity. A business rejection, not a transient condition.
type InsufficientCapacityError struct {
	StorageUnitCode string
	RequestedMass   float64
	AvailableMass   float64
	RequestedVolume float64
	AvailableVolume float64
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity in unit %s: requested %.3fkg/%.3fm3, available %.3fkg/%.3fm3",
		e.StorageUnitCode, e.RequestedMass, e.RequestedVolume, e.AvailableMass, e.AvailableVolume)
}
