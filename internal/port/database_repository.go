package port

import (
	"context"

	"github.com/orbitek/cargo-storage/internal/core/domain"
)

// CapacityLedger is the bookkeeping of used vs. total mass/volume for a
// storage unit. Check and increment are one atomic step per unit: two
// concurrent reservations that do not fit together must never both succeed.
type CapacityLedger interface {
	// Reserve adds the deltas to the unit's usage if both fit. Returns
	// *domain.InsufficientCapacityError when they do not, and
	// domain.ErrStorageUnitNotFound for an unknown unit.
	Reserve(ctx context.Context, unitCode string, deltaMass, deltaVolume float64) error

	// Release subtracts the deltas from the unit's usage. It never fails on
	// capacity grounds; usage is clamped at zero.
	Release(ctx context.Context, unitCode string, deltaMass, deltaVolume float64) error
}

type StorageUnitRepository interface {
	CreateStorageUnit(ctx context.Context, unit domain.StorageUnit) error

	// GetStorageUnit returns (nil, nil) when the unit does not exist.
	GetStorageUnit(ctx context.Context, code string) (*domain.StorageUnit, error)

	ListStorageUnits(ctx context.Context) ([]domain.StorageUnit, error)
}

// AllocationRepository combines each allocation row mutation with its ledger
// adjustment in one storage-level transaction, so a failed reservation never
// leaves a persisted record and vice versa.
type AllocationRepository interface {
	// CreateAllocation inserts the record and reserves its deltas atomically.
	CreateAllocation(ctx context.Context, alloc domain.CargoAllocation, deltaMass, deltaVolume float64) error

	// GetAllocation returns (nil, nil) when the allocation does not exist.
	GetAllocation(ctx context.Context, id string) (*domain.CargoAllocation, error)

	ListAllocationsByUnit(ctx context.Context, unitCode string) ([]domain.CargoAllocation, error)

	// UpdateAllocationQuantity persists the new quantity and applies the
	// signed net deltas as one atomic reservation swap: the old amount is
	// never observable as released while the new one failed to reserve.
	// The row mutation is guarded by prevQuantity, the base the deltas were
	// computed from; if the stored quantity has moved since that read the
	// whole operation fails with domain.ErrConcurrentModification and the
	// ledger stays untouched.
	UpdateAllocationQuantity(ctx context.Context, alloc domain.CargoAllocation, prevQuantity int, netDeltaMass, netDeltaVolume float64) error

	// DeleteAllocation removes the record and releases its deltas atomically.
	// Guarded by alloc.Quantity the same way as UpdateAllocationQuantity.
	DeleteAllocation(ctx context.Context, alloc domain.CargoAllocation, deltaMass, deltaVolume float64) error
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, rec domain.InventoryTransaction) error

	// GetTransaction returns (nil, nil) when the record does not exist.
	GetTransaction(ctx context.Context, id string) (*domain.InventoryTransaction, error)

	ListTransactions(ctx context.Context, limit int) ([]domain.InventoryTransaction, error)

	// UpdateTransactionReason changes the reason code, the only mutable
	// field of an otherwise immutable record. Returns
	// domain.ErrTransactionNotFound for an unknown id.
	UpdateTransactionReason(ctx context.Context, id, reasonCode string) error
}

type ManifestRepository interface {
	CreateManifest(ctx context.Context, m domain.CargoManifest) error

	// GetManifest returns (nil, nil) when the manifest does not exist.
	GetManifest(ctx context.Context, id string) (*domain.CargoManifest, error)

	// SaveManifest overwrites every column from the merged entity, guarded
	// by the version the entity was loaded with. Returns
	// domain.ErrConcurrentModification on a stale version.
	SaveManifest(ctx context.Context, m domain.CargoManifest) error

	ListManifestsBySpacecraft(ctx context.Context, spacecraftID string) ([]domain.CargoManifest, error)
}
