package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/orbitek/cargo-storage/internal/core/domain"
	"github.com/orbitek/cargo-storage/internal/port"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be non-negative")
	ErrInvalidCapacity = errors.New("capacity must be positive")
)

// AllocationService keeps the capacity ledger in sync with the allocation
// record lifecycle: create reserves, quantity update swaps, delete releases.
// Reference validation always runs to completion before the first mutation.
type AllocationService struct {
	units       port.StorageUnitRepository
	allocations port.AllocationRepository
	cache       port.CacheRepository
	cargo       port.CargoCatalog
	validator   *ReferenceValidator
	syncQueue   chan string
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewAllocationService(
	units port.StorageUnitRepository,
	allocations port.AllocationRepository,
	cache port.CacheRepository,
	cargo port.CargoCatalog,
	validator *ReferenceValidator,
	syncQueueSize int,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		units:       units,
		allocations: allocations,
		cache:       cache,
		cargo:       cargo,
		validator:   validator,
		syncQueue:   make(chan string, syncQueueSize),
		logger:      logger,
		tracer:      otel.Tracer("cargo-storage/allocation"),
	}
}

type CreateAllocationCommand struct {
	StorageUnitCode string
	CargoTypeID     string
	Quantity        int
	ActingUserID    string
}

type UpdateAllocationQuantityCommand struct {
	AllocationID string
	NewQuantity  int
}

// fetchCargoType resolves the cargo summary and doubles as the existence
// check for the cargo reference.
func (s *AllocationService) fetchCargoType(ctx context.Context, id, field string) (*domain.CargoType, error) {
	ct, err := s.cargo.GetCargoType(ctx, id)
	if err != nil {
		return nil, &domain.ValidationUnavailableError{Kind: domain.KindCargo, ID: id, Field: field, Err: err}
	}
	if ct == nil {
		return nil, &domain.ReferenceNotFoundError{Kind: domain.KindCargo, ID: id, Field: field}
	}
	return ct, nil
}

func (s *AllocationService) Create(ctx context.Context, cmd CreateAllocationCommand) (*domain.CargoAllocation, error) {
	ctx, span := s.tracer.Start(ctx, "allocation.create")
	defer span.End()

	if cmd.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	cargoType, err := s.fetchCargoType(ctx, cmd.CargoTypeID, "cargoTypeId")
	if err != nil {
		return nil, err
	}

	err = s.validator.RequireAll(ctx,
		port.Ref{Kind: domain.KindStorageUnit, ID: cmd.StorageUnitCode, Field: "storageUnitId"},
		port.Ref{Kind: domain.KindUser, ID: cmd.ActingUserID, Field: "actingUserId"},
	)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	alloc := domain.CargoAllocation{
		ID:              uuid.NewString(),
		StorageUnitCode: cmd.StorageUnitCode,
		CargoTypeID:     cmd.CargoTypeID,
		Quantity:        cmd.Quantity,
		LastCheckedAt:   now,
		LastCheckedBy:   cmd.ActingUserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	deltaMass := cargoType.MassFor(cmd.Quantity)
	deltaVolume := cargoType.VolumeFor(cmd.Quantity)

	if err := s.allocations.CreateAllocation(ctx, alloc, deltaMass, deltaVolume); err != nil {
		return nil, err
	}

	s.enqueueSync(cmd.StorageUnitCode)
	return &alloc, nil
}

func (s *AllocationService) UpdateQuantity(ctx context.Context, cmd UpdateAllocationQuantityCommand) (*domain.CargoAllocation, error) {
	ctx, span := s.tracer.Start(ctx, "allocation.update_quantity")
	defer span.End()

	if cmd.NewQuantity < 0 {
		return nil, ErrInvalidQuantity
	}

	alloc, err := s.allocations.GetAllocation(ctx, cmd.AllocationID)
	if err != nil {
		return nil, fmt.Errorf("load allocation: %w", err)
	}
	if alloc == nil {
		return nil, domain.ErrAllocationNotFound
	}

	cargoType, err := s.fetchCargoType(ctx, alloc.CargoTypeID, "cargoTypeId")
	if err != nil {
		return nil, err
	}

	// One atomic reservation swap: the net delta either fits or the ledger
	// stays exactly where it was. prevQuantity pins the swap to the state
	// the deltas were derived from.
	prevQuantity := alloc.Quantity
	netDeltaMass := cargoType.MassFor(cmd.NewQuantity) - cargoType.MassFor(prevQuantity)
	netDeltaVolume := cargoType.VolumeFor(cmd.NewQuantity) - cargoType.VolumeFor(prevQuantity)

	alloc.Quantity = cmd.NewQuantity
	alloc.LastCheckedAt = time.Now()
	alloc.UpdatedAt = alloc.LastCheckedAt

	if err := s.allocations.UpdateAllocationQuantity(ctx, *alloc, prevQuantity, netDeltaMass, netDeltaVolume); err != nil {
		return nil, err
	}

	s.enqueueSync(alloc.StorageUnitCode)
	return alloc, nil
}

// Delete removes the allocation and releases its reserved mass/volume in the
// same transaction, so deleted allocations cannot leak capacity.
func (s *AllocationService) Delete(ctx context.Context, allocationID string) error {
	ctx, span := s.tracer.Start(ctx, "allocation.delete")
	defer span.End()

	alloc, err := s.allocations.GetAllocation(ctx, allocationID)
	if err != nil {
		return fmt.Errorf("load allocation: %w", err)
	}
	if alloc == nil {
		return domain.ErrAllocationNotFound
	}

	cargoType, err := s.fetchCargoType(ctx, alloc.CargoTypeID, "cargoTypeId")
	if err != nil {
		return err
	}

	deltaMass := cargoType.MassFor(alloc.Quantity)
	deltaVolume := cargoType.VolumeFor(alloc.Quantity)

	if err := s.allocations.DeleteAllocation(ctx, *alloc, deltaMass, deltaVolume); err != nil {
		return err
	}

	s.enqueueSync(alloc.StorageUnitCode)
	return nil
}

func (s *AllocationService) Get(ctx context.Context, allocationID string) (*domain.CargoAllocation, error) {
	alloc, err := s.allocations.GetAllocation(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if alloc == nil {
		return nil, domain.ErrAllocationNotFound
	}
	return alloc, nil
}

func (s *AllocationService) ListByUnit(ctx context.Context, unitCode string) ([]domain.CargoAllocation, error) {
	return s.allocations.ListAllocationsByUnit(ctx, unitCode)
}

type CreateStorageUnitCommand struct {
	Code           string
	MassCapacity   float64
	VolumeCapacity float64
}

func (s *AllocationService) CreateStorageUnit(ctx context.Context, cmd CreateStorageUnitCommand) (*domain.StorageUnit, error) {
	ctx, span := s.tracer.Start(ctx, "storage_unit.create")
	defer span.End()

	if cmd.MassCapacity <= 0 || cmd.VolumeCapacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	now := time.Now()
	unit := domain.StorageUnit{
		Code:           cmd.Code,
		MassCapacity:   cmd.MassCapacity,
		VolumeCapacity: cmd.VolumeCapacity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.units.CreateStorageUnit(ctx, unit); err != nil {
		return nil, err
	}

	if err := s.cache.SetUnitSnapshot(ctx, unit); err != nil {
		s.logger.Warn("failed to mirror new unit", zap.String("unit", unit.Code), zap.Error(err))
	}
	return &unit, nil
}

// GetStorageUnit serves reads from the cache mirror when possible and falls
// back to the database.
func (s *AllocationService) GetStorageUnit(ctx context.Context, code string) (*domain.StorageUnit, error) {
	if unit, err := s.cache.GetUnitSnapshot(ctx, code); err == nil && unit != nil {
		return unit, nil
	} else if err != nil {
		s.logger.Warn("unit snapshot read failed", zap.String("unit", code), zap.Error(err))
	}

	unit, err := s.units.GetStorageUnit(ctx, code)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrStorageUnitNotFound
	}
	return unit, nil
}

func (s *AllocationService) ListStorageUnits(ctx context.Context) ([]domain.StorageUnit, error) {
	return s.units.ListStorageUnits(ctx)
}

// SyncQueue exposes the channel of unit codes whose cache mirror needs a
// refresh after a ledger mutation.
func (s *AllocationService) SyncQueue() <-chan string {
	return s.syncQueue
}

func (s *AllocationService) Close() {
	close(s.syncQueue)
}

// enqueueSync is best-effort: the mirror serves reads only, so a full queue
// drops the refresh instead of stalling a write.
func (s *AllocationService) enqueueSync(unitCode string) {
	select {
	case s.syncQueue <- unitCode:
	default:
		s.logger.Warn("usage sync queue full, dropping refresh", zap.String("unit", unitCode))
	}
}
