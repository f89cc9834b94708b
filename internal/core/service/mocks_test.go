package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/orbitek/cargo-storage/internal/core/domain"
	"github.com/orbitek/cargo-storage/internal/port"
)

// memStore implements the repository ports in memory. Ledger mutations take
// the store mutex for the whole check-and-apply, matching the single atomic
// step the MySQL adapter performs with a conditional UPDATE.
type memStore struct {
	mu           sync.Mutex
	units        map[string]*domain.StorageUnit
	allocations  map[string]*domain.CargoAllocation
	transactions map[string]*domain.InventoryTransaction
	manifests    map[string]*domain.CargoManifest

	// createTransactionErr, when set, fails the next CreateTransaction.
	createTransactionErr error
}

func newMemStore() *memStore {
	return &memStore{
		units:        make(map[string]*domain.StorageUnit),
		allocations:  make(map[string]*domain.CargoAllocation),
		transactions: make(map[string]*domain.InventoryTransaction),
		manifests:    make(map[string]*domain.CargoManifest),
	}
}

// applyDelta assumes the caller holds the mutex.
func (s *memStore) applyDelta(code string, deltaMass, deltaVolume float64) error {
	unit, ok := s.units[code]
	if !ok {
		return domain.ErrStorageUnitNotFound
	}
	newMass := unit.UsedMass + deltaMass
	newVolume := unit.UsedVolume + deltaVolume
	if newMass < 0 || newVolume < 0 {
		return fmt.Errorf("unit %s: %w", code, domain.ErrUsageUnderflow)
	}
	if newMass > unit.MassCapacity || newVolume > unit.VolumeCapacity {
		return &domain.InsufficientCapacityError{
			StorageUnitCode: code,
			RequestedMass:   deltaMass,
			AvailableMass:   unit.AvailableMass(),
			RequestedVolume: deltaVolume,
			AvailableVolume: unit.AvailableVolume(),
		}
	}
	unit.UsedMass = newMass
	unit.UsedVolume = newVolume
	unit.Version++
	return nil
}

func (s *memStore) CreateStorageUnit(_ context.Context, unit domain.StorageUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[unit.Code] = &unit
	return nil
}

func (s *memStore) GetStorageUnit(_ context.Context, code string) (*domain.StorageUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit, ok := s.units[code]
	if !ok {
		return nil, nil
	}
	copied := *unit
	return &copied, nil
}

func (s *memStore) ListStorageUnits(_ context.Context) ([]domain.StorageUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StorageUnit
	for _, u := range s.units {
		out = append(out, *u)
	}
	return out, nil
}

func (s *memStore) CreateAllocation(_ context.Context, alloc domain.CargoAllocation, deltaMass, deltaVolume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.applyDelta(alloc.StorageUnitCode, deltaMass, deltaVolume); err != nil {
		return err
	}
	s.allocations[alloc.ID] = &alloc
	return nil
}

func (s *memStore) GetAllocation(_ context.Context, id string) (*domain.CargoAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alloc, ok := s.allocations[id]
	if !ok {
		return nil, nil
	}
	copied := *alloc
	return &copied, nil
}

func (s *memStore) ListAllocationsByUnit(_ context.Context, unitCode string) ([]domain.CargoAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CargoAllocation
	for _, a := range s.allocations {
		if a.StorageUnitCode == unitCode {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) UpdateAllocationQuantity(_ context.Context, alloc domain.CargoAllocation, prevQuantity int, netDeltaMass, netDeltaVolume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.allocations[alloc.ID]
	if !ok {
		return domain.ErrAllocationNotFound
	}
	if existing.Quantity != prevQuantity {
		return domain.ErrConcurrentModification
	}
	if err := s.applyDelta(alloc.StorageUnitCode, netDeltaMass, netDeltaVolume); err != nil {
		return err
	}
	s.allocations[alloc.ID] = &alloc
	return nil
}

func (s *memStore) DeleteAllocation(_ context.Context, alloc domain.CargoAllocation, deltaMass, deltaVolume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.allocations[alloc.ID]
	if !ok {
		return domain.ErrAllocationNotFound
	}
	if existing.Quantity != alloc.Quantity {
		return domain.ErrConcurrentModification
	}
	if err := s.applyDelta(alloc.StorageUnitCode, -deltaMass, -deltaVolume); err != nil {
		return err
	}
	delete(s.allocations, alloc.ID)
	return nil
}

func (s *memStore) CreateTransaction(_ context.Context, rec domain.InventoryTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createTransactionErr != nil {
		return s.createTransactionErr
	}
	s.transactions[rec.ID] = &rec
	return nil
}

func (s *memStore) GetTransaction(_ context.Context, id string) (*domain.InventoryTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (s *memStore) ListTransactions(_ context.Context, limit int) ([]domain.InventoryTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.InventoryTransaction
	for _, rec := range s.transactions {
		if len(out) == limit {
			break
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *memStore) UpdateTransactionReason(_ context.Context, id, reasonCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	rec.ReasonCode = reasonCode
	return nil
}

func (s *memStore) CreateManifest(_ context.Context, m domain.CargoManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[m.ID] = &m
	return nil
}

func (s *memStore) GetManifest(_ context.Context, id string) (*domain.CargoManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.manifests[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (s *memStore) SaveManifest(_ context.Context, m domain.CargoManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.manifests[m.ID]
	if !ok {
		return domain.ErrManifestNotFound
	}
	if existing.Version != m.Version {
		return domain.ErrConcurrentModification
	}
	m.Version++
	s.manifests[m.ID] = &m
	return nil
}

func (s *memStore) ListManifestsBySpacecraft(_ context.Context, spacecraftID string) ([]domain.CargoManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CargoManifest
	for _, m := range s.manifests {
		if m.SpacecraftID == spacecraftID {
			out = append(out, *m)
		}
	}
	return out, nil
}

// mockCache mirrors unit snapshots and idempotency keys in memory.
type mockCache struct {
	mu          sync.Mutex
	snapshots   map[string]domain.StorageUnit
	idempotency map[string]bool
}

func newMockCache() *mockCache {
	return &mockCache{
		snapshots:   make(map[string]domain.StorageUnit),
		idempotency: make(map[string]bool),
	}
}

func (c *mockCache) SetUnitSnapshot(_ context.Context, unit domain.StorageUnit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[unit.Code] = unit
	return nil
}

func (c *mockCache) GetUnitSnapshot(_ context.Context, code string) (*domain.StorageUnit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	unit, ok := c.snapshots[code]
	if !ok {
		return nil, nil
	}
	return &unit, nil
}

func (c *mockCache) SetIdempotency(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idempotency[key] {
		return false, nil
	}
	c.idempotency[key] = true
	return true, nil
}

func (c *mockCache) ReleaseIdempotency(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.idempotency, key)
	return nil
}

// stubPort answers every existence check the same way and counts calls.
type stubPort struct {
	mu     sync.Mutex
	result port.Existence
	err    error
	calls  int
}

func (p *stubPort) Exists(context.Context, string) (port.Existence, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.result, p.err
}

func (p *stubPort) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func confirmedPort() *stubPort {
	return &stubPort{result: port.ExistenceConfirmed}
}

// fakeCargoCatalog serves cargo type summaries from a fixed map; when
// unavailable it simulates a cargo-service outage.
type fakeCargoCatalog struct {
	types       map[string]domain.CargoType
	unavailable bool
}

func (f *fakeCargoCatalog) GetCargoType(_ context.Context, id string) (*domain.CargoType, error) {
	if f.unavailable {
		return nil, errors.New("cargo service timeout")
	}
	ct, ok := f.types[id]
	if !ok {
		return nil, nil
	}
	return &ct, nil
}

func (f *fakeCargoCatalog) Exists(ctx context.Context, id string) (port.Existence, error) {
	ct, err := f.GetCargoType(ctx, id)
	if err != nil {
		return port.ExistenceUnknown, err
	}
	if ct == nil {
		return port.ExistenceMissing, nil
	}
	return port.ExistenceConfirmed, nil
}
