package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/orbitek/cargo-storage/internal/core/domain"
)

// MySQLAdapter is the authoritative store. Every ledger mutation is a single
// conditional UPDATE on the storage_units row: the capacity check and the
// usage increment happen in one statement, so concurrent reservations
// serialize on the row and can never overcommit. All statements bump the
// version column, which also guarantees RowsAffected distinguishes "no such
// row / condition failed" from "row matched".
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// execer is satisfied by both *sql.DB and *sql.Tx so ledger statements can
// run standalone or inside a record transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// --- storage units ---

func (m *MySQLAdapter) CreateStorageUnit(ctx context.Context, unit domain.StorageUnit) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO storage_units (code, mass_capacity, volume_capacity, used_mass, used_volume, version, created_at, updated_at)
		VALUES (?, ?, ?, 0, 0, 0, ?, ?)`,
		unit.Code, unit.MassCapacity, unit.VolumeCapacity, unit.CreatedAt, unit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert storage unit: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetStorageUnit(ctx context.Context, code string) (*domain.StorageUnit, error) {
	return getStorageUnit(ctx, m.db, code)
}

func getStorageUnit(ctx context.Context, q execer, code string) (*domain.StorageUnit, error) {
	var unit domain.StorageUnit
	err := q.QueryRowContext(ctx, `
		SELECT code, mass_capacity, volume_capacity, used_mass, used_volume, version, created_at, updated_at
		FROM storage_units WHERE code = ?`, code,
	).Scan(&unit.Code, &unit.MassCapacity, &unit.VolumeCapacity, &unit.UsedMass, &unit.UsedVolume,
		&unit.Version, &unit.CreatedAt, &unit.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query storage unit: %w", err)
	}
	return &unit, nil
}

func (m *MySQLAdapter) ListStorageUnits(ctx context.Context) ([]domain.StorageUnit, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT code, mass_capacity, volume_capacity, used_mass, used_volume, version, created_at, updated_at
		FROM storage_units ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list storage units: %w", err)
	}
	defer rows.Close()

	var units []domain.StorageUnit
	for rows.Next() {
		var unit domain.StorageUnit
		if err := rows.Scan(&unit.Code, &unit.MassCapacity, &unit.VolumeCapacity, &unit.UsedMass,
			&unit.UsedVolume, &unit.Version, &unit.CreatedAt, &unit.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan storage unit: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// --- capacity ledger ---

func (m *MySQLAdapter) Reserve(ctx context.Context, unitCode string, deltaMass, deltaVolume float64) error {
	return applyUsageDelta(ctx, m.db, unitCode, deltaMass, deltaVolume)
}

func (m *MySQLAdapter) Release(ctx context.Context, unitCode string, deltaMass, deltaVolume float64) error {
	return releaseUsage(ctx, m.db, unitCode, deltaMass, deltaVolume)
}

// applyUsageDelta is the atomic check-and-increment. Deltas may be negative
// (the reservation swap for a quantity update); the guards hold the unit
// inside [0, capacity] on both axes or leave it untouched.
func applyUsageDelta(ctx context.Context, q execer, unitCode string, deltaMass, deltaVolume float64) error {
	result, err := q.ExecContext(ctx, `
		UPDATE storage_units
		SET used_mass = used_mass + ?, used_volume = used_volume + ?, version = version + 1, updated_at = NOW()
		WHERE code = ?
		  AND used_mass + ? <= mass_capacity AND used_mass + ? >= 0
		  AND used_volume + ? <= volume_capacity AND used_volume + ? >= 0`,
		deltaMass, deltaVolume, unitCode, deltaMass, deltaMass, deltaVolume, deltaVolume,
	)
	if err != nil {
		return fmt.Errorf("update unit usage: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		unit, err := getStorageUnit(ctx, q, unitCode)
		if err != nil {
			return err
		}
		if unit == nil {
			return domain.ErrStorageUnitNotFound
		}
		if (deltaMass < 0 && unit.UsedMass+deltaMass < 0) ||
			(deltaVolume < 0 && unit.UsedVolume+deltaVolume < 0) {
			return fmt.Errorf("unit %s: %w", unitCode, domain.ErrUsageUnderflow)
		}
		return &domain.InsufficientCapacityError{
			StorageUnitCode: unitCode,
			RequestedMass:   deltaMass,
			AvailableMass:   unit.AvailableMass(),
			RequestedVolume: deltaVolume,
			AvailableVolume: unit.AvailableVolume(),
		}
	}
	return nil
}

// releaseUsage never fails on capacity grounds; usage is clamped at zero.
func releaseUsage(ctx context.Context, q execer, unitCode string, deltaMass, deltaVolume float64) error {
	result, err := q.ExecContext(ctx, `
		UPDATE storage_units
		SET used_mass = GREATEST(used_mass - ?, 0), used_volume = GREATEST(used_volume - ?, 0),
		    version = version + 1, updated_at = NOW()
		WHERE code = ?`,
		deltaMass, deltaVolume, unitCode,
	)
	if err != nil {
		return fmt.Errorf("release unit usage: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrStorageUnitNotFound
	}
	return nil
}

// --- allocations ---

func (m *MySQLAdapter) CreateAllocation(ctx context.Context, alloc domain.CargoAllocation, deltaMass, deltaVolume float64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := applyUsageDelta(ctx, tx, alloc.StorageUnitCode, deltaMass, deltaVolume); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cargo_allocations (id, storage_unit_code, cargo_type_id, quantity, last_checked_at, last_checked_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		alloc.ID, alloc.StorageUnitCode, alloc.CargoTypeID, alloc.Quantity,
		alloc.LastCheckedAt, alloc.LastCheckedBy, alloc.CreatedAt, alloc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert allocation: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetAllocation(ctx context.Context, id string) (*domain.CargoAllocation, error) {
	var alloc domain.CargoAllocation
	err := m.db.QueryRowContext(ctx, `
		SELECT id, storage_unit_code, cargo_type_id, quantity, last_checked_at, last_checked_by, created_at, updated_at
		FROM cargo_allocations WHERE id = ?`, id,
	).Scan(&alloc.ID, &alloc.StorageUnitCode, &alloc.CargoTypeID, &alloc.Quantity,
		&alloc.LastCheckedAt, &alloc.LastCheckedBy, &alloc.CreatedAt, &alloc.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query allocation: %w", err)
	}
	return &alloc, nil
}

func (m *MySQLAdapter) ListAllocationsByUnit(ctx context.Context, unitCode string) ([]domain.CargoAllocation, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, storage_unit_code, cargo_type_id, quantity, last_checked_at, last_checked_by, created_at, updated_at
		FROM cargo_allocations WHERE storage_unit_code = ? ORDER BY created_at`, unitCode)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var allocs []domain.CargoAllocation
	for rows.Next() {
		var alloc domain.CargoAllocation
		if err := rows.Scan(&alloc.ID, &alloc.StorageUnitCode, &alloc.CargoTypeID, &alloc.Quantity,
			&alloc.LastCheckedAt, &alloc.LastCheckedBy, &alloc.CreatedAt, &alloc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		allocs = append(allocs, alloc)
	}
	return allocs, rows.Err()
}

func (m *MySQLAdapter) UpdateAllocationQuantity(ctx context.Context, alloc domain.CargoAllocation, prevQuantity int, netDeltaMass, netDeltaVolume float64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := applyUsageDelta(ctx, tx, alloc.StorageUnitCode, netDeltaMass, netDeltaVolume); err != nil {
		return err
	}

	// The quantity guard ties the row mutation to the base the net deltas
	// were computed from. If another writer moved the quantity in between,
	// committing would apply deltas for a state that no longer exists and
	// the ledger would drift from the sum of its allocations.
	result, err := tx.ExecContext(ctx, `
		UPDATE cargo_allocations
		SET quantity = ?, last_checked_at = ?, last_checked_by = ?, updated_at = ?
		WHERE id = ? AND quantity = ?`,
		alloc.Quantity, alloc.LastCheckedAt, alloc.LastCheckedBy, alloc.UpdatedAt, alloc.ID, prevQuantity,
	)
	if err != nil {
		return fmt.Errorf("update allocation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return allocationConflict(ctx, tx, alloc.ID)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) DeleteAllocation(ctx context.Context, alloc domain.CargoAllocation, deltaMass, deltaVolume float64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := releaseUsage(ctx, tx, alloc.StorageUnitCode, deltaMass, deltaVolume); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM cargo_allocations WHERE id = ? AND quantity = ?`,
		alloc.ID, alloc.Quantity,
	)
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return allocationConflict(ctx, tx, alloc.ID)
	}

	return tx.Commit()
}

// allocationConflict tells a vanished allocation apart from one whose
// quantity moved since the caller read it.
func allocationConflict(ctx context.Context, q execer, id string) error {
	var quantity int
	err := q.QueryRowContext(ctx, `SELECT quantity FROM cargo_allocations WHERE id = ?`, id).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrAllocationNotFound
	}
	if err != nil {
		return fmt.Errorf("query allocation: %w", err)
	}
	return domain.ErrConcurrentModification
}

// --- inventory transactions ---

func (m *MySQLAdapter) CreateTransaction(ctx context.Context, rec domain.InventoryTransaction) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory_transactions
		(id, kind, cargo_id, quantity, from_unit_code, to_unit_code, from_spacecraft_id, to_spacecraft_id, performed_by, occurred_at, reason_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.CargoID, rec.Quantity,
		nullString(rec.FromStorageUnitCode), nullString(rec.ToStorageUnitCode),
		nullString(rec.FromSpacecraftID), nullString(rec.ToSpacecraftID),
		rec.PerformedBy, rec.OccurredAt, nullString(rec.ReasonCode), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetTransaction(ctx context.Context, id string) (*domain.InventoryTransaction, error) {
	rec, err := scanTransaction(m.db.QueryRowContext(ctx, `
		SELECT id, kind, cargo_id, quantity, from_unit_code, to_unit_code, from_spacecraft_id, to_spacecraft_id, performed_by, occurred_at, reason_code, created_at
		FROM inventory_transactions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query transaction: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.InventoryTransaction, error) {
	var rec domain.InventoryTransaction
	var fromUnit, toUnit, fromCraft, toCraft, reason sql.NullString
	err := row.Scan(&rec.ID, &rec.Kind, &rec.CargoID, &rec.Quantity,
		&fromUnit, &toUnit, &fromCraft, &toCraft,
		&rec.PerformedBy, &rec.OccurredAt, &reason, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.FromStorageUnitCode = fromUnit.String
	rec.ToStorageUnitCode = toUnit.String
	rec.FromSpacecraftID = fromCraft.String
	rec.ToSpacecraftID = toCraft.String
	rec.ReasonCode = reason.String
	return &rec, nil
}

func (m *MySQLAdapter) ListTransactions(ctx context.Context, limit int) ([]domain.InventoryTransaction, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, kind, cargo_id, quantity, from_unit_code, to_unit_code, from_spacecraft_id, to_spacecraft_id, performed_by, occurred_at, reason_code, created_at
		FROM inventory_transactions ORDER BY occurred_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var recs []domain.InventoryTransaction
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (m *MySQLAdapter) UpdateTransactionReason(ctx context.Context, id, reasonCode string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory_transactions SET reason_code = ? WHERE id = ?`,
		nullString(reasonCode), id,
	)
	if err != nil {
		return fmt.Errorf("update transaction reason: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// Unchanged value also reports zero rows; only report missing rows.
		rec, err := m.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return domain.ErrTransactionNotFound
		}
	}
	return nil
}

// --- manifests ---

func (m *MySQLAdapter) CreateManifest(ctx context.Context, mf domain.CargoManifest) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO cargo_manifests
		(id, spacecraft_id, cargo_id, storage_unit_code, quantity, loaded_at, unloaded_at, loaded_by, unloaded_by, status, priority, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		mf.ID, mf.SpacecraftID, mf.CargoID, mf.StorageUnitCode, mf.Quantity,
		nullTime(mf.LoadedAt), nullTime(mf.UnloadedAt),
		mf.LoadedBy, nullString(mf.UnloadedBy), mf.Status, mf.Priority,
		mf.CreatedAt, mf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert manifest: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetManifest(ctx context.Context, id string) (*domain.CargoManifest, error) {
	var mf domain.CargoManifest
	var loadedAt, unloadedAt sql.NullTime
	var unloadedBy sql.NullString
	err := m.db.QueryRowContext(ctx, `
		SELECT id, spacecraft_id, cargo_id, storage_unit_code, quantity, loaded_at, unloaded_at, loaded_by, unloaded_by, status, priority, version, created_at, updated_at
		FROM cargo_manifests WHERE id = ?`, id,
	).Scan(&mf.ID, &mf.SpacecraftID, &mf.CargoID, &mf.StorageUnitCode, &mf.Quantity,
		&loadedAt, &unloadedAt, &mf.LoadedBy, &unloadedBy, &mf.Status, &mf.Priority,
		&mf.Version, &mf.CreatedAt, &mf.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query manifest: %w", err)
	}
	mf.LoadedAt = loadedAt.Time
	mf.UnloadedAt = unloadedAt.Time
	mf.UnloadedBy = unloadedBy.String
	return &mf, nil
}

func (m *MySQLAdapter) SaveManifest(ctx context.Context, mf domain.CargoManifest) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE cargo_manifests
		SET spacecraft_id = ?, cargo_id = ?, storage_unit_code = ?, quantity = ?,
		    loaded_at = ?, unloaded_at = ?, loaded_by = ?, unloaded_by = ?,
		    status = ?, priority = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		mf.SpacecraftID, mf.CargoID, mf.StorageUnitCode, mf.Quantity,
		nullTime(mf.LoadedAt), nullTime(mf.UnloadedAt),
		mf.LoadedBy, nullString(mf.UnloadedBy), mf.Status, mf.Priority, mf.UpdatedAt,
		mf.ID, mf.Version,
	)
	if err != nil {
		return fmt.Errorf("update manifest: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		existing, err := m.GetManifest(ctx, mf.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrManifestNotFound
		}
		return domain.ErrConcurrentModification
	}
	return nil
}

func (m *MySQLAdapter) ListManifestsBySpacecraft(ctx context.Context, spacecraftID string) ([]domain.CargoManifest, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, spacecraft_id, cargo_id, storage_unit_code, quantity, loaded_at, unloaded_at, loaded_by, unloaded_by, status, priority, version, created_at, updated_at
		FROM cargo_manifests WHERE spacecraft_id = ? ORDER BY created_at`, spacecraftID)
	if err != nil {
		return nil, fmt.Errorf("list manifests: %w", err)
	}
	defer rows.Close()

	var manifests []domain.CargoManifest
	for rows.Next() {
		var mf domain.CargoManifest
		var loadedAt, unloadedAt sql.NullTime
		var unloadedBy sql.NullString
		if err := rows.Scan(&mf.ID, &mf.SpacecraftID, &mf.CargoID, &mf.StorageUnitCode, &mf.Quantity,
			&loadedAt, &unloadedAt, &mf.LoadedBy, &unloadedBy, &mf.Status, &mf.Priority,
			&mf.Version, &mf.CreatedAt, &mf.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan manifest: %w", err)
		}
		mf.LoadedAt = loadedAt.Time
		mf.UnloadedAt = unloadedAt.Time
		mf.UnloadedBy = unloadedBy.String
		manifests = append(manifests, mf)
	}
	return manifests, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
