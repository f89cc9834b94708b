package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/orbitek/cargo-storage/internal/adapter/storage"
	"github.com/orbitek/cargo-storage/internal/core/domain"
)

// Overcommit stress test: fire concurrent allocation creates at one storage unit
// whose capacity fits only a fraction of them and verify the ledger admits
// exactly that fraction.
const (
	mysqlDSN      = "root:root@tcp(localhost:3306)/cargostorage?parseTime=true"
	unitCode      = "stress-unit"
	unitMassCap   = 200.0 // kg, fits exactly 20 crates
	unitVolumeCap = 10.0  // m3
	crateMass     = 10.0
	crateVolume   = 0.5
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	// Clear previous run
	db.ExecContext(ctx, `DELETE FROM cargo_allocations WHERE storage_unit_code = ?`, unitCode)
	db.ExecContext(ctx, `DELETE FROM storage_units WHERE code = ?`, unitCode)

	adapter := storage.NewMySQLAdapter(db)
	now := time.Now()
	err = adapter.CreateStorageUnit(ctx, domain.StorageUnit{
		Code:           unitCode,
		MassCapacity:   unitMassCap,
		VolumeCapacity: unitVolumeCap,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		log.Fatalf("failed to create unit: %v", err)
	}

	var successCount atomic.Int32
	var capacityRejects atomic.Int32
	var otherErrors atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			alloc := domain.CargoAllocation{
				ID:              uuid.NewString(),
				StorageUnitCode: unitCode,
				CargoTypeID:     "crate-std",
				Quantity:        1,
				LastCheckedAt:   time.Now(),
				LastCheckedBy:   fmt.Sprintf("user-%d", id),
				CreatedAt:       time.Now(),
				UpdatedAt:       time.Now(),
			}

			err := adapter.CreateAllocation(ctx, alloc, crateMass, crateVolume)
			var insufficient *domain.InsufficientCapacityError
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.As(err, &insufficient):
				capacityRejects.Add(1)
			default:
				otherErrors.Add(1)
				log.Printf("request %d: unexpected error: %v", id, err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	expected := int32(unitMassCap / crateMass)

	fmt.Println("========== OVERCOMMIT STRESS RESULTS ==========")
	fmt.Printf("Unit capacity:     %.0fkg / %.1fm3\n", unitMassCap, unitVolumeCap)
	fmt.Printf("Total requests:    %d\n", totalRequests)
	fmt.Printf("Successful:        %d\n", successCount.Load())
	fmt.Printf("Capacity rejects:  %d\n", capacityRejects.Load())
	fmt.Printf("Other errors:      %d\n", otherErrors.Load())
	fmt.Printf("Duration:          %v\n", elapsed)
	fmt.Println("==============================================")

	if successCount.Load() == expected && otherErrors.Load() == 0 {
		fmt.Printf("PASS: exactly %d allocations admitted\n", expected)
	} else {
		fmt.Printf("FAIL: expected %d successes, got %d\n", expected, successCount.Load())
	}

	unit, err := adapter.GetStorageUnit(ctx, unitCode)
	if err != nil || unit == nil {
		log.Fatalf("failed to reload unit: %v", err)
	}
	fmt.Printf("Final usage: %.1fkg / %.2fm3\n", unit.UsedMass, unit.UsedVolume)

	if unit.UsedMass == unitMassCap {
		fmt.Println("PASS: used mass sits exactly at capacity, no overcommit")
	} else {
		fmt.Printf("FAIL: expected used mass %.1f, got %.1f\n", unitMassCap, unit.UsedMass)
	}
}
