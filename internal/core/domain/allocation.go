package domain

import "time"

// CargoAllocation records a quantity of one cargo type held in one storage
// unit. Its lifecycle drives the unit's capacity ledger: creation reserves,
// quantity updates swap, deletion releases.
type CargoAllocation struct {
	ID              string
	StorageUnitCode string
	CargoTypeID     string
	Quantity        int
	LastCheckedAt   time.Time
	LastCheckedBy   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
