package domain

import "time"

type TransactionKind string

const (
	TransactionLoad       TransactionKind = "LOAD"
	TransactionUnload     TransactionKind = "UNLOAD"
	TransactionTransfer   TransactionKind = "TRANSFER"
	TransactionAdjustment TransactionKind = "ADJUSTMENT"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionLoad, TransactionUnload, TransactionTransfer, TransactionAdjustment:
		return true
	}
	return false
}

// InventoryTransaction is an immutable movement record. Optional references
// are empty strings when absent. Only ReasonCode may change after creation;
// it is a movement log, not a second source of truth for capacity.
type InventoryTransaction struct {
	ID                  string
	Kind                TransactionKind
	CargoID             string
	Quantity            int
	FromStorageUnitCode string
	ToStorageUnitCode   string
	FromSpacecraftID    string
	ToSpacecraftID      string
	PerformedBy         string
	OccurredAt          time.Time
	ReasonCode          string
	CreatedAt           time.Time
}
