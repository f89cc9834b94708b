package domain

import "time"

type ManifestStatus string

const (
	ManifestStatusPending   ManifestStatus = "PENDING"
	ManifestStatusLoaded    ManifestStatus = "LOADED"
	ManifestStatusInTransit ManifestStatus = "IN_TRANSIT"
	ManifestStatusDelivered ManifestStatus = "DELIVERED"
	ManifestStatusUnloaded  ManifestStatus = "UNLOADED"
	ManifestStatusCancelled ManifestStatus = "CANCELLED"
)

func (s ManifestStatus) Valid() bool {
	switch s {
	case ManifestStatusPending, ManifestStatusLoaded, ManifestStatusInTransit,
		ManifestStatusDelivered, ManifestStatusUnloaded, ManifestStatusCancelled:
		return true
	}
	return false
}

type ManifestPriority string

const (
	ManifestPriorityNormal   ManifestPriority = "NORMAL"
	ManifestPriorityHigh     ManifestPriority = "HIGH"
	ManifestPriorityCritical ManifestPriority = "CRITICAL"
)

func (p ManifestPriority) Valid() bool {
	switch p {
	case ManifestPriorityNormal, ManifestPriorityHigh, ManifestPriorityCritical:
		return true
	}
	return false
}

// CargoManifest records cargo loaded onto or unloaded from a spacecraft.
// Zero-valued timestamps and empty user references mean "not yet".
type CargoManifest struct {
	ID              string
	SpacecraftID    string
	CargoID         string
	StorageUnitCode string
	Quantity        int
	LoadedAt        time.Time
	UnloadedAt      time.Time
	LoadedBy        string
	UnloadedBy      string
	Status          ManifestStatus
	Priority        ManifestPriority
	Version         int // optimistic locking
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
