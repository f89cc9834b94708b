package domain

import "time"

// StorageUnit tracks declared capacity and current usage for one physical
// storage location. Used fields are mutated only through the capacity
// ledger's conditional updates, never by direct assignment.
type StorageUnit struct {
	Code           string
	MassCapacity   float64 // kg
	VolumeCapacity float64 // m3
	UsedMass       float64
	UsedVolume     float64
	Version        int // optimistic locking
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (u *StorageUnit) AvailableMass() float64 {
	return u.MassCapacity - u.UsedMass
}

func (u *StorageUnit) AvailableVolume() float64 {
	return u.VolumeCapacity - u.UsedVolume
}
