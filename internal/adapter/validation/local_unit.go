package validation

import (
	"context"

	"github.com/orbitek/cargo-storage/internal/port"
)

// LocalUnitValidator backs the storage-unit validation port with the local
// repository: units are owned by this service, so existence is answered
// without a remote round-trip.
type LocalUnitValidator struct {
	units port.StorageUnitRepository
}

func NewLocalUnitValidator(units port.StorageUnitRepository) *LocalUnitValidator {
	return &LocalUnitValidator{units: units}
}

func (v *LocalUnitValidator) Exists(ctx context.Context, code string) (port.Existence, error) {
	unit, err := v.units.GetStorageUnit(ctx, code)
	if err != nil {
		return port.ExistenceUnknown, err
	}
	if unit == nil {
		return port.ExistenceMissing, nil
	}
	return port.ExistenceConfirmed, nil
}
