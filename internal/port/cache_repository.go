package port

import (
	"context"

	"github.com/orbitek/cargo-storage/internal/core/domain"
)

type CacheRepository interface {
	// SetUnitSnapshot mirrors a storage unit's capacity state for fast reads.
	SetUnitSnapshot(ctx context.Context, unit domain.StorageUnit) error

	// GetUnitSnapshot returns (nil, nil) on a cache miss.
	GetUnitSnapshot(ctx context.Context, code string) (*domain.StorageUnit, error)

	// SetIdempotency sets a key for idempotency check, returns false if already exists.
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a claimed key so the request id can be
	// retried after a failed write.
	ReleaseIdempotency(ctx context.Context, key string) error
}
