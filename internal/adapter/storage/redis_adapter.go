package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orbitek/cargo-storage/internal/core/domain"
)

const (
	unitKeyPrefix     = "unit:"
	idempotencyKeyTTL = 24 * time.Hour
)

// RedisAdapter mirrors storage-unit capacity snapshots for fast reads and
// holds idempotency keys for movement recording. It is never the source of
// truth: MySQL owns the ledger.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetUnitSnapshot(ctx context.Context, unit domain.StorageUnit) error {
	key := unitKeyPrefix + unit.Code
	return r.client.HSet(ctx, key,
		"mass_capacity", unit.MassCapacity,
		"volume_capacity", unit.VolumeCapacity,
		"used_mass", unit.UsedMass,
		"used_volume", unit.UsedVolume,
		"version", unit.Version,
	).Err()
}

func (r *RedisAdapter) GetUnitSnapshot(ctx context.Context, code string) (*domain.StorageUnit, error) {
	key := unitKeyPrefix + code
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	unit := domain.StorageUnit{Code: code}
	unit.MassCapacity, _ = strconv.ParseFloat(fields["mass_capacity"], 64)
	unit.VolumeCapacity, _ = strconv.ParseFloat(fields["volume_capacity"], 64)
	unit.UsedMass, _ = strconv.ParseFloat(fields["used_mass"], 64)
	unit.UsedVolume, _ = strconv.ParseFloat(fields["used_volume"], 64)
	unit.Version, _ = strconv.Atoi(fields["version"])
	return &unit, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
