package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dicers-bot/internal/features/dicers/models"
	"dicers-bot/internal/features/dicers/repository"
)

const DefaultStateKey = "dicers:state"

type redisRepository struct {
	client redis.UniversalClient
	key    string
}

func NewRedisSnapshotRepository(client redis.UniversalClient, key string) repository.SnapshotRepository {
	if key == "" {
		key = DefaultStateKey
	}
	return &redisRepository{
		client: client,
		key:    key,
	}
}

func (r *redisRepository) Load(ctx context.Context) (*models.Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCorruptSnapshot, err)
	}
	return &snapshot, nil
}

func (r *redisRepository) Save(ctx context.Context, snapshot *models.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return r.client.Set(ctx, r.key, data, 0).Err()
}

func (r *redisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
