package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"trackitnow-backend/internal/types"
)

// PositionStore records the last known position of parcels and the position
// history of couriers.
type PositionStore interface {
	SetParcelPosition(ctx context.Context, parcelID string, p types.Position) error
	ParcelPosition(ctx context.Context, parcelID string) (types.Position, error)
	AppendCourierPosition(ctx context.Context, courierID string, p types.Position) error
	CourierPositions(ctx context.Context, courierID string) ([]types.Position, error)
}

type MemoryPositionStore struct {
	mu       sync.RWMutex
	parcels  map[string]types.Position
	couriers map[string][]types.Position
}

var _ PositionStore = (*MemoryPositionStore)(nil)

func NewMemoryPositionStore() *MemoryPositionStore {
	return &MemoryPositionStore{
		parcels:  make(map[string]types.Position),
		couriers: make(map[string][]types.Position),
	}
}

func (m *MemoryPositionStore) SetParcelPosition(_ context.Context, parcelID string, p types.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parcels[parcelID] = p
	return nil
}

func (m *MemoryPositionStore) ParcelPosition(_ context.Context, parcelID string) (types.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.parcels[parcelID]
	if !ok {
		return types.Position{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryPositionStore) AppendCourierPosition(_ context.Context, courierID string, p types.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.couriers[courierID] = append(m.couriers[courierID], p)
	return nil
}

func (m *MemoryPositionStore) CourierPositions(_ context.Context, courierID string) ([]types.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ps, ok := m.couriers[courierID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]types.Position(nil), ps...), nil
}

const (
	parcelPositionPrefix  = "geo:parcel:"
	courierPositionPrefix = "geo:courier:"
)

// RedisPositionStore keeps parcel positions as JSON strings and courier
// histories as JSON lists. Nothing expires.
type RedisPositionStore struct {
	client *redis.Client
}

var _ PositionStore = (*RedisPositionStore)(nil)

func NewRedisPositionStore(client *redis.Client) *RedisPositionStore {
	return &RedisPositionStore{client: client}
}

func (s *RedisPositionStore) SetParcelPosition(ctx context.Context, parcelID string, p types.Position) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, parcelPositionPrefix+parcelID, b, 0).Err(); err != nil {
		return fmt.Errorf("failed to save parcel position: %w", err)
	}
	return nil
}

func (s *RedisPositionStore) ParcelPosition(ctx context.Context, parcelID string) (types.Position, error) {
	b, err := s.client.Get(ctx, parcelPositionPrefix+parcelID).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.Position{}, ErrNotFound
	}
	if err != nil {
		return types.Position{}, fmt.Errorf("failed to load parcel position: %w", err)
	}
	var p types.Position
	if err := json.Unmarshal(b, &p); err != nil {
		return types.Position{}, fmt.Errorf("failed to decode parcel position: %w", err)
	}
	return p, nil
}

func (s *RedisPositionStore) AppendCourierPosition(ctx context.Context, courierID string, p types.Position) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, courierPositionPrefix+courierID, b).Err(); err != nil {
		return fmt.Errorf("failed to append courier position: %w", err)
	}
	return nil
}

func (s *RedisPositionStore) CourierPositions(ctx context.Context, courierID string) ([]types.Position, error) {
	raw, err := s.client.LRange(ctx, courierPositionPrefix+courierID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load courier positions: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}
	out := make([]types.Position, 0, len(raw))
	for _, r := range raw {
		var p types.Position
		if err := json.Unmarshal([]byte(r), &p); err != nil {
			return nil, fmt.Errorf("failed to decode courier position: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}
