package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// historyTTL bounds how long a caption hash blocks regeneration. Brands
// recycle seasonal topics, so forever-dedup would eventually starve them.
const historyTTL = 30 * 24 * time.Hour

type redisHistoryStore struct {
	client *redis.Client
}

// NewRedisHistory creates a HistoryStore backed by redis sets, one per brand.
func NewRedisHistory(client *redis.Client) HistoryStore {
	return &redisHistoryStore{client: client}
}

func historyKey(brandID int64) string {
	return fmt.Sprintf("captioner:history:%d", brandID)
}

func (s *redisHistoryStore) Seen(ctx context.Context, brandID int64, hash string) (bool, error) {
	return s.client.SIsMember(ctx, historyKey(brandID), hash).Result()
}

func (s *redisHistoryStore) Remember(ctx context.Context, brandID int64, hash string) error {
	key := historyKey(brandID)
	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, key, hash)
	pipe.Expire(ctx, key, historyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

type memoryHistoryStore struct {
	mu   sync.RWMutex
	seen map[int64]map[string]struct{}
}

// NewMemoryHistory creates an in-process HistoryStore for single-node and
// test deployments where redis is not configured.
func NewMemoryHistory() HistoryStore {
	return &memoryHistoryStore{seen: make(map[int64]map[string]struct{})}
}

func (s *memoryHistoryStore) Seen(_ context.Context, brandID int64, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[brandID][hash]
	return ok, nil
}

func (s *memoryHistoryStore) Remember(_ context.Context, brandID int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[brandID] == nil {
		s.seen[brandID] = make(map[string]struct{})
	}
	s.seen[brandID][hash] = struct{}{}
	return nil
}
