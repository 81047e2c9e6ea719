package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const embeddingTTL = 24 * time.Hour

// Store caches query embeddings so repeated searches for the same text
// skip the provider round trip. Misses and redis failures both fall
// through to the provider; the cache is never load-bearing.
type Store struct {
	client *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func embedKey(text string) string {
	return fmt.Sprintf("qembed:%x", sha256.Sum256([]byte(text)))
}

func (s *Store) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	raw, err := s.client.Get(ctx, embedKey(text)).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (s *Store) SetEmbedding(ctx context.Context, text string, vec []float32) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	_ = s.client.Set(ctx, embedKey(text), raw, embeddingTTL).Err()
}
