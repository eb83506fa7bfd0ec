package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// idempotencyClaimTTL bounds how long a crashed request can block its key.
const idempotencyClaimTTL = time.Minute

var (
	ErrIdempotencyInFlight = errors.New("idempotency key is in flight")
	ErrIdempotencyMismatch = errors.New("idempotency key reused with a different request")
)

// IdempotencyStore tracks Idempotency-Key usage. Begin claims a key for a new
// request; it returns the stored response when the key already completed,
// ErrIdempotencyInFlight while another request holds it and
// ErrIdempotencyMismatch when the fingerprint differs.
type IdempotencyStore interface {
	Begin(ctx context.Context, key, fingerprint string) (*CachedResponse, error)
	Complete(ctx context.Context, key string, response *CachedResponse)
	Abandon(ctx context.Context, key string)
	Stop()
}

type CachedResponse struct {
	StatusCode  int         `json:"status_code,omitempty"`
	Headers     http.Header `json:"headers,omitempty"`
	Body        []byte      `json:"body,omitempty"`
	Fingerprint string      `json:"fingerprint"`
	InFlight    bool        `json:"in_flight,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (c *CachedResponse) expired(ttl time.Duration, now time.Time) bool {
	if c.InFlight {
		return now.Sub(c.CreatedAt) > idempotencyClaimTTL
	}
	return now.Sub(c.CreatedAt) > ttl
}

// resolve decides what a second request with the same key gets.
func (c *CachedResponse) resolve(fingerprint string) (*CachedResponse, error) {
	switch {
	case c.Fingerprint != fingerprint:
		return nil, ErrIdempotencyMismatch
	case c.InFlight:
		return nil, ErrIdempotencyInFlight
	}
	return c, nil
}

type InMemoryIdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*CachedResponse
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		entries: make(map[string]*CachedResponse),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go s.evictLoop(min(ttl, 10*time.Minute))
	return s
}

func (s *InMemoryIdempotencyStore) Begin(_ context.Context, key, fingerprint string) (*CachedResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.entries[key]; ok && !existing.expired(s.ttl, now) {
		return existing.resolve(fingerprint)
	}
	s.entries[key] = &CachedResponse{Fingerprint: fingerprint, InFlight: true, CreatedAt: now}
	return nil, nil
}

func (s *InMemoryIdempotencyStore) Complete(_ context.Context, key string, response *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	response.InFlight = false
	response.CreatedAt = time.Now()
	s.entries[key] = response
}

func (s *InMemoryIdempotencyStore) Abandon(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[key]; ok && existing.InFlight {
		delete(s.entries, key)
	}
}

func (s *InMemoryIdempotencyStore) evictLoop(every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.mu.Lock()
			for key, entry := range s.entries {
				if entry.expired(s.ttl, now) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RedisIdempotencyStore shares claims and responses across instances. The
// claim is a SETNX, so only one instance runs a given key. Redis failures
// fail open and the request runs unprotected.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func redisIdempotencyKey(key string) string { return "idempotency:" + key }

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key, fingerprint string) (*CachedResponse, error) {
	claim, err := json.Marshal(&CachedResponse{Fingerprint: fingerprint, InFlight: true, CreatedAt: time.Now()})
	if err != nil {
		return nil, nil
	}

	ok, err := s.client.SetNX(ctx, redisIdempotencyKey(key), claim, idempotencyClaimTTL).Result()
	if err != nil || ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, redisIdempotencyKey(key)).Bytes()
	if err != nil {
		// Expired between SETNX and GET.
		return nil, nil
	}
	var existing CachedResponse
	if err := json.Unmarshal(raw, &existing); err != nil {
		return nil, nil
	}
	return existing.resolve(fingerprint)
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, response *CachedResponse) {
	response.InFlight = false
	response.CreatedAt = time.Now()
	raw, err := json.Marshal(response)
	if err != nil {
		return
	}
	_ = s.client.Set(ctx, redisIdempotencyKey(key), raw, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Abandon(ctx context.Context, key string) {
	_ = s.client.Del(ctx, redisIdempotencyKey(key)).Err()
}

func (s *RedisIdempotencyStore) Stop() {}
