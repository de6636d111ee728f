package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
)

// BreakerConfig tunes the circuit breaker in front of Redis.
type BreakerConfig struct {
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// IdempotencyCache implements usecase.IdempotencyCache using Redis.
// Calls go through a circuit breaker so an unavailable Redis costs one
// fast failure instead of a network timeout per request.
type IdempotencyCache struct {
	client  *redis.Client
	prefix  string
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

type cachedRecord struct {
	StatusCode   int       `json:"status_code"`
	ResponseBody []byte    `json:"response_body"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewIdempotencyCache creates a new IdempotencyCache. m may be nil.
func NewIdempotencyCache(client *redis.Client, cfg BreakerConfig, logger zerolog.Logger, m *metrics.Metrics) *IdempotencyCache {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	c := &IdempotencyCache{
		client: client,
		prefix: "idempotency:",
		logger: logger.With().Str("component", "idempotency_cache").Logger(),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "idempotency-cache",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if m != nil {
				m.CacheBreakerStates.WithLabelValues(to.String()).Inc()
			}
		},
	})

	return c
}

// Get returns the cached record, or (nil, nil) on a miss.
func (c *IdempotencyCache) Get(ctx context.Context, key domain.IdempotencyKey) (*domain.IdempotencyRecord, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		data, err := c.client.Get(ctx, c.prefix+key.String()).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		return nil, err
	}

	data, _ := result.([]byte)
	if data == nil {
		return nil, nil
	}

	var cached cachedRecord
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("decode cached idempotency record: %w", err)
	}

	return &domain.IdempotencyRecord{
		Key:          key,
		StatusCode:   cached.StatusCode,
		ResponseBody: cached.ResponseBody,
		CreatedAt:    cached.CreatedAt,
	}, nil
}

// Set stores a completed record with ttl.
func (c *IdempotencyCache) Set(ctx context.Context, record *domain.IdempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(cachedRecord{
		StatusCode:   record.StatusCode,
		ResponseBody: record.ResponseBody,
		CreatedAt:    record.CreatedAt,
	})
	if err != nil {
		return err
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.client.Set(ctx, c.prefix+record.Key.String(), data, ttl).Err()
	})
	return err
}

// State reports the breaker state, e.g. for readiness output.
func (c *IdempotencyCache) State() string {
	return c.breaker.State().String()
}
