package census

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"acspop/internal/population/metrics"
	"acspop/pkg/platform/circuit"
)

const (
	variablesKeyPrefix  = "acs:vars:"
	defaultVariablesTTL = 24 * time.Hour
)

// RedisCachedResolver caches resolved variable maps in Redis. Cache read and
// write failures are logged and fall through to the underlying resolver.
// Repeated failures open a breaker that bypasses Redis until a probe
// succeeds.
type RedisCachedResolver struct {
	next    Resolver
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	logger  *slog.Logger
	metrics *metrics.Metrics
	breaker *circuit.Breaker
}

// RedisCacheOption configures a RedisCachedResolver.
type RedisCacheOption func(*RedisCachedResolver)

func WithCacheTTL(ttl time.Duration) RedisCacheOption {
	return func(r *RedisCachedResolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithCacheNamespace scopes keys, typically to the ACS vintage, so maps
// from different releases never mix.
func WithCacheNamespace(ns string) RedisCacheOption {
	return func(r *RedisCachedResolver) {
		if ns != "" {
			r.prefix = variablesKeyPrefix + ns + ":"
		}
	}
}

func WithCacheLogger(logger *slog.Logger) RedisCacheOption {
	return func(r *RedisCachedResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithCacheMetrics(m *metrics.Metrics) RedisCacheOption {
	return func(r *RedisCachedResolver) {
		r.metrics = m
	}
}

func WithCacheBreaker(b *circuit.Breaker) RedisCacheOption {
	return func(r *RedisCachedResolver) {
		if b != nil {
			r.breaker = b
		}
	}
}

// NewRedisCachedResolver wraps next with a Redis cache.
func NewRedisCachedResolver(next Resolver, client *redis.Client, opts ...RedisCacheOption) *RedisCachedResolver {
	r := &RedisCachedResolver{
		next:    next,
		client:  client,
		ttl:     defaultVariablesTTL,
		prefix:  variablesKeyPrefix,
		logger:  slog.Default(),
		breaker: circuit.New("variables-cache"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *RedisCachedResolver) key(concept string, depth int) string {
	return fmt.Sprintf("%s%s:%d", r.prefix, strings.ReplaceAll(concept, " ", "_"), depth)
}

func (r *RedisCachedResolver) VarsForGroup(ctx context.Context, concept string, depth int) (VariableMap, error) {
	if !r.breaker.Allow() {
		r.metrics.IncrementCacheLookup("bypass")
		return r.next.VarsForGroup(ctx, concept, depth)
	}
	key := r.key(concept, depth)

	cached, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		r.recordSuccess(ctx)
		var vars VariableMap
		if err := json.Unmarshal(cached, &vars); err == nil {
			r.metrics.IncrementCacheLookup("hit")
			return vars, nil
		}
		r.metrics.IncrementCacheLookup("error")
		r.logger.WarnContext(ctx, "discarding corrupt cached variable map", "key", key)
	case errors.Is(err, redis.Nil):
		r.recordSuccess(ctx)
		r.metrics.IncrementCacheLookup("miss")
	default:
		r.recordFailure(ctx)
		r.metrics.IncrementCacheLookup("error")
		r.logger.WarnContext(ctx, "variable map cache read failed", "key", key, "error", err)
	}

	vars, err := r.next.VarsForGroup(ctx, concept, depth)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("marshal variable map: %w", err)
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		r.recordFailure(ctx)
		r.logger.WarnContext(ctx, "variable map cache write failed", "key", key, "error", err)
	}
	return vars, nil
}

func (r *RedisCachedResolver) recordFailure(ctx context.Context) {
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.logger.WarnContext(ctx, "variable map cache disabled after repeated failures", "breaker", r.breaker.Name())
	}
}

func (r *RedisCachedResolver) recordSuccess(ctx context.Context) {
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "variable map cache re-enabled", "breaker", r.breaker.Name())
	}
}
