// Package rediscache puts a Redis read-through cache in front of profile lookups by slug.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/platform"
)

// DefaultTTL bounds how stale a cached profile may be.
const DefaultTTL = 5 * time.Minute

// Connect dials Redis and pings it.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		PoolSize:        20,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
		MaxRetries:      3,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Profiles decorates a platform.Profiles. Cache failures are logged and the
// call falls through to the wrapped store.
type Profiles struct {
	inner  platform.Profiles
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// New wraps inner. A non-positive ttl selects DefaultTTL.
func New(inner platform.Profiles, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Profiles {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiles{inner: inner, client: client, ttl: ttl, logger: logger}
}

// SlugKey formats the cache key for a slug.
func SlugKey(slug string) string {
	return fmt.Sprintf("worldmap:v1:profile:slug:%s", strings.ToLower(slug))
}

// ProfileBySlug serves hits from Redis and caches what the store returns.
// Misses in the store are not cached so a newly claimed slug is visible at once.
func (p *Profiles) ProfileBySlug(ctx context.Context, slug string) (domain.Profile, error) {
	key := SlugKey(slug)

	data, err := p.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var prof domain.Profile
		if jerr := json.Unmarshal(data, &prof); jerr == nil {
			return prof, nil
		}
		p.logger.Warn("dropping undecodable cached profile", zap.String("key", key))
		p.client.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		p.logger.Warn("profile cache read failed", zap.String("key", key), zap.Error(err))
	}

	prof, err := p.inner.ProfileBySlug(ctx, slug)
	if err != nil {
		return domain.Profile{}, err
	}

	if data, err := json.Marshal(prof); err == nil {
		if err := p.client.Set(ctx, key, data, p.ttl).Err(); err != nil {
			p.logger.Warn("profile cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return prof, nil
}

// UpsertProfile writes through and evicts both the previous and the new slug.
func (p *Profiles) UpsertProfile(ctx context.Context, prof domain.Profile) (domain.Profile, error) {
	keys := []string{SlugKey(prof.Slug)}
	if prev, err := p.inner.ProfileByUser(ctx, prof.UserID); err == nil && !strings.EqualFold(prev.Slug, prof.Slug) {
		keys = append(keys, SlugKey(prev.Slug))
	}

	out, err := p.inner.UpsertProfile(ctx, prof)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := p.client.Del(ctx, keys...).Err(); err != nil {
		p.logger.Warn("profile cache eviction failed", zap.Strings("keys", keys), zap.Error(err))
	}
	return out, nil
}

// ProfileByUser is not cached.
func (p *Profiles) ProfileByUser(ctx context.Context, userID string) (domain.Profile, error) {
	return p.inner.ProfileByUser(ctx, userID)
}
