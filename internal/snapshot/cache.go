// Package snapshot caches the org dataset the report and planner endpoints
// read on every request.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medvisit-platform/internal/directory"
	"github.com/wolfman30/medvisit-platform/internal/observability/metrics"
	"github.com/wolfman30/medvisit-platform/pkg/logging"
)

// Snapshot is the cached org dataset.
type Snapshot struct {
	Doctors    []directory.Doctor    `json:"doctors"`
	Structures []directory.Structure `json:"structures"`
}

// Cache reads the org dataset through a Redis cache. With a nil client every
// load goes straight to the repository.
type Cache struct {
	repo    directory.Repository
	redis   *redis.Client
	ttl     time.Duration
	metrics *metrics.ScheduleMetrics
	logger  *logging.Logger
}

// NewCache creates a snapshot cache. The redis client and metrics may be nil.
func NewCache(repo directory.Repository, client *redis.Client, ttl time.Duration, m *metrics.ScheduleMetrics, logger *logging.Logger) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{
		repo:    repo,
		redis:   client,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
	}
}

func (c *Cache) key(orgID string) string {
	return "medvisit:snapshot:" + orgID
}

// Load returns the org's doctors and structures, from cache when fresh. Cache
// failures degrade to a repository read, never to an error.
func (c *Cache) Load(ctx context.Context, orgID string) (*Snapshot, error) {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, c.key(orgID)).Bytes()
		if err == nil {
			var snap Snapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				c.metrics.ObserveSnapshotLoad("cache")
				return &snap, nil
			}
			c.logger.Warn("discarding corrupt snapshot", "org_id", orgID)
		} else if err != redis.Nil {
			c.logger.Warn("snapshot cache read failed", "error", err, "org_id", orgID)
		}
	}

	snap, err := c.loadFromRepo(ctx, orgID)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveSnapshotLoad("repository")

	if c.redis != nil {
		data, err := json.Marshal(snap)
		if err == nil {
			if err := c.redis.Set(ctx, c.key(orgID), data, c.ttl).Err(); err != nil {
				c.logger.Warn("snapshot cache write failed", "error", err, "org_id", orgID)
			}
		}
	}
	return snap, nil
}

// Invalidate drops the cached snapshot after a write to the org dataset.
func (c *Cache) Invalidate(ctx context.Context, orgID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, c.key(orgID)).Err(); err != nil {
		c.logger.Warn("snapshot invalidation failed", "error", err, "org_id", orgID)
	}
}

func (c *Cache) loadFromRepo(ctx context.Context, orgID string) (*Snapshot, error) {
	doctors, err := c.repo.ListDoctors(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load doctors: %w", err)
	}
	structures, err := c.repo.ListStructures(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load structures: %w", err)
	}
	return &Snapshot{Doctors: doctors, Structures: structures}, nil
}
