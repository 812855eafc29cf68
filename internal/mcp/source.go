package mcp

import (
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/cache"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
	"github.com/bobmcallan/vire-leaderboard/internal/snapshot"
)

const (
	// Timestamped snapshots are never rewritten once stored.
	archiveTTL     = 24 * time.Hour
	archiveEntries = 64
	historyKey     = "history"
)

// CachedSource keeps recently read snapshots in memory. The latest file and
// the history listing expire after ttl; timestamped snapshots are kept much
// longer. Errors are never cached.
type CachedSource struct {
	src     Source
	latest  *cache.Cache[models.SnapshotMap]
	archive *cache.Cache[models.SnapshotMap]
	history *cache.Cache[[]snapshot.Entry]
}

// NewCachedSource wraps src.
func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		src:     src,
		latest:  cache.New[models.SnapshotMap](ttl, 1),
		archive: cache.New[models.SnapshotMap](archiveTTL, archiveEntries),
		history: cache.New[[]snapshot.Entry](ttl, 1),
	}
}

func (c *CachedSource) Latest() (models.SnapshotMap, error) {
	if m, ok := c.latest.Get(snapshot.LatestName); ok {
		return m, nil
	}
	m, err := c.src.Latest()
	if err != nil {
		return nil, err
	}
	c.latest.Set(snapshot.LatestName, m)
	return m, nil
}

func (c *CachedSource) Open(name string) (models.SnapshotMap, error) {
	if name == snapshot.LatestName {
		return c.Latest()
	}
	if m, ok := c.archive.Get(name); ok {
		return m, nil
	}
	m, err := c.src.Open(name)
	if err != nil {
		return nil, err
	}
	c.archive.Set(name, m)
	return m, nil
}

func (c *CachedSource) History() ([]snapshot.Entry, error) {
	if h, ok := c.history.Get(historyKey); ok {
		return h, nil
	}
	h, err := c.src.History()
	if err != nil {
		return nil, err
	}
	c.history.Set(historyKey, h)
	return h, nil
}
