package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// SessionStore persists browser sessions between runs.
// Load reports false for a missing, corrupt or stale session.
type SessionStore interface {
	Load(ctx context.Context) (*models.Session, bool)
	Save(ctx context.Context, session *models.Session) error
}

// SnapshotSink receives one assembled SnapshotMap per run.
// Implementations can be swapped (local files now, object storage as a mirror).
type SnapshotSink interface {
	Name() string
	Write(ctx context.Context, at time.Time, snapshots models.SnapshotMap) error
}
