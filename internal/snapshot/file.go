package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/market"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// FileSink writes <dir>/<bucket>/leaderboard-<time>.json and replaces
// <dir>/leaderboard-latest.json on every run.
type FileSink struct {
	dir   string
	hours *market.Hours
}

// NewFileSink creates a FileSink rooted at dir.
func NewFileSink(dir string, hours *market.Hours) *FileSink {
	return &FileSink{dir: dir, hours: hours}
}

// Name identifies the sink in logs.
func (s *FileSink) Name() string {
	return "file"
}

// Paths returns the timestamped and latest file paths for a run at t.
func (s *FileSink) Paths(at time.Time) (timestamped, latest string) {
	local := s.hours.Local(at)
	timestamped = filepath.Join(s.dir, s.hours.Bucket(at), FileName(local))
	latest = filepath.Join(s.dir, LatestName)
	return timestamped, latest
}

// Write encodes snapshots and writes both files atomically.
func (s *FileSink) Write(_ context.Context, at time.Time, snapshots models.SnapshotMap) error {
	data, err := encode(snapshots)
	if err != nil {
		return err
	}

	timestamped, latest := s.Paths(at)
	if err := common.WriteFileAtomic(timestamped, data, 0644); err != nil {
		return models.NewError(models.KindIOFailure, "snapshot write", "", err)
	}
	if err := common.WriteFileAtomic(latest, data, 0644); err != nil {
		return models.NewError(models.KindIOFailure, "snapshot write", "", err)
	}
	return nil
}

func encode(snapshots models.SnapshotMap) ([]byte, error) {
	if snapshots == nil {
		snapshots = models.SnapshotMap{}
	}
	data, err := json.Marshal(snapshots)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}
