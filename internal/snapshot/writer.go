package snapshot

import (
	"context"
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/interfaces"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// Writer sends each run's SnapshotMap to a primary sink and any number of
// mirrors. Only a primary failure is returned; mirror failures are logged.
type Writer struct {
	primary interfaces.SnapshotSink
	mirrors []interfaces.SnapshotSink
	logger  *common.Logger
}

// NewWriter creates a Writer.
func NewWriter(primary interfaces.SnapshotSink, logger *common.Logger, mirrors ...interfaces.SnapshotSink) *Writer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Writer{primary: primary, mirrors: mirrors, logger: logger}
}

// Write persists snapshots taken at t.
func (w *Writer) Write(ctx context.Context, at time.Time, snapshots models.SnapshotMap) error {
	if err := w.primary.Write(ctx, at, snapshots); err != nil {
		w.logger.Error().Str("sink", w.primary.Name()).Err(err).Msg("Failed to write snapshot")
		return err
	}
	w.logger.Info().
		Str("sink", w.primary.Name()).
		Int("accounts", len(snapshots)).
		Msg("Snapshot written")

	for _, m := range w.mirrors {
		if err := m.Write(ctx, at, snapshots); err != nil {
			w.logger.Warn().Str("sink", m.Name()).Err(err).Msg("Failed to mirror snapshot")
			continue
		}
		w.logger.Debug().Str("sink", m.Name()).Msg("Snapshot mirrored")
	}
	return nil
}
