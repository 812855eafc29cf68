// Package snapshot persists SnapshotMaps and reads them back for consumers.
package snapshot

import (
	"fmt"
	"strings"
	"time"
)

const (
	filePrefix = "leaderboard-"
	fileSuffix = ".json"
	timeLayout = "2006-01-02-15_04"

	// LatestName is the file overwritten by every run.
	LatestName = "leaderboard-latest.json"
)

// FileName returns the timestamped file name for a run at local time t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timeLayout) + fileSuffix
}

// ParseFileName extracts the run time from a timestamped file name.
func ParseFileName(name string, loc *time.Location) (time.Time, error) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, fmt.Errorf("not a snapshot file name: %s", name)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	t, err := time.ParseInLocation(timeLayout, stamp, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a snapshot file name: %s: %w", name, err)
	}
	return t, nil
}
