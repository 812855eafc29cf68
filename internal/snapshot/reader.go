package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/market"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// ErrNoSnapshot is returned when no latest file has been written yet.
var ErrNoSnapshot = errors.New("no snapshot available")

// Entry describes one timestamped snapshot file.
type Entry struct {
	Path   string
	Bucket string
	At     time.Time
}

// Reader reads the file layout written by FileSink. Downstream consumers use
// it instead of any in-memory state of the scraper.
type Reader struct {
	dir string
	loc *time.Location
}

// NewReader creates a Reader over dir; file names are interpreted in loc.
func NewReader(dir string, loc *time.Location) *Reader {
	if loc == nil {
		loc = time.UTC
	}
	return &Reader{dir: dir, loc: loc}
}

// Latest loads the latest snapshot.
func (r *Reader) Latest() (models.SnapshotMap, error) {
	m, err := Load(filepath.Join(r.dir, LatestName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	return m, err
}

// History lists timestamped snapshots from both buckets, oldest first.
// Files that do not follow the naming scheme are ignored.
func (r *Reader) History() ([]Entry, error) {
	var entries []Entry
	for _, bucket := range []string{market.BucketInTime, market.BucketOutOfTime} {
		dir := filepath.Join(r.dir, bucket)
		files, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			at, err := ParseFileName(f.Name(), r.loc)
			if err != nil {
				continue
			}
			entries = append(entries, Entry{Path: filepath.Join(dir, f.Name()), Bucket: bucket, At: at})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].At.Equal(entries[j].At) {
			return entries[i].Bucket < entries[j].Bucket
		}
		return entries[i].At.Before(entries[j].At)
	})
	return entries, nil
}

// Load reads one snapshot file.
func Load(path string) (models.SnapshotMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	var m models.SnapshotMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	if m == nil {
		m = models.SnapshotMap{}
	}
	return m, nil
}

// Open loads a timestamped snapshot by file name from either bucket.
func (r *Reader) Open(name string) (models.SnapshotMap, error) {
	if name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid snapshot name: %s", name)
	}
	if _, err := ParseFileName(name, r.loc); err != nil {
		return nil, err
	}
	for _, bucket := range []string{market.BucketInTime, market.BucketOutOfTime} {
		path := filepath.Join(r.dir, bucket, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return nil, ErrNoSnapshot
}

// InTime keeps the entries written during trading hours, preserving order.
func InTime(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Bucket == market.BucketInTime {
			out = append(out, e)
		}
	}
	return out
}
