// Package session persists browser cookies between acquisition runs.
package session

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// FileStore persists a session to a JSON file.
// Concurrent units may call Save at the same time; writes are serialised and
// atomic, so a reader never sees a partially written file.
type FileStore struct {
	path   string
	maxAge time.Duration
	now    func() time.Time
	mu     sync.RWMutex
}

// NewFileStore creates a session store that persists to the given path.
// Sessions older than maxAge are treated as absent; zero disables the check.
// The directory is created automatically on first write.
func NewFileStore(path string, maxAge time.Duration) *FileStore {
	return &FileStore{path: path, maxAge: maxAge, now: time.Now}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the stored session from disk.
// Returns false if the file is missing, corrupt, empty or stale. Every caller
// receives its own copy.
func (s *FileStore) Load(_ context.Context) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, false // corrupt file, treat as absent
	}
	if sess.IsStale(s.now(), s.maxAge) {
		return nil, false
	}
	return &sess, true
}

// Save writes the session to disk with 0600 permissions.
// A zero SavedAt is stamped with the current time.
func (s *FileStore) Save(_ context.Context, sess *models.Session) error {
	if sess == nil {
		return models.Errorf(models.KindIOFailure, "session save", "", "nil session")
	}

	out := sess.Clone()
	if out.SavedAt.IsZero() {
		out.SavedAt = s.now().UTC()
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return models.NewError(models.KindIOFailure, "session save", "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := common.WriteFileAtomic(s.path, data, 0600); err != nil {
		return models.NewError(models.KindIOFailure, "session save", "", err)
	}
	return nil
}
