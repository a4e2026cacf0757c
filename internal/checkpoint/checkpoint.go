// Package checkpoint persists batch progress so an interrupted run can resume
// at the first step that did not complete.
package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"silkstaff/internal/fileutil"
)

var (
	// ErrTotalMismatch means an interrupted checkpoint was written for a batch of
	// a different size than the one about to run.
	ErrTotalMismatch = errors.New("checkpoint total does not match batch size")
	// ErrLocked means another process owns the checkpoint.
	ErrLocked = errors.New("checkpoint is locked by another run")
	// ErrCorrupt means the checkpoint document could not be decoded.
	ErrCorrupt = errors.New("checkpoint file is corrupt")
)

// Identity describes the input a checkpoint was recorded against. It is
// informational: the total is the only field enforced on resume.
type Identity struct {
	Source    string
	Directory string
}

// Checkpoint is the decoded progress state.
type Checkpoint struct {
	// LastCompleted is the highest index whose step fully succeeded, or -1.
	LastCompleted int
	Total         int
	Identity      Identity
	Interrupted   bool
	Timestamp     time.Time
}

// CheckTotal returns ErrTotalMismatch when an interrupted checkpoint was
// recorded for a different batch size.
func (c *Checkpoint) CheckTotal(total int) error {
	if c == nil || !c.Interrupted {
		return nil
	}
	if c.Total != total {
		return fmt.Errorf("%w: checkpoint has %d items, batch has %d", ErrTotalMismatch, c.Total, total)
	}
	return nil
}

// ResolveStartIndex picks the first index to process. An override is returned
// verbatim; otherwise an interrupted checkpoint resumes after LastCompleted and
// anything else starts at zero.
func ResolveStartIndex(cp *Checkpoint, override *int) int {
	if override != nil {
		return *override
	}
	if cp != nil && cp.Interrupted {
		return cp.LastCompleted + 1
	}
	return 0
}

// document is the on-disk shape. A cleared checkpoint only carries
// is_interrupted and timestamp.
type document struct {
	LastProcessedIndex *int      `json:"last_processed_index,omitempty"`
	TotalReleases      *int      `json:"total_releases,omitempty"`
	ExcelPath          string    `json:"excel_path,omitempty"`
	DirectoryPath      string    `json:"directory_path,omitempty"`
	IsInterrupted      bool      `json:"is_interrupted"`
	Timestamp          time.Time `json:"timestamp"`
}

// Store reads and writes one checkpoint file.
type Store struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	lock *flock.Flock
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: strings.TrimSpace(path), now: time.Now}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string { return s.path }

// Load reads the checkpoint. It returns nil, nil when no file exists.
func (s *Store) Load() (*Checkpoint, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	var doc document
	if err := fileutil.ReadJSON(s.path, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	cp := &Checkpoint{
		LastCompleted: -1,
		Identity:      Identity{Source: doc.ExcelPath, Directory: doc.DirectoryPath},
		Interrupted:   doc.IsInterrupted,
		Timestamp:     doc.Timestamp,
	}
	if doc.LastProcessedIndex != nil {
		cp.LastCompleted = *doc.LastProcessedIndex
	}
	if doc.TotalReleases != nil {
		cp.Total = *doc.TotalReleases
	}
	if cp.Interrupted && doc.LastProcessedIndex == nil {
		return nil, fmt.Errorf("%w: interrupted checkpoint without last_processed_index", ErrCorrupt)
	}
	return cp, nil
}

// Record persists that index completed out of total. Callers invoke it only
// after the step's side effects succeeded.
func (s *Store) Record(index, total int, identity Identity) error {
	doc := document{
		LastProcessedIndex: &index,
		TotalReleases:      &total,
		ExcelPath:          identity.Source,
		DirectoryPath:      identity.Directory,
		IsInterrupted:      true,
		Timestamp:          s.now().UTC(),
	}
	if err := fileutil.WriteJSONAtomic(s.path, doc); err != nil {
		return fmt.Errorf("record checkpoint %d/%d: %w", index, total, err)
	}
	return nil
}

// Clear marks the batch as complete.
func (s *Store) Clear() error {
	doc := document{IsInterrupted: false, Timestamp: s.now().UTC()}
	if err := fileutil.WriteJSONAtomic(s.path, doc); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}

// Lock takes an advisory lock on "<path>.lock" so only one run owns the
// checkpoint. It returns ErrLocked when another process holds it.
func (s *Store) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}
	lock := flock.New(s.path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire checkpoint lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, s.path)
	}
	s.lock = lock
	return nil
}

// Locked reports whether this store currently holds the lock.
func (s *Store) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock != nil
}

// Unlock releases the lock taken by Lock. It is safe to call without a lock.
func (s *Store) Unlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	if err != nil {
		return fmt.Errorf("release checkpoint lock: %w", err)
	}
	return nil
}
