// Package store manages the lifecycle of transient file artifacts: uploaded
// sources and generated reports. It is the arena of the pipeline; identifiers
// are the only handles that leave it, never raw paths.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "reportai/internal/errors"
)

const idTimeFormat = "20060102T150405"

// Artifact describes one stored file.
type Artifact struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

type entry struct {
	artifact      Artifact
	path          string
	refs          int
	pendingDelete bool
}

// Store is one artifact arena rooted at a directory. Identifiers are
// timestamp-prefixed with a random suffix, so concurrent Put calls never
// collide and identifiers are never reused.
type Store struct {
	dir    string
	ttl    time.Duration
	sweep  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a store rooted at dir, restoring entries for files already
// present (sizes and creation times come from the identifier prefix).
func New(dir string, ttl, sweepInterval time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create store directory", err)
	}

	s := &Store{
		dir:     dir,
		ttl:     ttl,
		sweep:   sweepInterval,
		logger:  logger.With(slog.String("component", "artifact_store"), slog.String("dir", dir)),
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}

	if err := s.restore(); err != nil {
		return nil, err
	}

	return s, nil
}

// restore rebuilds the entry map from files left by a previous run.
func (s *Store) restore() error {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return apperrors.NewStorageError("failed to scan store directory", err)
	}

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		id := de.Name()
		created := info.ModTime()
		if ts, err := time.Parse(idTimeFormat, strings.SplitN(id, "_", 2)[0]); err == nil {
			created = ts
		}
		s.entries[id] = &entry{
			artifact: Artifact{
				ID:           id,
				OriginalName: originalName(id),
				Size:         info.Size(),
				CreatedAt:    created,
			},
			path: filepath.Join(s.dir, id),
		}
	}

	if len(s.entries) > 0 {
		s.logger.Info("restored artifacts from previous run", slog.Int("count", len(s.entries)))
	}
	return nil
}

// Put stores the bytes under a fresh collision-resistant identifier derived
// from the suggested name.
func (s *Store) Put(data []byte, suggestedName string) (*Artifact, error) {
	id := newID(suggestedName)
	path := filepath.Join(s.dir, id)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, apperrors.NewStorageError("failed to write artifact", err)
	}

	artifact := Artifact{
		ID:           id,
		OriginalName: filepath.Base(suggestedName),
		Size:         int64(len(data)),
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.entries[id] = &entry{artifact: artifact, path: path}
	s.mu.Unlock()

	s.logger.Info("artifact stored",
		slog.String("id", id),
		slog.Int64("size_bytes", artifact.Size))

	return &artifact, nil
}

// Get returns the full artifact bytes. The caller receives a snapshot: a
// later delete cannot affect it.
func (s *Store) Get(id string) ([]byte, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return nil, apperrors.NewNotFoundError("artifact " + id)
	}

	data, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("artifact " + id)
		}
		return nil, apperrors.NewStorageError("failed to read artifact", err)
	}
	return data, nil
}

// Stat returns artifact metadata without reading the bytes.
func (s *Store) Stat(id string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("artifact " + id)
	}
	a := e.artifact
	return &a, nil
}

// Acquire marks the artifact as in use, deferring deletes until Release.
// Fails if the artifact is gone.
func (s *Store) Acquire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return apperrors.NewNotFoundError("artifact " + id)
	}
	e.refs++
	return nil
}

// Release drops an in-use reference, completing any delete deferred while the
// reference was held.
func (s *Store) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return
	}
	if e.refs > 0 {
		e.refs--
	}
	if e.refs == 0 && e.pendingDelete {
		s.removeLocked(id, e)
	}
}

// Delete removes the artifact. Deleting a missing identifier is not an error;
// deleting an in-use artifact is deferred until the last reference is
// released.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	if e.refs > 0 {
		e.pendingDelete = true
		s.logger.Debug("delete deferred, artifact in use", slog.String("id", id))
		return nil
	}
	s.removeLocked(id, e)
	return nil
}

// removeLocked unlinks the file and forgets the entry. Caller holds s.mu.
func (s *Store) removeLocked(id string, e *entry) {
	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove artifact file",
			slog.String("id", id),
			slog.String("error", err.Error()))
	}
	delete(s.entries, id)
	s.logger.Info("artifact deleted", slog.String("id", id))
}

// StartSweeper launches the background TTL sweep. It stops when ctx is done
// or Close is called.
func (s *Store) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.SweepOnce()
			}
		}
	}()
}

// SweepOnce purges artifacts older than the TTL that hold no active
// references.
func (s *Store) SweepOnce() int {
	cutoff := time.Now().UTC().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, e := range s.entries {
		if e.refs > 0 {
			continue
		}
		if e.artifact.CreatedAt.Before(cutoff) {
			s.removeLocked(id, e)
			purged++
		}
	}

	if purged > 0 {
		s.logger.Info("ttl sweep purged artifacts", slog.Int("count", purged))
	}
	return purged
}

// Close stops the background sweeper.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// newID builds a timestamp-prefixed, collision-resistant identifier that
// preserves the sanitized original name (and with it the extension).
func newID(suggestedName string) string {
	return fmt.Sprintf("%s_%s_%s",
		time.Now().UTC().Format(idTimeFormat),
		uuid.NewString()[:8],
		sanitizeName(filepath.Base(suggestedName)))
}

// originalName recovers the sanitized original name from an identifier.
func originalName(id string) string {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) == 3 {
		return parts[2]
	}
	return id
}

// sanitizeName keeps identifiers filesystem- and URL-safe.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
