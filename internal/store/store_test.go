package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "reportai/internal/errors"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := New(t.TempDir(), ttl, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t, time.Hour)
	payload := []byte("Batch,Value\nA,1\n")

	artifact, err := s.Put(payload, "results.csv")
	require.NoError(t, err)
	assert.Equal(t, "results.csv", artifact.OriginalName)
	assert.Equal(t, int64(len(payload)), artifact.Size)
	assert.True(t, strings.HasSuffix(artifact.ID, "_results.csv"))

	data, err := s.Get(artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	stat, err := s.Stat(artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, artifact.ID, stat.ID)
}

func TestPutUniqueIDs(t *testing.T) {
	s := newTestStore(t, time.Hour)

	a, err := s.Put([]byte("x"), "same.csv")
	require.NoError(t, err)
	b, err := s.Put([]byte("y"), "same.csv")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestPutSanitizesName(t *testing.T) {
	s := newTestStore(t, time.Hour)

	artifact, err := s.Put([]byte("x"), "my report (final)!.xlsx")
	require.NoError(t, err)
	assert.NotContains(t, artifact.ID, " ")
	assert.NotContains(t, artifact.ID, "(")
	assert.True(t, strings.HasSuffix(artifact.ID, ".xlsx"))
}

func TestGetUnknownID(t *testing.T) {
	s := newTestStore(t, time.Hour)

	_, err := s.Get("nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t, time.Hour)

	artifact, err := s.Put([]byte("x"), "f.csv")
	require.NoError(t, err)

	require.NoError(t, s.Delete(artifact.ID))
	_, err = s.Get(artifact.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	// Second delete of the same ID succeeds silently.
	require.NoError(t, s.Delete(artifact.ID))
	require.NoError(t, s.Delete("never-existed"))
}

func TestDeleteDeferredWhileAcquired(t *testing.T) {
	s := newTestStore(t, time.Hour)

	artifact, err := s.Put([]byte("held"), "f.csv")
	require.NoError(t, err)

	require.NoError(t, s.Acquire(artifact.ID))
	require.NoError(t, s.Delete(artifact.ID))

	// Still readable while the reference is held.
	data, err := s.Get(artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("held"), data)

	s.Release(artifact.ID)

	_, err = s.Get(artifact.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestAcquireUnknownID(t *testing.T) {
	s := newTestStore(t, time.Hour)
	err := s.Acquire("missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestSweepOncePurgesExpired(t *testing.T) {
	s := newTestStore(t, 50*time.Millisecond)

	old, err := s.Put([]byte("old"), "old.csv")
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)

	fresh, err := s.Put([]byte("fresh"), "fresh.csv")
	require.NoError(t, err)

	purged := s.SweepOnce()
	assert.Equal(t, 1, purged)

	_, err = s.Get(old.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	_, err = s.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestSweepSkipsAcquired(t *testing.T) {
	s := newTestStore(t, 10*time.Millisecond)

	artifact, err := s.Put([]byte("pinned"), "p.csv")
	require.NoError(t, err)
	require.NoError(t, s.Acquire(artifact.ID))

	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 0, s.SweepOnce())
	_, err = s.Get(artifact.ID)
	assert.NoError(t, err)

	s.Release(artifact.ID)
	assert.Equal(t, 1, s.SweepOnce())
}

func TestRestoreAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	s1, err := New(dir, time.Hour, time.Minute, nil)
	require.NoError(t, err)
	artifact, err := s1.Put([]byte("persisted"), "data.csv")
	require.NoError(t, err)
	s1.Close()

	s2, err := New(dir, time.Hour, time.Minute, nil)
	require.NoError(t, err)
	defer s2.Close()

	data, err := s2.Get(artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), data)

	stat, err := s2.Stat(artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, "data.csv", stat.OriginalName)
}

func TestGetSnapshotSurvivesDelete(t *testing.T) {
	s := newTestStore(t, time.Hour)

	artifact, err := s.Put([]byte("snapshot"), "s.csv")
	require.NoError(t, err)

	data, err := s.Get(artifact.ID)
	require.NoError(t, err)
	require.NoError(t, s.Delete(artifact.ID))

	// The returned bytes are a snapshot, unaffected by the delete.
	assert.Equal(t, []byte("snapshot"), data)
	_, err = os.Stat(filepath.Join(s.dir, artifact.ID))
	assert.True(t, os.IsNotExist(err))
}
