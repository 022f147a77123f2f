package edgestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadToleratesAbsentEmptyAndMalformed(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	assert.Empty(t, s.ReadObserved(), "absent file")

	require.NoError(t, os.WriteFile(filepath.Join(dir, observedFile), []byte(""), 0o644))
	assert.Empty(t, s.ReadObserved(), "empty file")

	require.NoError(t, os.WriteFile(filepath.Join(dir, observedFile), []byte("{not json"), 0o644))
	assert.Empty(t, s.ReadObserved(), "malformed file")
}

func TestRecordObservedIsIdempotent(t *testing.T) {
	s := New(t.TempDir())
	e := PodEdge{Src: "ns/a", Dst: "ns/b", Port: 80, Proto: TCP}

	require.NoError(t, s.RecordObserved(e))
	require.NoError(t, s.RecordObserved(e))

	got := s.ReadObserved()
	assert.Len(t, got, 1)
	_, ok := got[e]
	assert.True(t, ok)
}

func TestPromoteIsIdempotentAndMonotonic(t *testing.T) {
	s := New(t.TempDir())
	e1 := PodEdge{Src: "ns/a", Dst: "ns/b", Port: 80, Proto: TCP}
	e2 := PodEdge{Src: "ns/c", Dst: "ns/d", Port: 53, Proto: UDP}

	require.NoError(t, s.RecordObserved(e1))

	added, err := s.Promote()
	require.NoError(t, err)
	assert.Len(t, added, 1)

	frozenBefore := s.ReadFrozen()
	assert.Contains(t, frozenBefore, e1)

	// Promoting again with nothing new observed is a no-op.
	added, err = s.Promote()
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Equal(t, frozenBefore, s.ReadFrozen())

	// A newly-observed edge is promoted on top of the existing frozen set.
	require.NoError(t, s.RecordObserved(e2))
	added, err = s.Promote()
	require.NoError(t, err)
	assert.Equal(t, NewSet(e2), added)

	frozenAfter := s.ReadFrozen()
	for e := range frozenBefore {
		assert.Contains(t, frozenAfter, e, "frozen_after must be a superset of frozen_before")
	}
	assert.Contains(t, frozenAfter, e2)
}

func TestPodEdgeJSONRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	e := PodEdge{Src: "ns/a", Dst: "ns/b", Port: 2152, Proto: UDP}
	require.NoError(t, s.RecordObserved(e))

	data, err := os.ReadFile(filepath.Join(s.dir, observedFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ns/a"`)
	assert.Contains(t, string(data), `2152`)

	got := s.ReadObserved()
	assert.Equal(t, NewSet(e), got)
}
