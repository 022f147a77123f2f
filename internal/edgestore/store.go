package edgestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// observedFile and frozenFile are the well-known document names under
// a Store's bundle directory (spec.md §6).
const (
	observedFile = "roles.observed.json"
	frozenFile   = "roles.frozen.json"
)

// Store persists the observed and frozen edge sets under a single
// bundle directory. A Store's zero value is not usable; build one with
// New. The same *Store must be shared by the observer goroutine and the
// lifecycle/reconcile goroutine within one process (spec.md §5); the
// promotion tool runs as a separate process and relies solely on the
// atomic-rename contract on disk, not this mutex.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New returns a Store rooted at dir. The directory is created lazily on
// first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) observedPath() string { return filepath.Join(s.dir, observedFile) }
func (s *Store) frozenPath() string   { return filepath.Join(s.dir, frozenFile) }

// readDocument tolerates an absent file, an empty file, and malformed
// JSON, returning the empty document in all three cases (spec.md §8
// invariant 5). Caller must hold s.mu if concurrent writers exist.
func readDocument(path string) document {
	data, err := os.ReadFile(path)
	if err != nil {
		return document{}
	}
	if len(data) == 0 {
		return document{}
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}
	}
	return doc
}

// writeDocument writes doc to path atomically: serialize to a temp file
// in the same directory, then rename over the target. A concurrent
// reader therefore only ever observes the previous complete document or
// the next complete document, never a partial write.
func writeDocument(path string, doc document) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create bundle directory %s", dir)
	}

	sortEdges(doc.Edges)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal edge document")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "rename temp file into %s", path)
	}
	return nil
}

// sortEdges orders edges deterministically before a write (spec.md §6:
// "Arrays sorted deterministically on write").
func sortEdges(edges []PodEdge) {
	sort := func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Src != b.Src {
			return a.Src < b.Src
		}
		if a.Dst != b.Dst {
			return a.Dst < b.Dst
		}
		if a.Port != b.Port {
			return a.Port < b.Port
		}
		return a.Proto < b.Proto
	}
	insertionSort(edges, sort)
}

// insertionSort avoids pulling in sort.Slice's reflection overhead for
// the small edge counts this controller deals with; it is a stable,
// allocation-free sort over a comparator.
func insertionSort(edges []PodEdge, less func(i, j int) bool) {
	for i := 1; i < len(edges); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			edges[j], edges[j-1] = edges[j-1], edges[j]
		}
	}
}

// RecordObserved appends edge to the observed set if it is not already
// present, persisting the full set atomically (spec.md §4.1). It is a
// no-op, not an error, when the edge is already known.
func (s *Store) RecordObserved(edge PodEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := readDocument(s.observedPath())
	for _, e := range doc.Edges {
		if e == edge {
			return nil
		}
	}
	doc.Edges = append(doc.Edges, edge)
	doc.LastUpdated = nowUnix()
	return writeDocument(s.observedPath(), doc)
}

// ReadObserved returns the current observed edge set.
func (s *Store) ReadObserved() Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewSet(readDocument(s.observedPath()).Edges...)
}

// ReadFrozen returns the current frozen edge set.
func (s *Store) ReadFrozen() Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewSet(readDocument(s.frozenPath()).Edges...)
}

// Promote computes observed \ frozen and, if non-empty, writes
// frozen ∪ new back atomically with a fresh frozen_at timestamp
// (spec.md §4.9). It returns the set of newly-promoted edges, which is
// empty when there was nothing new to promote (idempotent).
func (s *Store) Promote() (Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	observed := NewSet(readDocument(s.observedPath()).Edges...)
	frozen := NewSet(readDocument(s.frozenPath()).Edges...)

	newEdges := observed.Difference(frozen)
	if len(newEdges) == 0 {
		return newEdges, nil
	}

	merged := frozen.Union(newEdges)
	doc := document{
		Edges:    merged.Slice(),
		FrozenAt: nowUnix(),
		Source:   "observed",
	}
	if err := writeDocument(s.frozenPath(), doc); err != nil {
		return nil, errors.Wrap(err, "write frozen edge document")
	}
	return newEdges, nil
}

func nowUnix() int64 { return time.Now().Unix() }
