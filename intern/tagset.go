package intern

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	farm "github.com/dgryski/go-farm"

	"github.com/grailbio/osmreduce/model"
)

// TagSetWriter is the concurrent tag-set interner: it maps each distinct
// ordered sequence of (key-id, value-id) pairs to a dense id, so that the
// millions of way segments sharing one tag combination reference a single
// entry. Two sequences are equal iff they are element-wise equal in order;
// the pipeline emits pairs in configuration order so this coincides with
// semantic tag equality.
type TagSetWriter struct {
	shards [numShards]tagSetShardState
	nextID atomic.Uint32

	recMu  sync.Mutex
	values [][]model.TagPair
}

type tagSetShardState struct {
	mu     sync.Mutex
	byHash map[uint64][]tagSetEntry
}

type tagSetEntry struct {
	pairs []model.TagPair
	id    uint32
}

// NewTagSetWriter creates an empty concurrent tag-set interner.
func NewTagSetWriter() *TagSetWriter {
	w := &TagSetWriter{}
	for i := range w.shards {
		w.shards[i].byHash = make(map[uint64][]tagSetEntry)
	}
	return w
}

// Intern returns the tag-set id for pairs, assigning a fresh one on first
// sight. Safe for concurrent use.
func (w *TagSetWriter) Intern(pairs []model.TagPair) uint32 {
	h := hashTagPairs(pairs)
	sh := &w.shards[uint8(h>>56)]

	sh.mu.Lock()
	for _, e := range sh.byHash[h] {
		if tagPairsEqual(e.pairs, pairs) {
			sh.mu.Unlock()
			return e.id
		}
	}
	id := w.nextID.Add(1) - 1
	stored := append([]model.TagPair(nil), pairs...)
	sh.byHash[h] = append(sh.byHash[h], tagSetEntry{pairs: stored, id: id})
	sh.mu.Unlock()

	w.recMu.Lock()
	for uint32(len(w.values)) <= id {
		w.values = append(w.values, nil)
	}
	w.values[id] = stored
	w.recMu.Unlock()
	return id
}

// Len returns the number of distinct tag sets interned so far.
func (w *TagSetWriter) Len() int {
	w.recMu.Lock()
	defer w.recMu.Unlock()
	return len(w.values)
}

// Freeze materializes the read-optimized FlatTagSetStore by walking ids
// 0..n, appending each tag set's packed pairs and recording its
// offset/length.
func (w *TagSetWriter) Freeze() *model.FlatTagSetStore {
	w.recMu.Lock()
	defer w.recMu.Unlock()

	store := &model.FlatTagSetStore{
		Offsets: make([]uint32, len(w.values)),
		Lengths: make([]uint32, len(w.values)),
	}
	var data []model.TagPair
	for i, pairs := range w.values {
		store.Offsets[i] = uint32(len(data))
		store.Lengths[i] = uint32(len(pairs))
		data = append(data, pairs...)
	}
	store.Data = data
	return store
}

func hashTagPairs(pairs []model.TagPair) uint64 {
	buf := make([]byte, 8*len(pairs))
	for i, p := range pairs {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(p))
	}
	return farm.Hash64(buf)
}

func tagPairsEqual(a, b []model.TagPair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
