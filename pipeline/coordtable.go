package pipeline

import "sync"

const coordMapShards = 256

// coordMap is the concurrent, sharded node-id -> (lat,lon) map populated
// during pass 2. Writers never block each other across shards; within a
// shard, a mutex linearizes concurrent inserts. It is discarded once
// frozen into a coordTable.
type coordMap struct {
	shards [coordMapShards]coordMapShard
}

type coordMapShard struct {
	mu sync.Mutex
	m  map[uint64][2]float32
}

func newCoordMap() *coordMap {
	c := &coordMap{}
	for i := range c.shards {
		c.shards[i].m = make(map[uint64][2]float32)
	}
	return c
}

func (c *coordMap) Set(id uint64, lat, lon float32) {
	sh := &c.shards[id%coordMapShards]
	sh.mu.Lock()
	sh.m[id] = [2]float32{lat, lon}
	sh.mu.Unlock()
}

func (c *coordMap) Len() int {
	n := 0
	for i := range c.shards {
		n += len(c.shards[i].m)
	}
	return n
}

// emptyCoordKey marks an unused slot in a coordTable. OSM ids never reach
// this value in practice.
const emptyCoordKey = ^uint64(0)

// coordTable is the compact, read-only, open-addressed hash table pass 3
// probes for way-segment endpoints. It halves memory relative to the
// concurrent coordMap by dropping per-entry map overhead.
type coordTable struct {
	keys []uint64
	lats []float32
	lons []float32
	mask uint64
	n    int
}

// freezeCoordMap converts a coordMap into a coordTable sized for a 2x load
// factor (50% occupancy), then discards nothing from c — the caller is
// free to drop c after this call returns.
func freezeCoordMap(c *coordMap) *coordTable {
	n := c.Len()
	size := nextPow2(uint64(n)*2 + 1)
	t := &coordTable{
		keys: make([]uint64, size),
		lats: make([]float32, size),
		lons: make([]float32, size),
		mask: size - 1,
	}
	for i := range t.keys {
		t.keys[i] = emptyCoordKey
	}
	for i := range c.shards {
		for id, v := range c.shards[i].m {
			t.insert(id, v[0], v[1])
		}
	}
	return t
}

func (t *coordTable) insert(id uint64, lat, lon float32) {
	idx := id & t.mask
	for t.keys[idx] != emptyCoordKey {
		idx = (idx + 1) & t.mask
	}
	t.keys[idx] = id
	t.lats[idx] = lat
	t.lons[idx] = lon
	t.n++
}

// Get returns the coordinate harvested for id, if any. Safe for unbounded
// concurrent reads: a coordTable is never mutated after freezeCoordMap
// returns it.
func (t *coordTable) Get(id uint64) (lat, lon float32, ok bool) {
	idx := id & t.mask
	for {
		k := t.keys[idx]
		if k == emptyCoordKey {
			return 0, 0, false
		}
		if k == id {
			return t.lats[idx], t.lons[idx], true
		}
		idx = (idx + 1) & t.mask
	}
}

// Len returns the number of coordinates stored.
func (t *coordTable) Len() int { return t.n }

func nextPow2(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}
