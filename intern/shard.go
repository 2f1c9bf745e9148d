// Package intern provides the string and tag-set interning subsystems used
// to collapse redundancy in the preprocessed dataset: a concurrent,
// lock-amortized write form used during preprocessing, and a dense,
// read-optimized form used at query time.
//
// Both interners shard their insert-side state 256 ways, selecting a shard
// by the high byte of a farmhash over the key, so that concurrent inserts
// across unrelated keys almost never contend on the same lock.
package intern

import farm "github.com/dgryski/go-farm"

const numShards = 256

func stringShard(s string) uint8 {
	return uint8(farm.Hash64([]byte(s)) >> 56)
}
