// Package pipeline implements the three-pass PBF reduction pipeline:
// required-node discovery, coordinate harvest, and tagged-element
// emission with geometry assembly. Each pass is a parallel map-reduce
// over the source's record stream, driven by traverse.Each, a
// work-stealing fan-out helper.
package pipeline

import (
	"runtime"

	"github.com/grailbio/base/traverse"

	"github.com/grailbio/osmreduce/osmsource"
)

// mapReduce drives one pass over source: a dispatcher goroutine feeds
// decoded records round-robin into nWorkers channels, and traverse.Each
// runs one goroutine per channel, folding records into a thread-local
// accumulator via mapFn. Once every record has been consumed, the local
// accumulators are folded together, in worker order, with combine.
//
// No lock is held across record boundaries: each worker owns its channel
// and its accumulator exclusively.
func mapReduce[L any](source osmsource.Source, nWorkers int, zero func() L, mapFn func(L, osmsource.Record) L, combine func(L, L) L) (L, error) {
	if nWorkers <= 0 {
		nWorkers = runtime.GOMAXPROCS(0)
	}

	chans := make([]chan osmsource.Record, nWorkers)
	for i := range chans {
		chans[i] = make(chan osmsource.Record, 256)
	}

	walkErrCh := make(chan error, 1)
	go func() {
		next := 0
		err := source.Walk(func(r osmsource.Record) error {
			chans[next] <- r
			next++
			if next == nWorkers {
				next = 0
			}
			return nil
		})
		for _, ch := range chans {
			close(ch)
		}
		walkErrCh <- err
	}()

	locals := make([]L, nWorkers)
	err := traverse.Each(nWorkers, func(i int) error {
		local := zero()
		for r := range chans[i] {
			local = mapFn(local, r)
		}
		locals[i] = local
		return nil
	})

	if walkErr := <-walkErrCh; walkErr != nil {
		var zeroVal L
		return zeroVal, walkErr
	}
	if err != nil {
		var zeroVal L
		return zeroVal, err
	}

	result := locals[0]
	for i := 1; i < nWorkers; i++ {
		result = combine(result, locals[i])
	}
	return result, nil
}
