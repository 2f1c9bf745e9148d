package pipeline

import (
	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/grailbio/osmreduce/osmsource"
)

// requiredNodes runs pass 1: it identifies every node id that must have a
// coordinate harvested in pass 2, either because the node itself carries a
// primary-matching tag, or because some primary-matching way references
// it. The result is a run-length-compressed bitmap of ids, scaling to tens
// of millions of members with O(1) amortized membership tests.
func requiredNodes(source osmsource.Source, primaryKeys map[string]struct{}, nWorkers int) (*roaring64.Bitmap, error) {
	zero := func() *roaring64.Bitmap { return roaring64.New() }

	mapFn := func(local *roaring64.Bitmap, r osmsource.Record) *roaring64.Bitmap {
		if !r.HasAnyKey(primaryKeys) {
			return local
		}
		switch r.Kind {
		case osmsource.NodeKind:
			local.Add(r.ID)
		case osmsource.WayKind:
			for _, ref := range r.Refs {
				local.Add(ref)
			}
		}
		return local
	}

	combine := func(a, b *roaring64.Bitmap) *roaring64.Bitmap {
		a.Or(b)
		return a
	}

	return mapReduce(source, nWorkers, zero, mapFn, combine)
}
