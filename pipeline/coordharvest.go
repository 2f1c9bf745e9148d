package pipeline

import (
	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/grailbio/osmreduce/osmsource"
)

// harvestCoordinates runs pass 2: for every node whose id is in required,
// it records the node's (lat,lon) into a shared concurrent map. There is
// no reduce step; the pass's effect is entirely the side effect of
// populating coords.
func harvestCoordinates(source osmsource.Source, required *roaring64.Bitmap, nWorkers int) (*coordTable, error) {
	coords := newCoordMap()

	zero := func() struct{} { return struct{}{} }
	mapFn := func(_ struct{}, r osmsource.Record) struct{} {
		if r.Kind != osmsource.NodeKind {
			return struct{}{}
		}
		if !required.Contains(r.ID) {
			return struct{}{}
		}
		coords.Set(r.ID, float32(r.Lat), float32(r.Lon))
		return struct{}{}
	}
	combine := func(a, _ struct{}) struct{} { return a }

	if _, err := mapReduce(source, nWorkers, zero, mapFn, combine); err != nil {
		return nil, err
	}
	return freezeCoordMap(coords), nil
}
