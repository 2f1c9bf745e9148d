package osmsource

import (
	"context"
	"os"
	"runtime"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/pkg/errors"
)

// PBFSource reads a .osm.pbf file via github.com/paulmach/osm/osmpbf. The
// scanner itself decompresses and decodes PBF blocks in parallel
// internally; PBFSource exposes that stream as a single serial Walk, and
// the preprocessor pipeline (package pipeline) is responsible for fanning
// the records back out across a worker pool for the per-record map step.
type PBFSource struct {
	Path string
}

// Walk opens Path and streams every Node and Way to fn, in file order.
func (s PBFSource) Walk(fn func(Record) error) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return errors.Wrapf(err, "open %s", s.Path)
	}
	defer f.Close()

	scanner := osmpbf.New(context.Background(), f, runtime.GOMAXPROCS(-1))
	defer scanner.Close()

	for scanner.Scan() {
		rec, ok := convert(scanner.Object())
		if !ok {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", s.Path)
	}
	return nil
}

func convert(o osm.Object) (Record, bool) {
	switch v := o.(type) {
	case *osm.Node:
		return Record{
			Kind: NodeKind,
			ID:   uint64(v.ID),
			Lat:  v.Lat,
			Lon:  v.Lon,
			Tags: convertTags(v.Tags),
		}, true
	case *osm.Way:
		refs := make([]uint64, len(v.Nodes))
		for i, n := range v.Nodes {
			refs[i] = uint64(n.ID)
		}
		return Record{
			Kind: WayKind,
			ID:   uint64(v.ID),
			Refs: refs,
			Tags: convertTags(v.Tags),
		}, true
	default:
		return Record{}, false
	}
}

func convertTags(tags osm.Tags) []Tag {
	out := make([]Tag, len(tags))
	for i, t := range tags {
		out[i] = Tag{Key: t.Key, Value: t.Value}
	}
	return out
}
