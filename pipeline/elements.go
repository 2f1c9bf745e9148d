package pipeline

import (
	"github.com/grailbio/osmreduce/intern"
	"github.com/grailbio/osmreduce/model"
	"github.com/grailbio/osmreduce/osmsource"
)

// elementAccum is the thread-local accumulator for pass 3: the elements
// a worker has emitted so far, and the number of way segments it had to
// skip for lack of a harvested coordinate.
type elementAccum struct {
	elements []model.Element
	skipped  int
}

func combineElementAccum(a, b elementAccum) elementAccum {
	a.elements = append(a.elements, b.elements...)
	a.skipped += b.skipped
	return a
}

// extractTags walks primaryKeys then attributeKeys, in that configured
// order, interning each present key/value and appending its packed pair.
// Using configuration order rather than record order guarantees that two
// records carrying the same tags always produce the same tag sequence,
// and therefore the same tag-set id.
func extractTags(r osmsource.Record, strings *intern.Writer, primaryKeys, attributeKeys []string) []model.TagPair {
	var pairs []model.TagPair
	for _, k := range primaryKeys {
		if v, ok := r.TagValue(k); ok {
			pairs = append(pairs, model.PackTagPair(strings.GetOrIntern(k), strings.GetOrIntern(v)))
		}
	}
	for _, k := range attributeKeys {
		if v, ok := r.TagValue(k); ok {
			pairs = append(pairs, model.PackTagPair(strings.GetOrIntern(k), strings.GetOrIntern(v)))
		}
	}
	return pairs
}

// emitElements runs pass 3: for every record with a primary-matching tag,
// it interns the record's extracted tag sequence once, then emits one
// degenerate element (nodes) or one element per consecutive node-pair with
// both coordinates available (ways). A matching way with no recoverable
// segment emits nothing; this is not an error, only an aggregate count.
func emitElements(source osmsource.Source, primaryKeySet map[string]struct{}, primaryKeys, attributeKeys []string, coords *coordTable, strings *intern.Writer, tagSets *intern.TagSetWriter, nWorkers int) (elementAccum, error) {
	zero := func() elementAccum { return elementAccum{} }

	mapFn := func(acc elementAccum, r osmsource.Record) elementAccum {
		if !r.HasAnyKey(primaryKeySet) {
			return acc
		}
		tagSetID := tagSets.Intern(extractTags(r, strings, primaryKeys, attributeKeys))

		switch r.Kind {
		case osmsource.NodeKind:
			lat, lon := float32(r.Lat), float32(r.Lon)
			acc.elements = append(acc.elements, model.Element{
				ID: r.ID, Lat1: lat, Lon1: lon, Lat2: lat, Lon2: lon, TagSetID: tagSetID,
			})
		case osmsource.WayKind:
			for i := 0; i+1 < len(r.Refs); i++ {
				lat1, lon1, ok1 := coords.Get(r.Refs[i])
				lat2, lon2, ok2 := coords.Get(r.Refs[i+1])
				if !ok1 || !ok2 {
					acc.skipped++
					continue
				}
				acc.elements = append(acc.elements, model.Element{
					ID: r.ID, Lat1: lat1, Lon1: lon1, Lat2: lat2, Lon2: lon2, TagSetID: tagSetID,
				})
			}
		}
		return acc
	}

	return mapReduce(source, nWorkers, zero, mapFn, combineElementAccum)
}
