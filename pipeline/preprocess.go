package pipeline

import (
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/grailbio/osmreduce/intern"
	"github.com/grailbio/osmreduce/model"
	"github.com/grailbio/osmreduce/osmsource"
)

// Filters configures which records the pipeline keeps and what it keeps
// about them. PrimaryKeys gate emission: a record is considered only if it
// carries a tag whose key is in PrimaryKeys. AttributeKeys are additive:
// when a record is emitted, the values of any configured attribute key are
// folded into its tag set. Order matters: both lists are walked in the
// order given when building a record's tag sequence.
type Filters struct {
	PrimaryKeys   []string
	AttributeKeys []string
}

func (f Filters) primaryKeySet() map[string]struct{} {
	set := make(map[string]struct{}, len(f.PrimaryKeys))
	for _, k := range f.PrimaryKeys {
		set[k] = struct{}{}
	}
	return set
}

// Stats summarizes one preprocessing run, for logging and tests.
type Stats struct {
	RequiredNodes    int
	CoordsHarvested  int
	SegmentsSkipped  int
	ElementsEmitted  int
	UniqueTagSets    int
	UniqueStrings    int
}

// Result is everything a preprocessing run produces: the element store,
// the flat tag-set store, and the read-form string pool, ready to be
// cached or served directly.
type Result struct {
	Elements []model.Element
	TagSets  *model.FlatTagSetStore
	Strings  *intern.Pool
	Stats    Stats
}

// Run executes the three-pass pipeline over source: required-node
// discovery, coordinate harvest, then tagged-element emission. nWorkers
// controls the degree of parallelism within each pass; 0 selects
// GOMAXPROCS. Passes never pipeline with each other — pass 2 requires
// pass 1's completed required-node set, and pass 3 requires pass 2's
// completed coordinate table.
func Run(source osmsource.Source, filters Filters, nWorkers int) (*Result, error) {
	primarySet := filters.primaryKeySet()

	log.Printf("pass 1: identifying required node ids")
	required, err := requiredNodes(source, primarySet, nWorkers)
	if err != nil {
		return nil, errors.Wrap(err, "pass 1: required node discovery")
	}
	log.Printf("pass 1: %d unique nodes required", required.GetCardinality())

	log.Printf("pass 2: collecting coordinates for %d required nodes", required.GetCardinality())
	coords, err := harvestCoordinates(source, required, nWorkers)
	if err != nil {
		return nil, errors.Wrap(err, "pass 2: coordinate harvest")
	}
	if uint64(coords.Len()) < required.GetCardinality() {
		log.Error.Printf("%d required nodes were not found in the source file",
			required.GetCardinality()-uint64(coords.Len()))
	}

	log.Printf("pass 3: extracting elements")
	strings := intern.NewWriter()
	tagSets := intern.NewTagSetWriter()
	accum, err := emitElements(source, primarySet, filters.PrimaryKeys, filters.AttributeKeys, coords, strings, tagSets, nWorkers)
	if err != nil {
		return nil, errors.Wrap(err, "pass 3: element emission")
	}
	if accum.skipped > 0 {
		log.Error.Printf("%d way segments skipped due to missing node coordinates", accum.skipped)
	}

	flatTagSets := tagSets.Freeze()
	pool := strings.Freeze()

	log.Printf("extraction complete: %d elements, %d unique tag sets, %d unique strings",
		len(accum.elements), flatTagSets.Len(), pool.Len())

	return &Result{
		Elements: accum.elements,
		TagSets:  flatTagSets,
		Strings:  pool,
		Stats: Stats{
			RequiredNodes:   int(required.GetCardinality()),
			CoordsHarvested: coords.Len(),
			SegmentsSkipped: accum.skipped,
			ElementsEmitted: len(accum.elements),
			UniqueTagSets:   flatTagSets.Len(),
			UniqueStrings:   pool.Len(),
		},
	}, nil
}
