package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/osmreduce/osmsource"
)

func tag(k, v string) osmsource.Tag { return osmsource.Tag{Key: k, Value: v} }

func filters() Filters {
	return Filters{
		PrimaryKeys:   []string{"amenity", "shop"},
		AttributeKeys: []string{"name"},
	}
}

// A: a tagged node with a primary key is emitted as a single degenerate
// element whose two endpoints coincide.
func TestRunEmitsTaggedNode(t *testing.T) {
	src := osmsource.MemorySource{Records: []osmsource.Record{
		{Kind: osmsource.NodeKind, ID: 1, Lat: 10, Lon: 20, Tags: []osmsource.Tag{tag("amenity", "cafe")}},
	}}

	res, err := Run(src, filters(), 2)
	require.NoError(t, err)
	require.Len(t, res.Elements, 1)
	el := res.Elements[0]
	require.Equal(t, uint64(1), el.ID)
	require.Equal(t, el.Lat1, el.Lat2)
	require.Equal(t, el.Lon1, el.Lon2)
	require.Equal(t, 1, res.Stats.ElementsEmitted)
}

// B: an untagged node is never emitted and never required.
func TestRunSkipsUntaggedNode(t *testing.T) {
	src := osmsource.MemorySource{Records: []osmsource.Record{
		{Kind: osmsource.NodeKind, ID: 1, Lat: 10, Lon: 20},
	}}

	res, err := Run(src, filters(), 2)
	require.NoError(t, err)
	require.Empty(t, res.Elements)
	require.Equal(t, 0, res.Stats.RequiredNodes)
}

// C: a tagged way with N nodes emits N-1 segment elements, one per
// consecutive pair, each carrying the way's own id and tag set.
func TestRunExpandsWayIntoSegments(t *testing.T) {
	src := osmsource.MemorySource{Records: []osmsource.Record{
		{Kind: osmsource.NodeKind, ID: 1, Lat: 0, Lon: 0},
		{Kind: osmsource.NodeKind, ID: 2, Lat: 1, Lon: 1},
		{Kind: osmsource.NodeKind, ID: 3, Lat: 2, Lon: 2},
		{Kind: osmsource.WayKind, ID: 100, Refs: []uint64{1, 2, 3}, Tags: []osmsource.Tag{tag("shop", "bakery")}},
	}}

	res, err := Run(src, filters(), 2)
	require.NoError(t, err)
	require.Len(t, res.Elements, 2)
	for _, el := range res.Elements {
		require.Equal(t, uint64(100), el.ID)
	}
	require.Equal(t, 0, res.Stats.SegmentsSkipped)
}

// D: a way referencing a node absent from the file skips only the
// segments touching that node, without failing the run.
func TestRunSkipsSegmentsMissingCoordinates(t *testing.T) {
	src := osmsource.MemorySource{Records: []osmsource.Record{
		{Kind: osmsource.NodeKind, ID: 1, Lat: 0, Lon: 0},
		// node 2 is never present in the file.
		{Kind: osmsource.NodeKind, ID: 3, Lat: 2, Lon: 2},
		{Kind: osmsource.WayKind, ID: 100, Refs: []uint64{1, 2, 3}, Tags: []osmsource.Tag{tag("shop", "bakery")}},
	}}

	res, err := Run(src, filters(), 2)
	require.NoError(t, err)
	require.Empty(t, res.Elements)
	require.Equal(t, 2, res.Stats.SegmentsSkipped)
}

// E: two records with the same tags in the same configured order collapse
// to one interned tag set, regardless of the order the tags appeared in
// the source file.
func TestRunDeduplicatesTagSets(t *testing.T) {
	src := osmsource.MemorySource{Records: []osmsource.Record{
		{Kind: osmsource.NodeKind, ID: 1, Lat: 0, Lon: 0, Tags: []osmsource.Tag{tag("amenity", "cafe"), tag("name", "Joe's")}},
		{Kind: osmsource.NodeKind, ID: 2, Lat: 1, Lon: 1, Tags: []osmsource.Tag{tag("name", "Joe's"), tag("amenity", "cafe")}},
	}}

	res, err := Run(src, filters(), 2)
	require.NoError(t, err)
	require.Len(t, res.Elements, 2)
	require.Equal(t, res.Elements[0].TagSetID, res.Elements[1].TagSetID)
	require.Equal(t, 1, res.Stats.UniqueTagSets)
}

// F: attribute keys not configured as primary keys never gate emission on
// their own, but do contribute to the emitted tag set when present
// alongside a primary key.
func TestRunAttributeKeysDoNotGateEmission(t *testing.T) {
	src := osmsource.MemorySource{Records: []osmsource.Record{
		{Kind: osmsource.NodeKind, ID: 1, Lat: 0, Lon: 0, Tags: []osmsource.Tag{tag("name", "lonely name")}},
		{Kind: osmsource.NodeKind, ID: 2, Lat: 1, Lon: 1, Tags: []osmsource.Tag{tag("amenity", "cafe"), tag("name", "Joe's")}},
	}}

	res, err := Run(src, filters(), 2)
	require.NoError(t, err)
	require.Len(t, res.Elements, 1)
	require.Equal(t, uint64(2), res.Elements[0].ID)

	pairs := res.TagSets.Pairs(res.Elements[0].TagSetID)
	require.Len(t, pairs, 2)
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	var records []osmsource.Record
	for i := uint64(1); i <= 50; i++ {
		records = append(records, osmsource.Record{
			Kind: osmsource.NodeKind, ID: i, Lat: float64(i), Lon: float64(i),
			Tags: []osmsource.Tag{tag("amenity", "cafe")},
		})
	}
	src := osmsource.MemorySource{Records: records}

	res1, err := Run(src, filters(), 1)
	require.NoError(t, err)
	res4, err := Run(src, filters(), 4)
	require.NoError(t, err)

	require.Equal(t, len(res1.Elements), len(res4.Elements))
	require.Equal(t, res1.Stats.UniqueTagSets, res4.Stats.UniqueTagSets)
}
