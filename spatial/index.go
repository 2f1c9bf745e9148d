// Package spatial builds the in-memory R-tree over the element store and
// answers radius queries against it. The tree is bulk-loaded once at
// startup and never mutated afterward; queries run unsynchronized against
// a structure that is, from their point of view, immutable.
package spatial

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/grailbio/osmreduce/model"
)

// metersPerDegree is the fixed planar approximation used to convert a
// query radius from meters to degrees. Deliberately imprecise near the
// poles; not a goal to correct.
const metersPerDegree = 111320.0

// minEnvelopeSide keeps rtreego.NewRect happy for degenerate (node)
// elements, whose two endpoints coincide and would otherwise describe a
// zero-volume rectangle.
const minEnvelopeSide = 1e-9

// leafObject is the rtreego.Spatial implementation wrapping one element's
// index into the backing slice. Keeping only an index (not a copy of the
// element) avoids doubling element-store memory.
type leafObject struct {
	idx    int
	bounds *rtreego.Rect
}

func (o leafObject) Bounds() *rtreego.Rect { return o.bounds }

// Index is the bulk-loaded spatial index over an immutable element store.
type Index struct {
	elements []model.Element
	tree     *rtreego.Rtree
}

// Build bulk-loads an Index from elements. elements must not be mutated
// afterward; Index keeps no copy of it.
func Build(elements []model.Element) *Index {
	objs := make([]rtreego.Spatial, len(elements))
	for i, e := range elements {
		objs[i] = leafObject{idx: i, bounds: envelope(e)}
	}
	return &Index{
		elements: elements,
		tree:     rtreego.NewTree(2, 25, 50, objs...),
	}
}

func envelope(e model.Element) *rtreego.Rect {
	minLat, maxLat := minMax(e.Lat1, e.Lat2)
	minLon, maxLon := minMax(e.Lon1, e.Lon2)

	sideLat := float64(maxLat-minLat) + minEnvelopeSide
	sideLon := float64(maxLon-minLon) + minEnvelopeSide

	r, err := rtreego.NewRect(rtreego.Point{float64(minLat), float64(minLon)}, []float64{sideLat, sideLon})
	if err != nil {
		// Only unreachable if sideLat/sideLon are non-positive, which
		// minEnvelopeSide rules out.
		panic(err)
	}
	return r
}

func minMax(a, b float32) (float32, float32) {
	if a <= b {
		return a, b
	}
	return b, a
}

// Hit is one query result: the matching element and its squared lat-lon
// distance to the query point, carried alongside so callers can sort or
// threshold without recomputing it.
type Hit struct {
	Element     model.Element
	SquaredDist float64
}

// Query returns every element within radiusMeters of (lat, lon), ordered
// ascending by squared lat-lon distance to the query point. radiusMeters
// must be positive.
func (idx *Index) Query(lat, lon, radiusMeters float64) []Hit {
	radiusDeg := radiusMeters / metersPerDegree
	radiusDegSq := radiusDeg * radiusDeg

	searchRect, err := rtreego.NewRect(
		rtreego.Point{lat - radiusDeg, lon - radiusDeg},
		[]float64{2 * radiusDeg, 2 * radiusDeg},
	)
	if err != nil {
		return nil
	}

	candidates := idx.tree.SearchIntersect(searchRect)
	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		e := idx.elements[c.(leafObject).idx]
		d := squaredDistanceToSegment(lat, lon, e)
		if d <= radiusDegSq {
			hits = append(hits, Hit{Element: e, SquaredDist: d})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].SquaredDist < hits[j].SquaredDist })
	return hits
}

// squaredDistanceToSegment computes the squared lat-lon distance from
// (lat, lon) to element e's segment, projecting the point onto the
// segment and clamping the projection to [0, 1]. For a degenerate element
// (a node) this reduces to ordinary squared point distance.
func squaredDistanceToSegment(lat, lon float64, e model.Element) float64 {
	x1, y1 := float64(e.Lat1), float64(e.Lon1)
	x2, y2 := float64(e.Lat2), float64(e.Lon2)

	dx, dy := x2-x1, y2-y1
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return squared(lat-x1) + squared(lon-y1)
	}

	t := ((lat-x1)*dx + (lon-y1)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))

	projX := x1 + t*dx
	projY := y1 + t*dy
	return squared(lat-projX) + squared(lon-projY)
}

func squared(v float64) float64 { return v * v }
