// Package model defines the compact, memory-resident representations the
// preprocessor produces and the query path consumes: elements, the flat
// tag-set store, and the source fingerprint used to validate the cache.
package model

// Element is one emitted line segment (a way's consecutive node pair) or
// degenerate point (a matching node). It is immutable once the preprocessor
// produces it.
//
// ID is the source OSM id. It is not unique across elements: a way
// contributes one Element per segment, and all of them share the way's id.
// Downstream consumers must not treat ID as a primary key.
type Element struct {
	ID   uint64
	Lat1 float32
	Lon1 float32
	Lat2 float32
	Lon2 float32
	// TagSetID indexes into a FlatTagSetStore. It must reference an
	// existing tag set.
	TagSetID uint32
}

// IsNode reports whether the element is a degenerate point, i.e. both of its
// endpoints coincide.
func (e Element) IsNode() bool {
	return e.Lat1 == e.Lat2 && e.Lon1 == e.Lon2
}
