// Package cache implements the compressed, content-addressed on-disk
// cache: a framed binary envelope carrying the element store, the flat
// tag-set store, the string interner, and the source fingerprint that
// decides whether the envelope is still valid for a given input.
package cache

import (
	"github.com/grailbio/osmreduce/intern"
	"github.com/grailbio/osmreduce/model"
)

// Envelope is everything the cache persists in one file: the preprocessed
// dataset plus the fingerprint that gates its reuse.
type Envelope struct {
	Elements []model.Element
	TagSets  *model.FlatTagSetStore
	Strings  *intern.Pool
	Fingerprint model.Fingerprint
}
