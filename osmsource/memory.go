package osmsource

// MemorySource replays a fixed slice of records, in order. It is used by
// the pipeline's tests to exercise the three-pass reduction deterministically
// without a real .osm.pbf file, and is small enough to double as a fixture
// loader for tiny synthetic extracts.
type MemorySource struct {
	Records []Record
}

// Walk replays every record in order.
func (s MemorySource) Walk(fn func(Record) error) error {
	for _, r := range s.Records {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}
