package model

// OffsetLookup is the outcome of asking a store for an offset: either Found with a
// value, or NotFound.
type OffsetLookup struct {
	offset int64
	found  bool
}

// Found returns a lookup holding offset. Negative offsets are store sentinels
// for "no such offset" and yield NotFound.
func Found(offset int64) OffsetLookup {
	if offset < 0 {
		return NotFound()
	}
	return OffsetLookup{offset: offset, found: true}
}

// NotFound returns an empty lookup.
func NotFound() OffsetLookup {
	return OffsetLookup{}
}

// Get returns the offset and whether it was found.
func (l OffsetLookup) Get() (int64, bool) {
	return l.offset, l.found
}
