package hotpatch

// callEntry pairs the two sites of one external call: the local BL that
// branches into the external call area and the literal slot that holds the
// firmware address.
type callEntry struct {
	name     string
	address  uint32
	local    *uint32
	external *uint32
}

func (e *callEntry) complete() bool {
	return e.local != nil && e.external != nil
}

// missing names the absent sites of an incomplete entry.
func (e *callEntry) missing() string {
	switch {
	case e.local == nil && e.external == nil:
		return "local and external offsets"
	case e.local == nil:
		return "local offset"
	default:
		return "external offset"
	}
}

// callBuilder merges call relocations by symbol name. A later relocation for
// the same site replaces an earlier one.
type callBuilder struct {
	markers []uint32
	entries map[string]*callEntry
	order   []string
}

// newCallBuilder returns a builder that treats any offset at or beyond one
// of markers as an external call site.
func newCallBuilder(markers []uint32) *callBuilder {
	return &callBuilder{
		markers: markers,
		entries: make(map[string]*callEntry),
	}
}

func (b *callBuilder) isExternal(offset uint32) bool {
	for _, m := range b.markers {
		if offset >= m {
			return true
		}
	}
	return false
}

func (b *callBuilder) add(name string, address, offset uint32) {
	e, ok := b.entries[name]
	if !ok {
		e = &callEntry{name: name, address: address}
		b.entries[name] = e
		b.order = append(b.order, name)
	}
	off := offset
	if b.isExternal(offset) {
		e.external = &off
	} else {
		e.local = &off
	}
}

// build returns the entries in first-seen order.
func (b *callBuilder) build() []*callEntry {
	out := make([]*callEntry, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.entries[name])
	}
	return out
}
