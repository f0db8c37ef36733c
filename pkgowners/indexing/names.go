package indexing

import "strings"

// nevraTable interns package identifiers so owner sets can hold small integers.
// Ids are assigned in first-seen order, which is database order.
type nevraTable struct {
	ids   map[string]uint32
	names []string
}

func newNevraTable() *nevraTable {
	return &nevraTable{ids: make(map[string]uint32)}
}

func (t *nevraTable) intern(nevra string) uint32 {
	if id, ok := t.ids[nevra]; ok {
		return id
	}
	id := uint32(len(t.names))
	t.ids[nevra] = id
	t.names = append(t.names, nevra)
	return id
}

func (t *nevraTable) name(id uint32) string {
	return t.names[id]
}

func (t *nevraTable) Size() int { return len(t.names) }

// underPrefix reports whether p equals prefix or lies below it on a component boundary.
func underPrefix(p, prefix string) bool {
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || prefix == "/" || p[len(prefix)] == '/'
}
