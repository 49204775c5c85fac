package resolver

import (
	"sync/atomic"

	"github.com/ghalamif/kioskbridge/internal/domain"
)

// catalog holds an immutable key index that reloads swap wholesale, so
// lookups never observe a half-applied reload.
type catalog struct {
	index atomic.Pointer[map[int32]domain.ResolvedEntry]
}

// replace installs entries. When a key repeats, the last entry wins.
func (c *catalog) replace(entries []domain.ResolvedEntry) {
	idx := make(map[int32]domain.ResolvedEntry, len(entries))
	for _, e := range entries {
		idx[e.Key] = e
	}
	c.index.Store(&idx)
}

func (c *catalog) lookup(key int32) (domain.ResolvedEntry, bool) {
	idx := c.index.Load()
	if idx == nil {
		return domain.ResolvedEntry{}, false
	}
	e, ok := (*idx)[key]
	return e, ok
}

func (c *catalog) len() int {
	idx := c.index.Load()
	if idx == nil {
		return 0
	}
	return len(*idx)
}
