package resolver

import (
	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

// MemResolver serves a catalog supplied in code.
type MemResolver struct {
	cat catalog
}

func NewMemResolver(entries ...domain.ResolvedEntry) *MemResolver {
	m := &MemResolver{}
	m.cat.replace(entries)
	return m
}

func (m *MemResolver) Replace(entries []domain.ResolvedEntry) { m.cat.replace(entries) }

func (m *MemResolver) Lookup(key int32) (domain.ResolvedEntry, bool) { return m.cat.lookup(key) }

func (m *MemResolver) Len() int { return m.cat.len() }

var _ ports.KeyResolver = (*MemResolver)(nil)
