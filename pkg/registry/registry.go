// Package registry defines the unit type registry capability: the mapping
// from a unit type id to its collection handle and natural key fields. The
// engine takes it as an explicit constructor dependency; there is no global
// registry.
package registry

import (
	"sort"
	"sync"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

// TypeRegistry resolves unit type ids to their storage collections and
// declared natural keys.
type TypeRegistry interface {
	// NaturalKeyFields returns the ordered field names forming the natural
	// key of the given unit type. Returns storage.ErrUnknownUnitType when the
	// type is not registered.
	NaturalKeyFields(typeID string) ([]string, error)

	// UnitCollection returns the collection holding units of the given type.
	// Returns storage.ErrUnknownUnitType when the type is not registered.
	UnitCollection(typeID string) (storage.Collection, error)
}

type typeDefinition struct {
	collection storage.Collection
	unitKey    []string
}

// Static is a map-backed TypeRegistry. Registration is expected at startup;
// lookups may happen concurrently afterwards.
type Static struct {
	types map[string]typeDefinition // GUARDED_BY(mu).
	mu    sync.RWMutex
}

var _ TypeRegistry = (*Static)(nil)

// NewStatic returns an empty registry.
func NewStatic() *Static {
	return &Static{types: map[string]typeDefinition{}}
}

// Register adds or replaces a unit type definition.
func (s *Static) Register(typeID string, collection storage.Collection, unitKey ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[typeID] = typeDefinition{collection: collection, unitKey: unitKey}
}

// NaturalKeyFields implements TypeRegistry.
func (s *Static) NaturalKeyFields(typeID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.types[typeID]
	if !ok {
		return nil, storage.UnknownUnitTypeError(typeID)
	}
	return append([]string(nil), def.unitKey...), nil
}

// UnitCollection implements TypeRegistry.
func (s *Static) UnitCollection(typeID string) (storage.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.types[typeID]
	if !ok {
		return nil, storage.UnknownUnitTypeError(typeID)
	}
	return def.collection, nil
}

// TypeIDs returns the registered type ids in ascending order.
func (s *Static) TypeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.types))
	for id := range s.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
