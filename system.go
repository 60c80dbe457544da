package conveyor

import (
	"iter"

	"github.com/TheBitDrifter/mask"
)

// EntitySet is the matching set the Context maintains for one system.
// Membership order is unspecified. Only the Context mutates it.
type EntitySet struct {
	members map[EntityID]struct{}
}

// Contains reports whether the entity is currently matched.
func (s *EntitySet) Contains(id EntityID) bool {
	_, ok := s.members[id]
	return ok
}

// Len returns the number of matched entities.
func (s *EntitySet) Len() int {
	return len(s.members)
}

// All iterates the matched entities. Safe against structural mutation only
// between pipeline updates; a system iterating its own set during Update
// must route create/destroy through the Enqueue variants.
func (s *EntitySet) All() iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		for id := range s.members {
			if !yield(id) {
				return
			}
		}
	}
}

func (s *EntitySet) add(id EntityID) {
	if s.members == nil {
		s.members = make(map[EntityID]struct{})
	}
	s.members[id] = struct{}{}
}

func (s *EntitySet) remove(id EntityID) {
	delete(s.members, id)
}

func (s *EntitySet) clear() {
	clear(s.members)
}

// BaseSystem carries the fixed required signature and the matching set.
// Embed it and implement Update to make a System.
type BaseSystem struct {
	signature mask.Mask
	entities  EntitySet
}

// NewBaseSystem fixes the required signature for a system's lifetime.
func NewBaseSystem(signature mask.Mask) BaseSystem {
	return BaseSystem{signature: signature}
}

func (b *BaseSystem) Signature() mask.Mask { return b.signature }

func (b *BaseSystem) Entities() *EntitySet { return &b.entities }

// SystemFunc adapts a closure into a System.
type SystemFunc struct {
	BaseSystem
	Fn func(*EntitySet) error
}

// NewSystemFunc wraps fn as a system with the given required signature.
func NewSystemFunc(signature mask.Mask, fn func(*EntitySet) error) *SystemFunc {
	return &SystemFunc{BaseSystem: NewBaseSystem(signature), Fn: fn}
}

func (s *SystemFunc) Update() error {
	return s.Fn(s.Entities())
}
