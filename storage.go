package conveyor

import (
	"encoding"
	"errors"
	"fmt"
	"io"
	"reflect"
)

// slotNone marks an absent entry in the entity/slot index tables.
const slotNone = ^uint32(0)

// ComponentStore is a sparse set holding every instance of one component
// type: a dense value slice plus entity-to-slot and slot-to-entity index
// tables. Add, Remove, Get, and Has are all O(1); removal swap-removes
// against the last dense slot so the value slice never has gaps.
//
// The store trusts its caller on structural preconditions: the Context
// checks signatures before delegating, so Add on a holder or Remove on a
// non-holder are guarded one layer up.
type ComponentStore[T any] struct {
	dense        []T
	entityToSlot []uint32
	slotToEntity []uint32
}

var _ componentStore = &ComponentStore[struct{}]{}

func newComponentStore[T any](maxEntities int) *ComponentStore[T] {
	s := &ComponentStore[T]{
		entityToSlot: make([]uint32, maxEntities),
		slotToEntity: make([]uint32, maxEntities),
	}
	for i := range s.entityToSlot {
		s.entityToSlot[i] = slotNone
		s.slotToEntity[i] = slotNone
	}
	return s
}

// Has reports whether the entity holds this component.
func (s *ComponentStore[T]) Has(id EntityID) bool {
	return int(id) < len(s.entityToSlot) && s.entityToSlot[id] != slotNone
}

// Get returns a pointer into the dense slice, valid until the next Add or
// Remove on this store. The second return is false if the entity does not
// hold the component.
func (s *ComponentStore[T]) Get(id EntityID) (*T, bool) {
	if !s.Has(id) {
		return nil, false
	}
	return &s.dense[s.entityToSlot[id]], true
}

// Len returns the number of live instances.
func (s *ComponentStore[T]) Len() int {
	return len(s.dense)
}

func (s *ComponentStore[T]) add(id EntityID, value T) {
	slot := uint32(len(s.dense))
	s.dense = append(s.dense, value)
	s.entityToSlot[id] = slot
	s.slotToEntity[slot] = uint32(id)
}

func (s *ComponentStore[T]) remove(id EntityID) {
	slot := s.entityToSlot[id]
	last := uint32(len(s.dense) - 1)

	// Overwrite the vacated slot with the trailing value and patch the
	// moved value's index entries.
	s.dense[slot] = s.dense[last]
	movedEntity := s.slotToEntity[last]
	s.entityToSlot[movedEntity] = slot
	s.slotToEntity[slot] = movedEntity

	var zero T
	s.dense[last] = zero
	s.dense = s.dense[:last]
	s.entityToSlot[id] = slotNone
	s.slotToEntity[last] = slotNone
}

func (s *ComponentStore[T]) entityDestroyed(id EntityID) {
	if s.Has(id) {
		s.remove(id)
	}
}

func (s *ComponentStore[T]) reset() {
	s.dense = nil
	for i := range s.entityToSlot {
		s.entityToSlot[i] = slotNone
		s.slotToEntity[i] = slotNone
	}
}

func (s *ComponentStore[T]) token() string {
	return reflect.TypeFor[T]().String()
}

// dump writes one line per live instance in dense-slot order:
// "Entity: <id>, <payload>". The payload comes from the component's own
// TextMarshaler.
func (s *ComponentStore[T]) dump(w io.Writer) error {
	for slot := range s.dense {
		tm, ok := any(&s.dense[slot]).(encoding.TextMarshaler)
		if !ok {
			return ComponentEncodingError{
				Type: reflect.TypeFor[T](),
				Err:  errors.New("does not implement encoding.TextMarshaler"),
			}
		}
		payload, err := tm.MarshalText()
		if err != nil {
			return ComponentEncodingError{Type: reflect.TypeFor[T](), Err: err}
		}
		if _, err := fmt.Fprintf(w, "Entity: %d, %s\n", s.slotToEntity[slot], payload); err != nil {
			return err
		}
	}
	return nil
}

// probe checks that a payload would decode, without storing anything.
// The snapshot reader uses it to validate a whole stream before applying.
func (s *ComponentStore[T]) probe(payload string) error {
	var scratch T
	tu, ok := any(&scratch).(encoding.TextUnmarshaler)
	if !ok {
		return ComponentEncodingError{
			Type: reflect.TypeFor[T](),
			Err:  errors.New("does not implement encoding.TextUnmarshaler"),
		}
	}
	if err := tu.UnmarshalText([]byte(payload)); err != nil {
		return ComponentEncodingError{Type: reflect.TypeFor[T](), Err: err}
	}
	return nil
}

// load parses one dumped payload line and appends the value for the given
// entity. Slots are assigned in call order, so replaying a dump in line
// order reproduces the writer's dense layout.
func (s *ComponentStore[T]) load(id EntityID, payload string) error {
	var value T
	tu, ok := any(&value).(encoding.TextUnmarshaler)
	if !ok {
		return ComponentEncodingError{
			Type: reflect.TypeFor[T](),
			Err:  errors.New("does not implement encoding.TextUnmarshaler"),
		}
	}
	if err := tu.UnmarshalText([]byte(payload)); err != nil {
		return ComponentEncodingError{Type: reflect.TypeFor[T](), Err: err}
	}
	if s.Has(id) {
		return ComponentExistsError{Entity: id, Type: reflect.TypeFor[T]()}
	}
	s.add(id, value)
	return nil
}
