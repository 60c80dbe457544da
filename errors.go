package conveyor

import (
	"fmt"
	"reflect"
)

// CapacityError reports that creating an entity would exceed MaxEntities.
type CapacityError struct {
	Max int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("entity capacity reached (%d)", e.Max)
}

// EntityNotAliveError reports a component operation on an entity that is
// not currently live.
type EntityNotAliveError struct {
	Entity EntityID
}

func (e EntityNotAliveError) Error() string {
	return fmt.Sprintf("entity %d is not alive", e.Entity)
}

// UnknownComponentTypeError reports use of a component type that was never
// registered on this Context.
type UnknownComponentTypeError struct {
	Type reflect.Type
}

func (e UnknownComponentTypeError) Error() string {
	return fmt.Sprintf("component type not registered: %v", e.Type)
}

// ComponentTypeExistsError reports a second registration of the same
// component type. Registration is once per Context lifetime.
type ComponentTypeExistsError struct {
	Type reflect.Type
}

func (e ComponentTypeExistsError) Error() string {
	return fmt.Sprintf("component type already registered: %v", e.Type)
}

// ComponentTypeCapacityError reports that registering another component
// type would exceed MaxComponentTypes.
type ComponentTypeCapacityError struct {
	Max int
}

func (e ComponentTypeCapacityError) Error() string {
	return fmt.Sprintf("component type registry at maximum capacity (%d)", e.Max)
}

// ComponentExistsError reports adding a component the entity already holds.
type ComponentExistsError struct {
	Entity EntityID
	Type   reflect.Type
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component already exists on entity %d: %v", e.Entity, e.Type)
}

// ComponentNotFoundError reports removing or reading a component the
// entity does not hold.
type ComponentNotFoundError struct {
	Entity EntityID
	Type   reflect.Type
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component does not exist on entity %d: %v", e.Entity, e.Type)
}

// LockedContextError reports a direct structural mutation attempted while
// a pipeline update is in flight. Use the Enqueue variants instead.
type LockedContextError struct{}

func (e LockedContextError) Error() string {
	return "context is locked by an in-flight pipeline update"
}

// ComponentEncodingError reports that a component type cannot take part in
// snapshots, or that its text encoding failed.
type ComponentEncodingError struct {
	Type reflect.Type
	Err  error
}

func (e ComponentEncodingError) Error() string {
	return fmt.Sprintf("component type %v: %v", e.Type, e.Err)
}

func (e ComponentEncodingError) Unwrap() error { return e.Err }

// SnapshotFormatError reports a malformed snapshot stream. The Context is
// left unmodified when ReadSnapshot returns one.
type SnapshotFormatError struct {
	Line int
	Msg  string
}

func (e SnapshotFormatError) Error() string {
	return fmt.Sprintf("snapshot line %d: %s", e.Line, e.Msg)
}
