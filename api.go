package conveyor

import (
	"io"

	"github.com/TheBitDrifter/mask"
)

// EntityID identifies one entity. IDs are dense-ish: destroyed ids return
// to a free list and are handed out again before fresh ones.
type EntityID uint32

// ComponentTypeID is the slot a component type occupies in every signature.
// Assigned sequentially at registration, never reused within a Context.
type ComponentTypeID uint32

// EventID keys one condition and its handlers on the event bus.
type EventID uint32

// EventCondition is a nullary predicate evaluated by UpdateEvents.
type EventCondition func() bool

// EventHandler is a nullary callback fired when its condition holds.
type EventHandler func()

// System is a unit of per-update behavior. The Context maintains the
// matching entity set as components are added and removed; the required
// signature is fixed at construction. Embed BaseSystem to satisfy
// everything but Update.
type System interface {
	Signature() mask.Mask
	Entities() *EntitySet
	Update() error
}

// componentStore is the type-erased face every typed store presents to the
// Context registry: lifecycle fan-out plus the snapshot hooks. The fully
// typed store is recovered through StoreFor, a second lookup checked
// against the type registry.
type componentStore interface {
	entityDestroyed(id EntityID)
	reset()
	token() string
	dump(w io.Writer) error
	probe(payload string) error
	load(id EntityID, payload string) error
}
