package conveyor

import (
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"
)

// Context is the top-level orchestrator: it owns the entity registry, the
// component-type registry and stores, the system pipeline, and the event
// bus, and routes every lifecycle notification between them.
//
// Component stores and signatures are shared mutable state for systems
// running concurrently within a stage; the runtime adds no locking there.
// Systems sharing a stage must not write the same component type. Direct
// structural mutations are rejected while Update is in flight; the Enqueue
// variants defer them to the end of the pass.
type Context struct {
	cfg      Config
	log      *zap.Logger
	entities *entityRegistry
	types    *typeRegistry
	systems  []System
	pipeline pipeline
	events   eventBus
	ops      opQueue
	locked   atomic.Bool
}

// NewContext builds a Context with the given limits.
func NewContext(cfg Config) (*Context, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		cfg:      cfg,
		log:      log,
		entities: newEntityRegistry(cfg.MaxEntities),
		types:    newTypeRegistry(cfg.MaxComponentTypes),
		events:   newEventBus(),
		ops:      newOpQueue(),
	}, nil
}

// CreateEntity allocates a new id, recycling the most recently freed one
// first. Errors once MaxEntities entities are live.
func (c *Context) CreateEntity() (EntityID, error) {
	if c.locked.Load() {
		return 0, LockedContextError{}
	}
	return c.entities.create()
}

// DestroyEntity removes the entity, its components, and its membership in
// every system. Destroying a dead or never-created id is a no-op.
func (c *Context) DestroyEntity(id EntityID) error {
	if c.locked.Load() {
		return LockedContextError{}
	}
	c.destroyEntity(id)
	return nil
}

func (c *Context) destroyEntity(id EntityID) {
	if !c.entities.release(id) {
		return
	}
	for _, store := range c.types.stores {
		store.entityDestroyed(id)
	}
	for _, system := range c.systems {
		system.Entities().remove(id)
	}
}

// EnqueueCreateEntity creates an entity immediately, or, during an update,
// defers creation to the end of the pass. The seed callback receives the
// new id and may attach components; it runs whenever the create does.
func (c *Context) EnqueueCreateEntity(seed func(EntityID) error) error {
	create := func() error {
		id, err := c.entities.create()
		if err != nil {
			return err
		}
		if seed != nil {
			return seed(id)
		}
		return nil
	}
	if !c.locked.Load() {
		return create()
	}
	c.ops.enqueueCreate(create)
	return nil
}

// EnqueueDestroyEntity destroys immediately when possible, otherwise at
// the end of the in-flight update. Duplicate enqueues collapse.
func (c *Context) EnqueueDestroyEntity(id EntityID) {
	if !c.locked.Load() {
		c.destroyEntity(id)
		return
	}
	c.ops.enqueueDestroy(id, func() error {
		c.destroyEntity(id)
		return nil
	})
}

// AddSystem registers the system into the given pipeline stage and seeds
// its matching set from the currently live entities, so systems added
// after entities exist still get correct membership.
func (c *Context) AddSystem(system System, stage int) error {
	if c.locked.Load() {
		return LockedContextError{}
	}
	if stage < 0 {
		return fmt.Errorf("stage index must not be negative, got %d", stage)
	}
	c.systems = append(c.systems, system)
	c.pipeline.add(system, stage)

	required := system.Signature()
	for _, id := range c.entities.active {
		if matches(c.entities.signature(id), required) {
			system.Entities().add(id)
		}
	}
	return nil
}

// Update runs one full pipeline pass: each stage's systems concurrently,
// stages in ascending order, with a barrier between stages. Deferred
// structural mutations flush after the final barrier. Returns the first
// system error and any flush error.
func (c *Context) Update() error {
	if !c.locked.CompareAndSwap(false, true) {
		return LockedContextError{}
	}
	runErr := c.pipeline.run()
	c.locked.Store(false)
	return errors.Join(runErr, c.ops.flush())
}

// AddEvent registers the condition for an event id, replacing any
// previous condition.
func (c *Context) AddEvent(id EventID, condition EventCondition) {
	c.events.addEvent(id, condition)
}

// AddEventHandler appends a handler for the event id. Handlers fire in
// registration order when the id's condition evaluates true.
func (c *Context) AddEventHandler(id EventID, handler EventHandler) {
	c.events.addHandler(id, handler)
}

// UpdateEvents evaluates every registered condition once and runs the
// handlers of those that hold, synchronously on the calling goroutine.
// Not safe concurrently with an in-flight Update.
func (c *Context) UpdateEvents() {
	c.events.update()
}

// Alive reports whether the id is currently live.
func (c *Context) Alive(id EntityID) bool {
	return c.entities.alive(id)
}

// EntityCount returns the number of live entities.
func (c *Context) EntityCount() int {
	return len(c.entities.active)
}

// RegisterComponent assigns T the next sequential type id and installs an
// empty store for it. Must be called before any entity uses T; a second
// registration of the same type is an error.
func RegisterComponent[T any](c *Context) (ComponentTypeID, error) {
	if c.locked.Load() {
		return 0, LockedContextError{}
	}
	t := reflect.TypeFor[T]()
	store := newComponentStore[T](c.cfg.MaxEntities)
	id, err := c.types.register(t, store)
	if err != nil {
		return 0, err
	}
	c.log.Debug("registered component type",
		zap.String("type", t.String()),
		zap.Uint32("type_id", uint32(id)))
	return id, nil
}

// ComponentID returns the type id assigned to T, if registered.
func ComponentID[T any](c *Context) (ComponentTypeID, bool) {
	return c.types.lookup(reflect.TypeFor[T]())
}

// MustComponentID is ComponentID for registration-time wiring; it panics
// on an unregistered type.
func MustComponentID[T any](c *Context) ComponentTypeID {
	id, ok := ComponentID[T](c)
	if !ok {
		panic(UnknownComponentTypeError{Type: reflect.TypeFor[T]()})
	}
	return id
}

// StoreFor recovers the fully typed store for T from the type registry.
func StoreFor[T any](c *Context) (*ComponentStore[T], error) {
	t := reflect.TypeFor[T]()
	id, ok := c.types.lookup(t)
	if !ok {
		return nil, UnknownComponentTypeError{Type: t}
	}
	return c.types.store(id).(*ComponentStore[T]), nil
}

// AddComponent attaches value to the entity, marks the signature bit, and
// adds the entity to every system whose requirement its signature now
// covers. Adding a component the entity already holds is an error.
func AddComponent[T any](c *Context, id EntityID, value T) error {
	if c.locked.Load() {
		return LockedContextError{}
	}
	t := reflect.TypeFor[T]()
	typeID, ok := c.types.lookup(t)
	if !ok {
		return UnknownComponentTypeError{Type: t}
	}
	if !c.entities.alive(id) {
		return EntityNotAliveError{Entity: id}
	}
	store := c.types.store(typeID).(*ComponentStore[T])
	if store.Has(id) {
		return ComponentExistsError{Entity: id, Type: t}
	}
	store.add(id, value)
	c.entities.markSignature(id, typeID)

	sig := c.entities.signature(id)
	for _, system := range c.systems {
		if matches(sig, system.Signature()) {
			system.Entities().add(id)
		}
	}
	return nil
}

// RemoveComponent clears the signature bit, removes the value from the
// store, and removes the entity from every system whose requirement its
// shrunken signature no longer covers.
func RemoveComponent[T any](c *Context, id EntityID) error {
	if c.locked.Load() {
		return LockedContextError{}
	}
	t := reflect.TypeFor[T]()
	typeID, ok := c.types.lookup(t)
	if !ok {
		return UnknownComponentTypeError{Type: t}
	}
	if !c.entities.alive(id) {
		return EntityNotAliveError{Entity: id}
	}
	store := c.types.store(typeID).(*ComponentStore[T])
	if !store.Has(id) {
		return ComponentNotFoundError{Entity: id, Type: t}
	}
	c.entities.unmarkSignature(id, typeID)
	store.remove(id)

	sig := c.entities.signature(id)
	for _, system := range c.systems {
		if !matches(sig, system.Signature()) {
			system.Entities().remove(id)
		}
	}
	return nil
}

// EnqueueAddComponent adds immediately when possible, otherwise at the end
// of the in-flight update. The type must already be registered.
func EnqueueAddComponent[T any](c *Context, id EntityID, value T) error {
	if !c.locked.Load() {
		return AddComponent(c, id, value)
	}
	typeID, ok := ComponentID[T](c)
	if !ok {
		return UnknownComponentTypeError{Type: reflect.TypeFor[T]()}
	}
	c.ops.enqueueComponentOp(opAddComponent, id, typeID, func() error {
		return AddComponent(c, id, value)
	})
	return nil
}

// EnqueueRemoveComponent removes immediately when possible, otherwise at
// the end of the in-flight update.
func EnqueueRemoveComponent[T any](c *Context, id EntityID) error {
	if !c.locked.Load() {
		return RemoveComponent[T](c, id)
	}
	typeID, ok := ComponentID[T](c)
	if !ok {
		return UnknownComponentTypeError{Type: reflect.TypeFor[T]()}
	}
	c.ops.enqueueComponentOp(opRemoveComponent, id, typeID, func() error {
		return RemoveComponent[T](c, id)
	})
	return nil
}

// Get returns a pointer to the entity's T, valid until the next add or
// remove on T's store.
func Get[T any](c *Context, id EntityID) (*T, error) {
	t := reflect.TypeFor[T]()
	typeID, ok := c.types.lookup(t)
	if !ok {
		return nil, UnknownComponentTypeError{Type: t}
	}
	store := c.types.store(typeID).(*ComponentStore[T])
	value, ok := store.Get(id)
	if !ok {
		return nil, ComponentNotFoundError{Entity: id, Type: t}
	}
	return value, nil
}

// Has reports whether the entity currently holds a T. False for dead
// entities and unregistered types.
func Has[T any](c *Context, id EntityID) bool {
	typeID, ok := c.types.lookup(reflect.TypeFor[T]())
	if !ok || !c.entities.alive(id) {
		return false
	}
	return hasBit(c.entities.signature(id), typeID)
}

// reseedSystems rebuilds every system's matching set from the current
// entity signatures. Used after a snapshot restore.
func (c *Context) reseedSystems() {
	for _, system := range c.systems {
		system.Entities().clear()
		required := system.Signature()
		for _, id := range c.entities.active {
			if matches(c.entities.signature(id), required) {
				system.Entities().add(id)
			}
		}
	}
}
