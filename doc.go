/*
Package conveyor provides a sparse-set Entity-Component-System (ECS) runtime
with staged parallel scheduling and full-state text snapshots.

Conveyor keeps each component type in its own dense, cache-friendly store
(a sparse set: contiguous values plus entity/slot index tables), routes
entities to systems through fixed-width bitset signatures, and runs systems
grouped into numbered pipeline stages. Systems within a stage execute
concurrently; stages execute strictly in ascending order.

Core Concepts:

  - Entity: a bare identifier, recycled through a free list.
  - Component: a plain data record, at most one instance per type per entity.
  - Signature: a bitset naming which component types an entity holds, or
    which a system requires.
  - System: per-update logic over the entities matching its signature.
  - Stage: a numbered group of systems dispatched concurrently.

Basic Usage:

	ctx, _ := conveyor.NewContext(conveyor.DefaultConfig())

	// Register component types
	conveyor.RegisterComponent[Position](ctx)
	conveyor.RegisterComponent[Velocity](ctx)

	// Create an entity and attach components
	id, _ := ctx.CreateEntity()
	conveyor.AddComponent(ctx, id, Position{X: 0, Y: 0})
	conveyor.AddComponent(ctx, id, Velocity{DX: 1, DY: 1})

	// A system sees every entity whose signature covers its own
	sig := conveyor.NewSignature(
		conveyor.MustComponentID[Position](ctx),
		conveyor.MustComponentID[Velocity](ctx),
	)
	ctx.AddSystem(&MovementSystem{BaseSystem: conveyor.NewBaseSystem(sig), ctx: ctx}, 0)

	// One full pipeline pass
	ctx.Update()

Context state can be written to and restored from a line-oriented text
snapshot, provided component types implement encoding.TextMarshaler and
encoding.TextUnmarshaler. The reading side must register the same component
types in the same order as the writing side.
*/
package conveyor
