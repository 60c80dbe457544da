package conveyor_test

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TheBitDrifter/conveyor"
)

// Position is a simple component for 2D coordinates.
type Position struct {
	X, Y float64
}

func (p *Position) MarshalText() ([]byte, error) {
	return fmt.Appendf(nil, "Position: %g %g", p.X, p.Y), nil
}

func (p *Position) UnmarshalText(text []byte) error {
	return parsePair(string(text), "Position: ", &p.X, &p.Y)
}

// Velocity is a simple component for 2D movement.
type Velocity struct {
	DX, DY float64
}

func (v *Velocity) MarshalText() ([]byte, error) {
	return fmt.Appendf(nil, "Velocity: %g %g", v.DX, v.DY), nil
}

func (v *Velocity) UnmarshalText(text []byte) error {
	return parsePair(string(text), "Velocity: ", &v.DX, &v.DY)
}

// Health is a simple single-value component.
type Health struct {
	HP int
}

func (h *Health) MarshalText() ([]byte, error) {
	return fmt.Appendf(nil, "Health: %d", h.HP), nil
}

func (h *Health) UnmarshalText(text []byte) error {
	rest, ok := strings.CutPrefix(string(text), "Health: ")
	if !ok {
		return fmt.Errorf("bad health payload %q", text)
	}
	hp, err := strconv.Atoi(rest)
	if err != nil {
		return err
	}
	h.HP = hp
	return nil
}

func parsePair(text, prefix string, a, b *float64) error {
	rest, ok := strings.CutPrefix(text, prefix)
	if !ok {
		return fmt.Errorf("bad payload %q", text)
	}
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return fmt.Errorf("want two values in %q", text)
	}
	var err error
	if *a, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return err
	}
	*b, err = strconv.ParseFloat(fields[1], 64)
	return err
}

// MovementSystem adds each entity's velocity into its position.
type MovementSystem struct {
	conveyor.BaseSystem
	ctx *conveyor.Context
}

func (s *MovementSystem) Update() error {
	for id := range s.Entities().All() {
		pos, err := conveyor.Get[Position](s.ctx, id)
		if err != nil {
			return err
		}
		vel, err := conveyor.Get[Velocity](s.ctx, id)
		if err != nil {
			return err
		}
		pos.X += vel.DX
		pos.Y += vel.DY
	}
	return nil
}

func newMovementSystem(ctx *conveyor.Context) *MovementSystem {
	sig := conveyor.NewSignature(
		conveyor.MustComponentID[Position](ctx),
		conveyor.MustComponentID[Velocity](ctx),
	)
	return &MovementSystem{BaseSystem: conveyor.NewBaseSystem(sig), ctx: ctx}
}

// Example shows entity creation, signature routing, staged updates, and
// the event bus.
func Example_basic() {
	ctx, _ := conveyor.NewContext(conveyor.DefaultConfig())

	conveyor.RegisterComponent[Position](ctx)
	conveyor.RegisterComponent[Velocity](ctx)
	conveyor.RegisterComponent[Health](ctx)

	mover, _ := ctx.CreateEntity()
	conveyor.AddComponent(ctx, mover, Position{X: 5, Y: 5})
	conveyor.AddComponent(ctx, mover, Velocity{DX: 1, DY: 1})
	conveyor.AddComponent(ctx, mover, Health{HP: 100})

	idle, _ := ctx.CreateEntity()
	conveyor.AddComponent(ctx, idle, Position{})
	conveyor.AddComponent(ctx, idle, Health{HP: 75})

	movement := newMovementSystem(ctx)
	ctx.AddSystem(movement, 0)

	// A later stage observes what stage 0 wrote.
	observer := conveyor.NewSystemFunc(
		conveyor.NewSignature(conveyor.MustComponentID[Position](ctx)),
		func(set *conveyor.EntitySet) error { return nil },
	)
	ctx.AddSystem(observer, 1)

	for range 5 {
		ctx.Update()
	}

	pos, _ := conveyor.Get[Position](ctx, mover)
	fmt.Printf("mover at (%g, %g)\n", pos.X, pos.Y)
	fmt.Printf("movement system matches %d of %d entities\n",
		movement.Entities().Len(), ctx.EntityCount())

	// Event bus: one condition per id, any number of handlers.
	lowHealth := conveyor.EventIDFor("low-health")
	ctx.AddEvent(lowHealth, func() bool {
		h, err := conveyor.Get[Health](ctx, idle)
		return err == nil && h.HP < 80
	})
	ctx.AddEventHandler(lowHealth, func() {
		fmt.Println("low health detected")
	})
	ctx.UpdateEvents()

	// Output:
	// mover at (10, 10)
	// movement system matches 1 of 2 entities
	// low health detected
}
