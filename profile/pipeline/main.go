// Profiling harness:
// go build ./profile/pipeline
// go tool pprof -http=":8000" -nodefraction=0.001 ./pipeline cpu.pprof

package main

import (
	"log"

	"github.com/TheBitDrifter/conveyor"
	"github.com/pkg/profile"
)

type position struct {
	X, Y float64
}

type velocity struct {
	DX, DY float64
}

func main() {
	rounds := 50
	updates := 2000
	entities := 1000
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	if err := run(rounds, updates, entities); err != nil {
		log.Fatal(err)
	}
	p.Stop()
}

func run(rounds, updates, numEntities int) error {
	for range rounds {
		ctx, err := conveyor.NewContext(conveyor.Config{
			MaxEntities:       numEntities,
			MaxComponentTypes: 8,
		})
		if err != nil {
			return err
		}
		if _, err := conveyor.RegisterComponent[position](ctx); err != nil {
			return err
		}
		if _, err := conveyor.RegisterComponent[velocity](ctx); err != nil {
			return err
		}

		sig := conveyor.NewSignature(
			conveyor.MustComponentID[position](ctx),
			conveyor.MustComponentID[velocity](ctx),
		)
		movement := conveyor.NewSystemFunc(sig, func(set *conveyor.EntitySet) error {
			for id := range set.All() {
				pos, err := conveyor.Get[position](ctx, id)
				if err != nil {
					return err
				}
				vel, err := conveyor.Get[velocity](ctx, id)
				if err != nil {
					return err
				}
				pos.X += vel.DX
				pos.Y += vel.DY
			}
			return nil
		})
		if err := ctx.AddSystem(movement, 0); err != nil {
			return err
		}

		for range numEntities {
			id, err := ctx.CreateEntity()
			if err != nil {
				return err
			}
			if err := conveyor.AddComponent(ctx, id, position{}); err != nil {
				return err
			}
			if err := conveyor.AddComponent(ctx, id, velocity{DX: 1, DY: 1}); err != nil {
				return err
			}
		}

		for range updates {
			if err := ctx.Update(); err != nil {
				return err
			}
		}
	}
	return nil
}
