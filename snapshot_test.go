package conveyor_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TheBitDrifter/conveyor"
)

func populate(t *testing.T, ctx *conveyor.Context) (alive []conveyor.EntityID) {
	t.Helper()
	registerDemoTypes(t, ctx)

	a, _ := ctx.CreateEntity()
	conveyor.AddComponent(ctx, a, Position{X: 5, Y: 5})
	conveyor.AddComponent(ctx, a, Velocity{DX: 1, DY: 1})
	conveyor.AddComponent(ctx, a, Health{HP: 100})

	doomed, _ := ctx.CreateEntity()
	conveyor.AddComponent(ctx, doomed, Position{X: 9, Y: 9})

	b, _ := ctx.CreateEntity()
	conveyor.AddComponent(ctx, b, Position{X: 2.5, Y: 2.5})
	conveyor.AddComponent(ctx, b, Health{HP: 50})

	// Leave a freed id behind so the free list round-trips too.
	if err := ctx.DestroyEntity(doomed); err != nil {
		t.Fatalf("DestroyEntity: %v", err)
	}
	return []conveyor.EntityID{a, b}
}

// TestSnapshotRoundTrip serializes a populated Context and restores it
// into a fresh one with identical registrations: entity set, signatures,
// component values, and id recycling must all match.
func TestSnapshotRoundTrip(t *testing.T) {
	source := newTestContext(t)
	alive := populate(t, source)

	var buf bytes.Buffer
	if err := source.WriteSnapshot(&buf); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	restored := newTestContext(t)
	registerDemoTypes(t, restored)
	if err := restored.ReadSnapshot(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	if got, want := restored.EntityCount(), source.EntityCount(); got != want {
		t.Fatalf("entity count: %d, want %d", got, want)
	}
	for _, id := range alive {
		if !restored.Alive(id) {
			t.Fatalf("entity %d not alive after restore", id)
		}
		wantPos, _ := conveyor.Get[Position](source, id)
		gotPos, err := conveyor.Get[Position](restored, id)
		if err != nil {
			t.Fatalf("restored Get[Position] %d: %v", id, err)
		}
		if *gotPos != *wantPos {
			t.Errorf("entity %d position: %+v, want %+v", id, *gotPos, *wantPos)
		}
		if conveyor.Has[Velocity](restored, id) != conveyor.Has[Velocity](source, id) {
			t.Errorf("entity %d velocity presence diverged", id)
		}
		if conveyor.Has[Health](restored, id) != conveyor.Has[Health](source, id) {
			t.Errorf("entity %d health presence diverged", id)
		}
	}

	// Both sides must recycle the same freed id next.
	wantID, err := source.CreateEntity()
	if err != nil {
		t.Fatalf("source CreateEntity: %v", err)
	}
	gotID, err := restored.CreateEntity()
	if err != nil {
		t.Fatalf("restored CreateEntity: %v", err)
	}
	if gotID != wantID {
		t.Errorf("recycled id after restore: %d, want %d", gotID, wantID)
	}
}

// TestSnapshotSeedsSystems checks that systems registered on the reading
// side get correct matching sets from restored signatures.
func TestSnapshotSeedsSystems(t *testing.T) {
	source := newTestContext(t)
	populate(t, source)
	var buf bytes.Buffer
	if err := source.WriteSnapshot(&buf); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	restored := newTestContext(t)
	registerDemoTypes(t, restored)
	sys := newMovementSystem(restored)
	restored.AddSystem(sys, 0)

	if err := restored.ReadSnapshot(&buf); err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if got := sys.Entities().Len(); got != 1 {
		t.Errorf("movement system matched %d entities after restore, want 1", got)
	}
}

// TestSnapshotPositionalSections checks the legacy contract: sections are
// matched by position, so a foreign type token still loads.
func TestSnapshotPositionalSections(t *testing.T) {
	stream := strings.Join([]string{
		"# ECS Serialisation",
		"# Version: 1.0",
		"",
		"# Entities",
		"EntityCount: 1",
		"NextEntityId: 1",
		"FreedEntityList: ",
		"Entity: 0, Signature: 00000000000000000000000000000001",
		"",
		"# Components",
		"NextComponentTypeId: 1",
		"ComponentType: N8Renamed17PositionComponentE",
		"Entity: 0, Position: 3 4",
	}, "\n")

	ctx := newTestContext(t)
	registerDemoTypes(t, ctx)
	if err := ctx.ReadSnapshot(strings.NewReader(stream)); err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	pos, err := conveyor.Get[Position](ctx, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if pos.X != 3 || pos.Y != 4 {
		t.Errorf("position: {%g, %g}, want {3, 4}", pos.X, pos.Y)
	}
}

// TestSnapshotMalformedLeavesContextUnmodified checks parse-then-apply: a
// bad stream must not disturb existing state.
func TestSnapshotMalformedLeavesContextUnmodified(t *testing.T) {
	tests := []struct {
		name   string
		stream string
	}{
		{
			name: "Bad entity count",
			stream: "EntityCount: 2\nNextEntityId: 1\nFreedEntityList: \n" +
				"Entity: 0, Signature: 0001\n",
		},
		{
			name:   "Bad signature",
			stream: "Entity: 0, Signature: 01x1\n",
		},
		{
			name: "Component for unlisted entity",
			stream: "Entity: 0, Signature: 0001\n" +
				"ComponentType: X\nEntity: 7, Position: 1 2\n",
		},
		{
			name: "Too many sections",
			stream: "ComponentType: A\nComponentType: B\nComponentType: C\n" +
				"ComponentType: D\n",
		},
		{
			name: "Undecodable payload",
			stream: "Entity: 0, Signature: 0001\n" +
				"ComponentType: X\nEntity: 0, garbage\n",
		},
		{
			name:   "Freed id beyond capacity",
			stream: "NextEntityId: 1\nFreedEntityList: 5000\n",
		},
		{
			name:   "Next entity id beyond capacity",
			stream: "NextEntityId: 5000\n",
		},
		{
			name: "Freed id also live",
			stream: "NextEntityId: 2\nFreedEntityList: 0\n" +
				"Entity: 0, Signature: 0000\n",
		},
		{
			name:   "Live id not below next id",
			stream: "NextEntityId: 1\nEntity: 7, Signature: 0000\n",
		},
		{
			name:   "Duplicate freed id",
			stream: "NextEntityId: 3\nFreedEntityList: 1 1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(t)
			alive := populate(t, ctx)

			err := ctx.ReadSnapshot(strings.NewReader(tt.stream))
			var want conveyor.SnapshotFormatError
			if !errors.As(err, &want) {
				t.Fatalf("ReadSnapshot error: %v, want SnapshotFormatError", err)
			}

			if got := ctx.EntityCount(); got != len(alive) {
				t.Errorf("entity count after failed restore: %d, want %d", got, len(alive))
			}
			for _, id := range alive {
				if !conveyor.Has[Position](ctx, id) {
					t.Errorf("entity %d lost its position after failed restore", id)
				}
			}
			// The registry must still allocate cleanly.
			if _, err := ctx.CreateEntity(); err != nil {
				t.Errorf("CreateEntity after failed restore: %v", err)
			}
		})
	}
}

// TestSnapshotFileWrappers round-trips through the path-based wrappers.
func TestSnapshotFileWrappers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.tecs")

	source := newTestContext(t)
	alive := populate(t, source)
	if err := source.WriteSnapshotFile(path); err != nil {
		t.Fatalf("WriteSnapshotFile: %v", err)
	}

	restored := newTestContext(t)
	registerDemoTypes(t, restored)
	if err := restored.ReadSnapshotFile(path); err != nil {
		t.Fatalf("ReadSnapshotFile: %v", err)
	}
	if got, want := restored.EntityCount(), len(alive); got != want {
		t.Errorf("entity count: %d, want %d", got, want)
	}

	if err := restored.ReadSnapshotFile(filepath.Join(t.TempDir(), "missing.tecs")); err == nil {
		t.Errorf("reading a missing snapshot file succeeded")
	}
}
