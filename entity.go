package conveyor

import "github.com/TheBitDrifter/mask"

// posNone marks an id with no recorded position in the active list.
const posNone = ^uint32(0)

// entityRegistry owns id allocation and liveness. Every id is either live
// (present in the active list with a recorded position) or free (on the
// LIFO free list), never both. The active list is swap-removed so
// iteration order is dense but unstable across destroys.
type entityRegistry struct {
	active     []EntityID
	freed      []EntityID
	positions  []uint32
	signatures []mask.Mask
	next       EntityID
	max        int
}

func newEntityRegistry(maxEntities int) *entityRegistry {
	r := &entityRegistry{
		positions:  make([]uint32, maxEntities),
		signatures: make([]mask.Mask, maxEntities),
		max:        maxEntities,
	}
	for i := range r.positions {
		r.positions[i] = posNone
	}
	return r
}

func (r *entityRegistry) create() (EntityID, error) {
	if len(r.active) >= r.max {
		return 0, CapacityError{Max: r.max}
	}
	var id EntityID
	if n := len(r.freed); n > 0 {
		id = r.freed[n-1]
		r.freed = r.freed[:n-1]
	} else {
		id = r.next
		r.next++
	}
	r.activate(id)
	return id, nil
}

func (r *entityRegistry) activate(id EntityID) {
	r.active = append(r.active, id)
	r.positions[id] = uint32(len(r.active) - 1)
}

func (r *entityRegistry) alive(id EntityID) bool {
	return int(id) < len(r.positions) && r.positions[id] != posNone
}

// release removes id from the active list and recycles it. Reports false
// if the id was not live (double-destroy is harmless).
func (r *entityRegistry) release(id EntityID) bool {
	if !r.alive(id) {
		return false
	}
	r.freed = append(r.freed, id)
	r.signatures[id] = mask.Mask{}

	// Swap-remove: the trailing active entity takes the vacated position.
	pos := r.positions[id]
	last := r.active[len(r.active)-1]
	r.active[pos] = last
	r.positions[last] = pos
	r.active = r.active[:len(r.active)-1]
	r.positions[id] = posNone
	return true
}

func (r *entityRegistry) signature(id EntityID) mask.Mask {
	return r.signatures[id]
}

func (r *entityRegistry) markSignature(id EntityID, bit ComponentTypeID) {
	r.signatures[id].Mark(uint32(bit))
}

func (r *entityRegistry) unmarkSignature(id EntityID, bit ComponentTypeID) {
	r.signatures[id].Unmark(uint32(bit))
}

func (r *entityRegistry) reset() {
	r.active = r.active[:0]
	r.freed = r.freed[:0]
	r.next = 0
	for i := range r.positions {
		r.positions[i] = posNone
		r.signatures[i] = mask.Mask{}
	}
}
