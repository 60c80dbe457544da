package conveyor

import "sync"

type opKind int

const (
	opCreate opKind = iota
	opDestroy
	opAddComponent
	opRemoveComponent
	opDropped
)

type deferredOp struct {
	kind   opKind
	entity EntityID
	typeID ComponentTypeID
	apply  func() error
}

type modKey struct {
	entity EntityID
	typeID ComponentTypeID
}

// opQueue buffers structural mutations requested while a pipeline update
// is in flight. Systems run concurrently within a stage, so enqueueing is
// mutex-guarded; the flush happens on the caller's goroutine after the
// final stage barrier.
//
// Dedupe rules: a destroy swallows later destroys of the same entity and
// drops that entity's pending component ops; a second add/remove of the
// same component type on the same entity replaces the earlier op.
type opQueue struct {
	mu             sync.Mutex
	createOps      []deferredOp
	componentOps   []deferredOp
	destroyOps     []deferredOp
	pendingDestroy map[EntityID]struct{}
	pendingMods    map[modKey]int
}

func newOpQueue() opQueue {
	return opQueue{
		pendingDestroy: make(map[EntityID]struct{}),
		pendingMods:    make(map[modKey]int),
	}
}

func (q *opQueue) enqueueCreate(apply func() error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.createOps = append(q.createOps, deferredOp{kind: opCreate, apply: apply})
}

func (q *opQueue) enqueueDestroy(id EntityID, apply func() error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.pendingDestroy[id]; exists {
		return
	}
	q.pendingDestroy[id] = struct{}{}

	// Component ops on a doomed entity are dead weight.
	for key, idx := range q.pendingMods {
		if key.entity == id {
			q.componentOps[idx].kind = opDropped
			delete(q.pendingMods, key)
		}
	}
	q.destroyOps = append(q.destroyOps, deferredOp{kind: opDestroy, entity: id, apply: apply})
}

func (q *opQueue) enqueueComponentOp(kind opKind, id EntityID, typeID ComponentTypeID, apply func() error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, doomed := q.pendingDestroy[id]; doomed {
		return
	}
	key := modKey{entity: id, typeID: typeID}
	if idx, exists := q.pendingMods[key]; exists {
		q.componentOps[idx].kind = kind
		q.componentOps[idx].apply = apply
		return
	}
	q.pendingMods[key] = len(q.componentOps)
	q.componentOps = append(q.componentOps, deferredOp{
		kind:   kind,
		entity: id,
		typeID: typeID,
		apply:  apply,
	})
}

// flush applies creates, then component ops, then destroys, and clears the
// queue. The first error stops the flush; remaining ops are discarded with
// the queue rather than applied to a state the failed op left uncertain.
func (q *opQueue) flush() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer q.clearLocked()

	for _, op := range q.createOps {
		if err := op.apply(); err != nil {
			return err
		}
	}
	for _, op := range q.componentOps {
		if op.kind == opDropped {
			continue
		}
		if err := op.apply(); err != nil {
			return err
		}
	}
	for _, op := range q.destroyOps {
		if err := op.apply(); err != nil {
			return err
		}
	}
	return nil
}

func (q *opQueue) clearLocked() {
	q.createOps = q.createOps[:0]
	q.componentOps = q.componentOps[:0]
	q.destroyOps = q.destroyOps[:0]
	clear(q.pendingDestroy)
	clear(q.pendingMods)
}
