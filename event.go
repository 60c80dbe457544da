package conveyor

import "hash/fnv"

// eventBus maps each EventID to one condition and any number of handlers.
// Conditions are evaluated on demand by UpdateEvents; handlers registered
// for an id with no condition simply never fire.
type eventBus struct {
	conditions map[EventID]EventCondition
	handlers   map[EventID][]EventHandler
}

func newEventBus() eventBus {
	return eventBus{
		conditions: make(map[EventID]EventCondition),
		handlers:   make(map[EventID][]EventHandler),
	}
}

// addEvent installs the condition for id, replacing any previous one.
func (b *eventBus) addEvent(id EventID, condition EventCondition) {
	b.conditions[id] = condition
}

// addHandler appends a handler; handlers fire in registration order.
func (b *eventBus) addHandler(id EventID, handler EventHandler) {
	b.handlers[id] = append(b.handlers[id], handler)
}

// update evaluates every condition exactly once, in map iteration order,
// and synchronously runs the handlers of each condition that holds.
func (b *eventBus) update() {
	for id, condition := range b.conditions {
		if condition == nil || !condition() {
			continue
		}
		for _, handler := range b.handlers[id] {
			handler()
		}
	}
}

// EventIDFor derives a stable EventID from a name using 32-bit FNV-1a,
// so call sites can key events by string without keeping a table.
func EventIDFor(name string) EventID {
	h := fnv.New32a()
	h.Write([]byte(name))
	return EventID(h.Sum32())
}
