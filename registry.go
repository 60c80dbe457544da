package conveyor

import "reflect"

// typeRegistry assigns each component type a dense sequential id and keeps
// the type-erased store installed for it. Capacity-bounded: ids are
// signature bits, so the registry can never outgrow the signature width.
type typeRegistry struct {
	ids    map[reflect.Type]ComponentTypeID
	stores []componentStore
	max    int
}

func newTypeRegistry(maxTypes int) *typeRegistry {
	return &typeRegistry{
		ids: make(map[reflect.Type]ComponentTypeID, maxTypes),
		max: maxTypes,
	}
}

func (r *typeRegistry) register(t reflect.Type, store componentStore) (ComponentTypeID, error) {
	if _, exists := r.ids[t]; exists {
		return 0, ComponentTypeExistsError{Type: t}
	}
	if len(r.stores) >= r.max {
		return 0, ComponentTypeCapacityError{Max: r.max}
	}
	id := ComponentTypeID(len(r.stores))
	r.ids[t] = id
	r.stores = append(r.stores, store)
	return id, nil
}

func (r *typeRegistry) lookup(t reflect.Type) (ComponentTypeID, bool) {
	id, ok := r.ids[t]
	return id, ok
}

func (r *typeRegistry) store(id ComponentTypeID) componentStore {
	return r.stores[id]
}

func (r *typeRegistry) count() int {
	return len(r.stores)
}
