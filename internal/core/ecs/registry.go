package ecs

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// ComponentType describes one registered component kind.
type ComponentType struct {
	Name string
	ID   ComponentID
	Flag ComponentMask
	Size int
}

const nameBuckets = 64

type nameEntry struct {
	key  string // case-folded name
	id   ComponentID
	next *nameEntry
}

// Registry maps component names to ids. Names compare case-insensitively.
// Registration closes once the registry is sealed; ids are never reordered
// or reused.
type Registry struct {
	types   []ComponentType
	buckets [nameBuckets]*nameEntry
	limit   int
	sealed  bool
	fold    cases.Caser
	log     *zap.Logger
}

func NewRegistry(limit int, log *zap.Logger) *Registry {
	if limit <= 0 || limit > MaxComponents {
		limit = MaxComponents
	}
	return &Registry{
		types: make([]ComponentType, 0, limit),
		limit: limit,
		fold:  cases.Fold(),
		log:   log,
	}
}

func (r *Registry) key(name string) (string, uint64) {
	k := r.fold.String(name)
	return k, xxhash.Sum64String(k) % nameBuckets
}

// Register adds a component kind of size bytes. Registering a known name
// returns its existing id. Fails with InvalidComponent once sealed, when the
// table is full, or for an empty name or negative size.
func (r *Registry) Register(name string, size int) (ComponentID, error) {
	if name == "" {
		r.log.Error("component register with empty name")
		return InvalidComponent, ErrInvalidComponentName
	}
	if id, ok := r.Lookup(name); ok {
		if t := r.types[id]; t.Size != size {
			r.log.Warn("component re-registered with different size",
				zap.String("name", name),
				zap.Int("size", t.Size),
				zap.Int("requested", size),
			)
		}
		return id, nil
	}
	if r.sealed {
		r.log.Error("component register after seal", zap.String("name", name))
		return InvalidComponent, fmt.Errorf("%w: %s", ErrRegistrySealed, name)
	}
	if size < 0 {
		r.log.Error("component register with negative size", zap.String("name", name), zap.Int("size", size))
		return InvalidComponent, fmt.Errorf("%w: %s has size %d", ErrInvalidComponentSize, name, size)
	}
	if len(r.types) >= r.limit {
		r.log.Error("component table full", zap.String("name", name), zap.Int("limit", r.limit))
		return InvalidComponent, fmt.Errorf("%w: %s", ErrComponentTableFull, name)
	}

	id := ComponentID(len(r.types))
	r.types = append(r.types, ComponentType{Name: name, ID: id, Flag: id.Flag(), Size: size})

	k, b := r.key(name)
	r.buckets[b] = &nameEntry{key: k, id: id, next: r.buckets[b]}

	r.log.Debug("component registered",
		zap.String("name", name),
		zap.Uint8("id", uint8(id)),
		zap.Int("size", size),
	)
	return id, nil
}

// Lookup finds a component id by name.
func (r *Registry) Lookup(name string) (ComponentID, bool) {
	k, b := r.key(name)
	for e := r.buckets[b]; e != nil; e = e.next {
		if e.key == k {
			return e.id, true
		}
	}
	return InvalidComponent, false
}

// ID returns the id registered under name, or InvalidComponent.
func (r *Registry) ID(name string) ComponentID {
	id, _ := r.Lookup(name)
	return id
}

// Type returns the descriptor for id.
func (r *Registry) Type(id ComponentID) (ComponentType, bool) {
	if int(id) >= len(r.types) {
		return ComponentType{}, false
	}
	return r.types[id], true
}

// Types returns every registered type in id order.
func (r *Registry) Types() []ComponentType {
	out := make([]ComponentType, len(r.types))
	copy(out, r.types)
	return out
}

// Mask resolves names to a combined mask. Unknown names fail with
// ErrUnknownComponent.
func (r *Registry) Mask(names ...string) (ComponentMask, error) {
	var m ComponentMask
	for _, n := range names {
		id, ok := r.Lookup(n)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownComponent, n)
		}
		m |= id.Flag()
	}
	return m, nil
}

func (r *Registry) Len() int     { return len(r.types) }
func (r *Registry) Sealed() bool { return r.sealed }

func (r *Registry) valid(id ComponentID) bool {
	return int(id) < len(r.types)
}
