package ecs

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tilesim/core/internal/core/event"
	"github.com/tilesim/core/internal/core/pool"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// MaxEntities bounds WorldConfig.MaxEntities; handle indices are 32 bits
// but storage is sized up front.
const MaxEntities = 1 << 20

// WorldConfig fixes a world's capacities. They are validated once in
// NewWorld and never change.
type WorldConfig struct {
	MaxEntities   int
	MaxComponents int
}

func (c WorldConfig) Validate() error {
	var err error
	if c.MaxEntities <= 0 || c.MaxEntities > MaxEntities {
		err = multierr.Append(err, fmt.Errorf("%w: max entities %d not in (0, %d]", ErrInvalidWorldConfig, c.MaxEntities, MaxEntities))
	}
	if c.MaxComponents <= 0 || c.MaxComponents > MaxComponents {
		err = multierr.Append(err, fmt.Errorf("%w: max components %d not in (0, %d]", ErrInvalidWorldConfig, c.MaxComponents, MaxComponents))
	}
	return err
}

// EntityCreated is emitted on the world bus after Create.
type EntityCreated struct {
	Entity EntityID
}

// EntityDestroyed is emitted on the world bus after Destroy. The handle is
// already stale when handlers see it.
type EntityDestroyed struct {
	Entity EntityID
	Mask   ComponentMask
}

// World is the context every ECS operation goes through. It owns the entity
// pool, the component registry and storage, a deferred destruction queue
// and the quit flag. Single-goroutine access only.
type World struct {
	id       uuid.UUID
	cfg      WorldConfig
	pool     *pool.Pool
	registry *Registry
	entities *EntityPool
	bus      *event.Bus

	// storage, allocated on seal
	slots [][]byte // per component id: MaxEntities * size bytes
	masks []ComponentMask

	destroyQueue []EntityID
	quit         bool

	log *zap.Logger
}

// NewWorld validates cfg and builds an empty world. Every list node the
// world creates is carved from p.
func NewWorld(cfg WorldConfig, p *pool.Pool, log *zap.Logger) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNilPool
	}
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	log = log.With(zap.String("world", id.String()))

	w := &World{
		id:           id,
		cfg:          cfg,
		pool:         p,
		registry:     NewRegistry(cfg.MaxComponents, log),
		entities:     NewEntityPool(cfg.MaxEntities, p, log),
		bus:          event.NewBus(),
		destroyQueue: make([]EntityID, 0, 64),
		log:          log,
	}
	log.Debug("world created",
		zap.Int("max_entities", cfg.MaxEntities),
		zap.Int("max_components", cfg.MaxComponents),
	)
	return w, nil
}

func (w *World) ID() uuid.UUID           { return w.id }
func (w *World) Config() WorldConfig     { return w.cfg }
func (w *World) Pool() *pool.Pool        { return w.pool }
func (w *World) Registry() *Registry     { return w.registry }
func (w *World) Entities() *EntityPool   { return w.entities }
func (w *World) Bus() *event.Bus         { return w.bus }
func (w *World) Logger() *zap.Logger     { return w.log }
func (w *World) Sealed() bool            { return w.registry.sealed }
func (w *World) QuitRequested() bool     { return w.quit }
func (w *World) ClearQuit()              { w.quit = false }
func (w *World) Exists(id EntityID) bool { return w.entities.Exists(id) }

// RegisterComponent adds a component kind; see Registry.Register.
func (w *World) RegisterComponent(name string, size int) (ComponentID, error) {
	return w.registry.Register(name, size)
}

// Seal closes registration and allocates every component slot. It runs
// implicitly on first entity creation or component access.
func (w *World) Seal() {
	if w.registry.sealed {
		return
	}
	w.registry.sealed = true

	n := w.cfg.MaxEntities
	w.slots = make([][]byte, len(w.registry.types))
	total := 0
	for i, t := range w.registry.types {
		w.slots[i] = make([]byte, t.Size*n)
		total += t.Size * n
	}
	w.masks = make([]ComponentMask, n)

	w.log.Info("component registry sealed",
		zap.Int("components", len(w.registry.types)),
		zap.Int("slot_bytes", total),
	)
}

// CreateEntity issues a handle, sealing the registry on first use.
func (w *World) CreateEntity() (EntityID, error) {
	w.Seal()
	id, err := w.entities.Create()
	if err != nil {
		return Nil, err
	}
	w.masks[id.Index()] = 0
	event.Emit(w.bus, EntityCreated{Entity: id})
	return id, nil
}

// DestroyEntity clears the entity's components and recycles its index.
// Inactive or stale handles are a no-op.
func (w *World) DestroyEntity(id EntityID) bool {
	if !w.entities.Exists(id) {
		return false
	}
	idx := id.Index()
	mask := w.masks[idx]
	w.masks[idx] = 0
	w.entities.Destroy(id)
	event.Emit(w.bus, EntityDestroyed{Entity: id, Mask: mask})
	return true
}

// MarkForDestruction queues an entity for destruction at the end of the
// current scheduler pass.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// FlushDestroyQueue destroys every queued entity and returns how many were
// still live.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for _, id := range w.destroyQueue {
		if w.DestroyEntity(id) {
			n++
		}
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}

// RequestQuit raises the quit flag. The scheduler reports it after the
// current pass completes.
func (w *World) RequestQuit() {
	if !w.quit {
		w.log.Info("quit requested")
	}
	w.quit = true
}

// AppendActive appends every live handle to dst.
func (w *World) AppendActive(dst []EntityID) []EntityID {
	return w.entities.AppendActive(dst)
}

// slot returns the storage for (id, c) when the entity is live and c is
// registered, regardless of whether the component is attached.
func (w *World) slot(id EntityID, c ComponentID) []byte {
	w.Seal()
	if !w.entities.Exists(id) || !w.registry.valid(c) {
		return nil
	}
	size := w.registry.types[c].Size
	off := int(id.Index()) * size
	return w.slots[c][off : off+size : off+size]
}

// Add copies data into the entity's slot for c and marks it attached.
// Missing bytes are zeroed, extra bytes ignored. Re-adding overwrites.
func (w *World) Add(id EntityID, c ComponentID, data []byte) bool {
	s := w.slot(id, c)
	if s == nil {
		return false
	}
	n := copy(s, data)
	clear(s[n:])
	w.masks[id.Index()] |= c.Flag()
	return true
}

// Get returns the entity's slot for c, or nil unless the entity is live and
// the component attached. The slice aliases storage.
func (w *World) Get(id EntityID, c ComponentID) []byte {
	s := w.slot(id, c)
	if s == nil || !w.masks[id.Index()].Has(c) {
		return nil
	}
	return s
}

// Has reports whether c is attached to a live entity.
func (w *World) Has(id EntityID, c ComponentID) bool {
	return w.MaskOf(id).Has(c)
}

// Remove detaches c. The slot bytes are left as they were.
func (w *World) Remove(id EntityID, c ComponentID) {
	if !w.entities.Exists(id) || !w.registry.valid(c) {
		return
	}
	w.masks[id.Index()] &^= c.Flag()
}

// MaskOf returns the attached-component mask of a live entity, or 0.
func (w *World) MaskOf(id EntityID) ComponentMask {
	w.Seal()
	if !w.entities.Exists(id) {
		return 0
	}
	return w.masks[id.Index()]
}

func (w *World) AddByName(id EntityID, name string, data []byte) bool {
	return w.Add(id, w.registry.ID(name), data)
}

func (w *World) GetByName(id EntityID, name string) []byte {
	return w.Get(id, w.registry.ID(name))
}

func (w *World) HasByName(id EntityID, name string) bool {
	return w.Has(id, w.registry.ID(name))
}

func (w *World) RemoveByName(id EntityID, name string) {
	w.Remove(id, w.registry.ID(name))
}

// Shutdown releases pool-backed state. The world must not be used after.
func (w *World) Shutdown() {
	w.entities.Shutdown()
	w.slots = nil
	w.masks = nil
	w.destroyQueue = nil
	w.bus.Reset()
	w.log.Debug("world shutdown")
}
