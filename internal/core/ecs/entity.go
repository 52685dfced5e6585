package ecs

import (
	"encoding/binary"

	"github.com/tilesim/core/internal/core/list"
	"github.com/tilesim/core/internal/core/pool"
	"go.uber.org/zap"
)

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
type EntityID uint64

// Nil is never issued; generations start at 1.
const Nil EntityID = 0

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsNil() bool        { return id == Nil }

// EntityPool issues handles from a bounded index range. Free indices sit on
// a pool-backed stack so the most recently destroyed index is reused first.
// Live handles are kept densely with an index-to-slot table.
type EntityPool struct {
	generations []uint32
	slot        []int32 // position in active, -1 when inactive
	active      []EntityID
	inactive    *list.Stack
	log         *zap.Logger
}

// NewEntityPool prepares capacity handles, all inactive. Index 0 is issued
// first.
func NewEntityPool(capacity int, p *pool.Pool, log *zap.Logger) *EntityPool {
	ep := &EntityPool{
		generations: make([]uint32, capacity),
		slot:        make([]int32, capacity),
		active:      make([]EntityID, 0, capacity),
		inactive:    list.NewStack(p, 4),
		log:         log,
	}
	var buf [4]byte
	for i := capacity - 1; i >= 0; i-- {
		ep.generations[i] = 1
		ep.slot[i] = -1
		binary.LittleEndian.PutUint32(buf[:], uint32(i))
		ep.inactive.Push(buf[:])
	}
	return ep
}

// Create pops an inactive index. Returns Nil and ErrEntityPoolExhausted
// when every handle is live.
func (p *EntityPool) Create() (EntityID, error) {
	var buf [4]byte
	if !p.inactive.Pop(buf[:]) {
		p.log.Warn("entity pool exhausted", zap.Int("capacity", len(p.generations)))
		return Nil, ErrEntityPoolExhausted
	}
	idx := binary.LittleEndian.Uint32(buf[:])
	id := NewEntityID(idx, p.generations[idx])
	p.slot[idx] = int32(len(p.active))
	p.active = append(p.active, id)
	return id, nil
}

// Exists reports whether id is live with a matching generation.
func (p *EntityPool) Exists(id EntityID) bool {
	idx := id.Index()
	if int(idx) >= len(p.generations) {
		return false
	}
	return p.slot[idx] >= 0 && p.generations[idx] == id.Generation()
}

// Destroy retires id. Stale or unknown handles are ignored.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Exists(id) {
		return false
	}
	idx := id.Index()

	s := p.slot[idx]
	last := len(p.active) - 1
	moved := p.active[last]
	p.active[s] = moved
	p.slot[moved.Index()] = s
	p.active = p.active[:last]
	p.slot[idx] = -1

	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], idx)
	p.inactive.Push(buf[:])
	return true
}

// AppendActive appends every live handle to dst.
func (p *EntityPool) AppendActive(dst []EntityID) []EntityID {
	return append(dst, p.active...)
}

func (p *EntityPool) Count() int    { return len(p.active) }
func (p *EntityPool) Capacity() int { return len(p.generations) }

// Shutdown returns the inactive stack's nodes to the pool.
func (p *EntityPool) Shutdown() {
	p.inactive.Destroy()
	p.active = p.active[:0]
}
