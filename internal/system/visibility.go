package system

import (
	"encoding/binary"

	"github.com/tilesim/core/internal/component"
	"github.com/tilesim/core/internal/core/ecs"
	"github.com/tilesim/core/internal/core/list"
	"github.com/tilesim/core/internal/core/pool"
	coresys "github.com/tilesim/core/internal/core/system"
	"go.uber.org/zap"
)

// VisibilityCache rebuilds, once per frame, the queue of entities within a
// square radius of the viewer. Queue nodes come from the pool and are
// recycled every frame.
type VisibilityCache struct {
	c       *component.Set
	visible *list.Queue
	radius  int32
	viewer  ecs.EntityID
	originX int32
	originY int32
	log     *zap.Logger
}

func NewVisibilityCache(c *component.Set, p *pool.Pool, radius int32, log *zap.Logger) *VisibilityCache {
	return &VisibilityCache{
		c:       c,
		visible: list.NewQueue(p, 8),
		radius:  radius,
		log:     log,
	}
}

// Follow centres the view on e's position at the start of every frame.
// While e is not live the last origin is kept.
func (v *VisibilityCache) Follow(e ecs.EntityID) { v.viewer = e }

func (v *VisibilityCache) SetOrigin(x, y int32) {
	v.originX, v.originY = x, y
}

func (v *VisibilityCache) Descriptor() coresys.Descriptor {
	return coresys.Descriptor{
		Name:     "visibility",
		Required: v.c.Position.Mask(),
		Pre:      v.reset,
		Update:   v.update,
		Post:     v.report,
	}
}

func (v *VisibilityCache) reset(_ *ecs.World) {
	v.visible.Destroy()
	if p, ok := v.c.Position.Get(v.viewer); ok {
		v.SetOrigin(p.X, p.Y)
	}
}

func (v *VisibilityCache) update(_ *ecs.World, e ecs.EntityID) {
	p, _ := v.c.Position.Get(e)
	if abs(p.X-v.originX) > v.radius || abs(p.Y-v.originY) > v.radius {
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(e))
	v.visible.Enqueue(buf[:])
}

func (v *VisibilityCache) report(_ *ecs.World) {
	v.log.Debug("visible entities",
		zap.Int("count", v.visible.Len()),
		zap.Int32("x", v.originX),
		zap.Int32("y", v.originY),
	)
}

// Visible returns this frame's visible entities in sweep order.
func (v *VisibilityCache) Visible() []ecs.EntityID {
	out := make([]ecs.EntityID, 0, v.visible.Len())
	v.visible.Each(func(_ int, p []byte) bool {
		out = append(out, ecs.EntityID(binary.LittleEndian.Uint64(p)))
		return true
	})
	return out
}

func (v *VisibilityCache) Len() int { return v.visible.Len() }

// Close returns the queue's nodes to the pool.
func (v *VisibilityCache) Close() { v.visible.Destroy() }

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
