package system

import (
	"github.com/tilesim/core/internal/component"
	"github.com/tilesim/core/internal/core/ecs"
	coresys "github.com/tilesim/core/internal/core/system"
)

// NewLifetimeSystem counts down Lifetime and queues expired entities for
// destruction at the end of the pass, so later systems still see them.
func NewLifetimeSystem(c *component.Set) coresys.Descriptor {
	return coresys.Descriptor{
		Name:     "lifetime",
		Required: c.Lifetime.Mask(),
		Update: func(w *ecs.World, e ecs.EntityID) {
			var left int32
			c.Lifetime.Update(e, func(l *component.Lifetime) {
				l.Frames--
				left = l.Frames
			})
			if left <= 0 {
				w.MarkForDestruction(e)
			}
		},
	}
}
