package system

import (
	"github.com/tilesim/core/internal/component"
	"github.com/tilesim/core/internal/core/ecs"
	coresys "github.com/tilesim/core/internal/core/system"
)

// NewMovementSystem steps every entity with a Position and Velocity,
// wrapping at the map edges.
func NewMovementSystem(c *component.Set, width, height int32) coresys.Descriptor {
	return coresys.Descriptor{
		Name:     "movement",
		Required: c.Position.Mask() | c.Velocity.Mask(),
		Update: func(_ *ecs.World, e ecs.EntityID) {
			v, _ := c.Velocity.Get(e)
			c.Position.Update(e, func(p *component.Position) {
				p.X = wrap(p.X+v.DX, width)
				p.Y = wrap(p.Y+v.DY, height)
			})
		},
	}
}

func wrap(v, n int32) int32 {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
