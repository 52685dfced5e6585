package system

import "github.com/tilesim/core/internal/core/ecs"

// UpdateFunc runs once per matching entity per pass.
type UpdateFunc func(w *ecs.World, e ecs.EntityID)

// HookFunc runs once per pass, before or after the entity sweep.
type HookFunc func(w *ecs.World)

// Descriptor declares a system. Update is called for every live entity
// whose mask contains Required; Pre and Post are optional.
type Descriptor struct {
	Name     string
	Required ecs.ComponentMask
	Update   UpdateFunc
	Pre      HookFunc
	Post     HookFunc
}
