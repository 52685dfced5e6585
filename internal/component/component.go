package component

import (
	"github.com/tilesim/core/internal/core/ecs"
	"go.uber.org/multierr"
)

// Position is a tile coordinate.
type Position struct {
	X int32
	Y int32
}

// Velocity is a per-frame tile step.
type Velocity struct {
	DX int32
	DY int32
}

// Tag classifies an entity for rendering and AI.
type Tag struct {
	Kind uint8
}

const (
	KindNone uint8 = iota
	KindPlayer
	KindMonster
	KindItem
)

// Lifetime counts frames until the entity is removed.
type Lifetime struct {
	Frames int32
}

// Set holds the typed handles for the simulation's components.
type Set struct {
	Position ecs.Component[Position]
	Velocity ecs.Component[Velocity]
	Tag      ecs.Component[Tag]
	Lifetime ecs.Component[Lifetime]
}

// Register registers the components in a fixed order so ids are stable
// across runs.
func Register(w *ecs.World) (*Set, error) {
	var (
		s   Set
		err error
		e   error
	)
	s.Position, e = ecs.RegisterComponent[Position](w, "Position")
	err = multierr.Append(err, e)
	s.Velocity, e = ecs.RegisterComponent[Velocity](w, "Velocity")
	err = multierr.Append(err, e)
	s.Tag, e = ecs.RegisterComponent[Tag](w, "Tag")
	err = multierr.Append(err, e)
	s.Lifetime, e = ecs.RegisterComponent[Lifetime](w, "Lifetime")
	err = multierr.Append(err, e)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
