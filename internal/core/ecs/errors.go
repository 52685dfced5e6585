package ecs

import "errors"

var (
	ErrInvalidWorldConfig   = errors.New("ecs: invalid world config")
	ErrNilPool              = errors.New("ecs: nil pool")
	ErrEntityPoolExhausted  = errors.New("ecs: entity pool exhausted")
	ErrRegistrySealed       = errors.New("ecs: registry sealed")
	ErrComponentTableFull   = errors.New("ecs: component table full")
	ErrInvalidComponentName = errors.New("ecs: invalid component name")
	ErrInvalidComponentSize = errors.New("ecs: invalid component size")
	ErrUnknownComponent     = errors.New("ecs: unknown component")
)
