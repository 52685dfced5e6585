package ecs

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"
)

// Component is a typed handle over a registered component kind. T must be
// a fixed-size plain data type as understood by encoding/binary (sized
// integers, floats, bools, arrays and structs of those). Values are stored
// little-endian in the world's byte slots.
type Component[T any] struct {
	w  *World
	id ComponentID
}

// RegisterComponent registers T under name, sized by its binary encoding.
func RegisterComponent[T any](w *World, name string) (Component[T], error) {
	var zero T
	size := binary.Size(zero)
	if size < 0 {
		w.log.Error("component type is not fixed-size", zap.String("name", name), zap.String("type", fmt.Sprintf("%T", zero)))
		return Component[T]{w: w, id: InvalidComponent}, fmt.Errorf("%w: %s (%T) is not fixed-size", ErrInvalidComponentSize, name, zero)
	}
	id, err := w.RegisterComponent(name, size)
	if err != nil {
		return Component[T]{w: w, id: InvalidComponent}, err
	}
	if t := w.registry.types[id]; t.Size != size {
		return Component[T]{w: w, id: InvalidComponent}, fmt.Errorf("%w: %s already registered with %d bytes, %T needs %d", ErrInvalidComponentSize, name, t.Size, zero, size)
	}
	return Component[T]{w: w, id: id}, nil
}

func (c Component[T]) ID() ComponentID     { return c.id }
func (c Component[T]) Mask() ComponentMask { return c.id.Flag() }

// Set encodes v into the entity's slot and attaches the component.
func (c Component[T]) Set(e EntityID, v T) bool {
	s := c.w.slot(e, c.id)
	if s == nil {
		return false
	}
	if _, err := binary.Encode(s, binary.LittleEndian, v); err != nil {
		c.w.log.Error("component encode", zap.Uint8("id", uint8(c.id)), zap.Error(err))
		return false
	}
	c.w.masks[e.Index()] |= c.id.Flag()
	return true
}

// Get decodes the attached value. ok is false when the entity is not live
// or the component is not attached.
func (c Component[T]) Get(e EntityID) (v T, ok bool) {
	s := c.w.Get(e, c.id)
	if s == nil {
		return v, false
	}
	if _, err := binary.Decode(s, binary.LittleEndian, &v); err != nil {
		c.w.log.Error("component decode", zap.Uint8("id", uint8(c.id)), zap.Error(err))
		return v, false
	}
	return v, true
}

// Update applies fn to the attached value and stores the result.
func (c Component[T]) Update(e EntityID, fn func(*T)) bool {
	v, ok := c.Get(e)
	if !ok {
		return false
	}
	fn(&v)
	return c.Set(e, v)
}

func (c Component[T]) Has(e EntityID) bool { return c.w.Has(e, c.id) }
func (c Component[T]) Remove(e EntityID)   { c.w.Remove(e, c.id) }
