package ecs

import "math/bits"

// MaxComponents is the width of ComponentMask.
const MaxComponents = 32

// ComponentID indexes the registry. Its bit in a mask is 1 << id.
type ComponentID uint8

// InvalidComponent is returned by failed registrations and lookups.
const InvalidComponent ComponentID = 0xFF

func (id ComponentID) Valid() bool { return id < MaxComponents }

// Flag returns the mask bit for id, or 0 for an invalid id.
func (id ComponentID) Flag() ComponentMask {
	if !id.Valid() {
		return 0
	}
	return 1 << id
}

// ComponentMask records attached component types, one bit per id.
type ComponentMask uint32

func (m ComponentMask) Has(id ComponentID) bool {
	return id.Valid() && m&id.Flag() != 0
}

// Contains reports whether every bit of sub is set in m.
func (m ComponentMask) Contains(sub ComponentMask) bool {
	return m&sub == sub
}

func (m ComponentMask) Count() int { return bits.OnesCount32(uint32(m)) }

// MaskOf combines component ids into one mask. Invalid ids are skipped.
func MaskOf(ids ...ComponentID) ComponentMask {
	var m ComponentMask
	for _, id := range ids {
		m |= id.Flag()
	}
	return m
}
