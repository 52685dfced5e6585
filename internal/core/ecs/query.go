package ecs

// Each calls fn for every live entity whose mask contains required. The
// live set is snapshotted first, and each entity is re-checked just before
// fn runs, so fn may create, destroy or detach freely.
func (w *World) Each(required ComponentMask, fn func(EntityID)) {
	active := w.AppendActive(make([]EntityID, 0, w.entities.Count()))
	for _, id := range active {
		if w.MaskOf(id).Contains(required) {
			fn(id)
		}
	}
}

// Each2 iterates entities that have both A and B, passing decoded values.
// Changes to the values are not written back; use Set.
func Each2[A, B any](ca Component[A], cb Component[B], fn func(EntityID, A, B)) {
	ca.w.Each(ca.Mask()|cb.Mask(), func(id EntityID) {
		a, ok := ca.Get(id)
		if !ok {
			return
		}
		b, ok := cb.Get(id)
		if !ok {
			return
		}
		fn(id, a, b)
	})
}

// Each3 iterates entities that have A, B and C.
func Each3[A, B, C any](ca Component[A], cb Component[B], cc Component[C], fn func(EntityID, A, B, C)) {
	ca.w.Each(ca.Mask()|cb.Mask()|cc.Mask(), func(id EntityID) {
		a, ok := ca.Get(id)
		if !ok {
			return
		}
		b, ok := cb.Get(id)
		if !ok {
			return
		}
		c, ok := cc.Get(id)
		if !ok {
			return
		}
		fn(id, a, b, c)
	})
}
