package system

import (
	"github.com/tilesim/core/internal/component"
	"github.com/tilesim/core/internal/core/ecs"
	"github.com/tilesim/core/internal/core/event"
	coresys "github.com/tilesim/core/internal/core/system"
	"go.uber.org/zap"
)

// Census counts tagged entities per kind each frame and tallies lifecycle
// events delivered from the previous frame.
type Census struct {
	c         *component.Set
	byKind    [256]int
	born      int
	died      int
	statEvery uint64
	frame     uint64
	log       *zap.Logger
}

// NewCensus subscribes to w's lifecycle events. A summary is logged every
// statEvery frames; 0 disables it.
func NewCensus(w *ecs.World, c *component.Set, statEvery int, log *zap.Logger) *Census {
	cs := &Census{c: c, statEvery: uint64(max(statEvery, 0)), log: log}
	event.Subscribe(w.Bus(), func(ecs.EntityCreated) { cs.born++ })
	event.Subscribe(w.Bus(), func(ecs.EntityDestroyed) { cs.died++ })
	return cs
}

func (cs *Census) Descriptor() coresys.Descriptor {
	return coresys.Descriptor{
		Name:     "census",
		Required: cs.c.Tag.Mask(),
		Pre: func(*ecs.World) {
			clear(cs.byKind[:])
		},
		Update: func(_ *ecs.World, e ecs.EntityID) {
			t, _ := cs.c.Tag.Get(e)
			cs.byKind[t.Kind]++
		},
		Post: cs.report,
	}
}

func (cs *Census) report(w *ecs.World) {
	cs.frame++
	if cs.statEvery == 0 || cs.frame%cs.statEvery != 0 {
		return
	}
	cs.log.Info("census",
		zap.Uint64("frame", cs.frame),
		zap.Int("live", w.Entities().Count()),
		zap.Int("players", cs.byKind[component.KindPlayer]),
		zap.Int("monsters", cs.byKind[component.KindMonster]),
		zap.Int("items", cs.byKind[component.KindItem]),
		zap.Int("born", cs.born),
		zap.Int("died", cs.died),
	)
}

// Kind returns this frame's count of entities tagged kind.
func (cs *Census) Kind(kind uint8) int { return cs.byKind[kind] }

// Born and Died are running totals of delivered lifecycle events.
func (cs *Census) Born() int { return cs.born }
func (cs *Census) Died() int { return cs.died }
