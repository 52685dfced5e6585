package system

import (
	"testing"

	"github.com/tilesim/core/internal/component"
	"github.com/tilesim/core/internal/core/ecs"
	"github.com/tilesim/core/internal/core/pool"
	coresys "github.com/tilesim/core/internal/core/system"
	"go.uber.org/zap"
)

type fixture struct {
	pool  *pool.Pool
	world *ecs.World
	comps *component.Set
	sched *coresys.Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := pool.New(pool.DefaultConfig(), zap.NewNop())
	w, err := ecs.NewWorld(ecs.WorldConfig{MaxEntities: 32, MaxComponents: 8}, p, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	c, err := component.Register(w)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{pool: p, world: w, comps: c, sched: coresys.NewScheduler(w, 8, zap.NewNop())}
}

func (f *fixture) spawnAt(t *testing.T, x, y int32) ecs.EntityID {
	t.Helper()
	e, err := f.world.CreateEntity()
	if err != nil {
		t.Fatal(err)
	}
	f.comps.Position.Set(e, component.Position{X: x, Y: y})
	return e
}

func (f *fixture) register(t *testing.T, d coresys.Descriptor) {
	t.Helper()
	if err := f.sched.Register(d); err != nil {
		t.Fatal(err)
	}
}

func TestMovementWrapsAtEdges(t *testing.T) {
	f := newFixture(t)
	f.register(t, NewMovementSystem(f.comps, 10, 5))

	e := f.spawnAt(t, 9, 0)
	f.comps.Velocity.Set(e, component.Velocity{DX: 2, DY: -1})
	still := f.spawnAt(t, 3, 3)

	f.sched.RunAll()
	if p, _ := f.comps.Position.Get(e); p != (component.Position{X: 1, Y: 4}) {
		t.Fatalf("moved to %+v", p)
	}
	if p, _ := f.comps.Position.Get(still); p != (component.Position{X: 3, Y: 3}) {
		t.Fatalf("entity without velocity moved to %+v", p)
	}
}

func TestLifetimeDestroysAtEndOfPass(t *testing.T) {
	f := newFixture(t)
	f.register(t, NewLifetimeSystem(f.comps))
	seen := 0
	f.register(t, coresys.Descriptor{
		Name:     "after",
		Required: f.comps.Lifetime.Mask(),
		Update:   func(*ecs.World, ecs.EntityID) { seen++ },
	})

	e := f.spawnAt(t, 0, 0)
	f.comps.Lifetime.Set(e, component.Lifetime{Frames: 2})

	f.sched.RunAll()
	if !f.world.Exists(e) {
		t.Fatal("destroyed one frame early")
	}
	f.sched.RunAll()
	if f.world.Exists(e) {
		t.Fatal("expired entity survived")
	}
	if seen != 2 {
		t.Fatalf("later system saw entity %d times, want 2", seen)
	}
}

func TestVisibilityCacheFollowsViewer(t *testing.T) {
	f := newFixture(t)
	vis := NewVisibilityCache(f.comps, f.pool, 2, zap.NewNop())
	defer vis.Close()
	f.register(t, NewMovementSystem(f.comps, 100, 100))
	f.register(t, vis.Descriptor())

	viewer := f.spawnAt(t, 10, 10)
	near := f.spawnAt(t, 12, 8)
	far := f.spawnAt(t, 13, 10)
	f.world.CreateEntity() // no position
	vis.Follow(viewer)

	f.sched.RunAll()
	got := vis.Visible()
	if len(got) != 2 {
		t.Fatalf("visible = %v", got)
	}
	set := map[ecs.EntityID]bool{got[0]: true, got[1]: true}
	if !set[viewer] || !set[near] || set[far] {
		t.Fatalf("visible = %v", got)
	}

	f.comps.Velocity.Set(viewer, component.Velocity{DX: 1})
	f.sched.RunAll()
	if vis.Len() != 3 {
		t.Fatalf("visible after move = %v", vis.Visible())
	}
}

func TestVisibilityCacheRecyclesNodes(t *testing.T) {
	f := newFixture(t)
	vis := NewVisibilityCache(f.comps, f.pool, 100, zap.NewNop())
	f.register(t, vis.Descriptor())
	for i := int32(0); i < 10; i++ {
		f.spawnAt(t, i, i)
	}
	f.sched.RunAll()
	inUse := f.pool.Stats().InUse
	for i := 0; i < 5; i++ {
		f.sched.RunAll()
	}
	if got := f.pool.Stats().InUse; got != inUse {
		t.Fatalf("pool usage grew from %d to %d", inUse, got)
	}
	vis.Close()
	if vis.Len() != 0 {
		t.Fatal("close left nodes queued")
	}
}

func TestCensusCountsKindsAndEvents(t *testing.T) {
	f := newFixture(t)
	cs := NewCensus(f.world, f.comps, 0, zap.NewNop())
	f.register(t, cs.Descriptor())

	a := f.spawnAt(t, 0, 0)
	f.comps.Tag.Set(a, component.Tag{Kind: component.KindMonster})
	b := f.spawnAt(t, 0, 0)
	f.comps.Tag.Set(b, component.Tag{Kind: component.KindMonster})
	c := f.spawnAt(t, 0, 0)
	f.comps.Tag.Set(c, component.Tag{Kind: component.KindPlayer})

	f.sched.RunAll()
	if cs.Kind(component.KindMonster) != 2 || cs.Kind(component.KindPlayer) != 1 {
		t.Fatalf("monsters=%d players=%d", cs.Kind(component.KindMonster), cs.Kind(component.KindPlayer))
	}
	// creation events are delivered at the start of the next pass
	if cs.Born() != 0 {
		t.Fatalf("born = %d before next pass", cs.Born())
	}
	f.world.DestroyEntity(a)
	f.sched.RunAll()
	if cs.Born() != 3 || cs.Died() != 0 {
		t.Fatalf("born=%d died=%d", cs.Born(), cs.Died())
	}
	f.sched.RunAll()
	if cs.Died() != 1 || cs.Kind(component.KindMonster) != 1 {
		t.Fatalf("died=%d monsters=%d", cs.Died(), cs.Kind(component.KindMonster))
	}
}
