package system

import (
	"errors"
	"fmt"

	"github.com/tilesim/core/internal/core/ecs"
	"go.uber.org/zap"
)

var (
	ErrNoWorld         = errors.New("system: scheduler has no world")
	ErrNilUpdate       = errors.New("system: nil update function")
	ErrSystemTableFull = errors.New("system: system table full")
	ErrDuplicateSystem = errors.New("system: duplicate system name")
)

type entry struct {
	Descriptor
	enabled bool
}

// Scheduler runs registered systems in registration order, one pass per
// frame. Single-goroutine access only.
type Scheduler struct {
	world    *ecs.World
	systems  []entry
	capacity int
	active   []ecs.EntityID // per-system snapshot of live entities
	frame    uint64
	log      *zap.Logger
}

func NewScheduler(w *ecs.World, capacity int, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		world:    w,
		systems:  make([]entry, 0, capacity),
		capacity: capacity,
		log:      log,
	}
}

// Register appends d to the run order.
func (s *Scheduler) Register(d Descriptor) error {
	var err error
	switch {
	case s.world == nil:
		err = ErrNoWorld
	case d.Update == nil:
		err = fmt.Errorf("%w: %s", ErrNilUpdate, d.Name)
	case s.index(d.Name) >= 0:
		err = fmt.Errorf("%w: %s", ErrDuplicateSystem, d.Name)
	case len(s.systems) >= s.capacity:
		err = fmt.Errorf("%w: %s (capacity %d)", ErrSystemTableFull, d.Name, s.capacity)
	}
	if err != nil {
		s.log.Error("system register failed", zap.String("system", d.Name), zap.Error(err))
		return err
	}
	s.systems = append(s.systems, entry{Descriptor: d, enabled: true})
	s.log.Debug("system registered",
		zap.String("system", d.Name),
		zap.Uint32("required", uint32(d.Required)),
		zap.Int("order", len(s.systems)-1),
	)
	return nil
}

// SetEnabled toggles a system by name. Disabled systems keep their place
// in the run order. Returns false for an unknown name.
func (s *Scheduler) SetEnabled(name string, enabled bool) bool {
	i := s.index(name)
	if i < 0 {
		return false
	}
	s.systems[i].enabled = enabled
	return true
}

// Systems returns registered names in run order.
func (s *Scheduler) Systems() []string {
	names := make([]string, len(s.systems))
	for i, e := range s.systems {
		names[i] = e.Name
	}
	return names
}

// Frame returns the number of completed passes.
func (s *Scheduler) Frame() uint64 { return s.frame }

// RunAll performs one pass: deliver last frame's events, run every enabled
// system (pre, matching entities, post), flush deferred destruction, then
// rotate the event buffers. Returns false once quit has been requested.
func (s *Scheduler) RunAll() bool {
	w := s.world
	if w == nil {
		return false
	}
	w.Bus().DispatchAll()

	for i := range s.systems {
		sys := &s.systems[i]
		if !sys.enabled {
			continue
		}
		if sys.Pre != nil {
			sys.Pre(w)
		}
		s.active = w.AppendActive(s.active[:0])
		for _, e := range s.active {
			// an earlier update in this pass may have destroyed e or
			// detached a required component
			if w.MaskOf(e).Contains(sys.Required) {
				sys.Update(w, e)
			}
		}
		if sys.Post != nil {
			sys.Post(w)
		}
	}

	if n := w.FlushDestroyQueue(); n > 0 {
		s.log.Debug("destroyed queued entities", zap.Int("count", n), zap.Uint64("frame", s.frame))
	}
	w.Bus().SwapBuffers()
	s.frame++
	return !w.QuitRequested()
}
