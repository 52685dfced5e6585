package pool

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrCorruptFreeList is wrapped by every Validate finding.
var ErrCorruptFreeList = errors.New("pool: corrupt free list")

// Stats are running allocator counters. Byte counts use block sizes for
// pooled allocations and requested sizes for heap fallbacks.
type Stats struct {
	Allocs         uint64
	Frees          uint64
	BytesAllocated uint64
	BytesFreed     uint64
	InUse          uint64
	Peak           uint64
	Fallbacks      uint64
	Corruptions    uint64
	Classes        [NumClasses]ClassStats
}

// ClassStats is a point-in-time view of one size class.
type ClassStats struct {
	BlockSize   int
	Chunks      int
	TotalBlocks int
	FreeBlocks  int
}

func (s *Stats) onAlloc(n uint64) {
	s.Allocs++
	s.BytesAllocated += n
	s.InUse += n
	if s.InUse > s.Peak {
		s.Peak = s.InUse
	}
}

func (s *Stats) onFree(n uint64) {
	s.Frees++
	s.BytesFreed += n
	s.InUse -= n
}

// Stats returns a snapshot of the counters and per-class occupancy.
func (p *Pool) Stats() Stats {
	s := p.stats
	for i := range p.classes {
		sc := &p.classes[i]
		s.Classes[i] = ClassStats{
			BlockSize:   sc.blockSize,
			Chunks:      len(sc.chunks),
			TotalBlocks: len(sc.chunks) * sc.perChunk,
			FreeBlocks:  sc.freeCount,
		}
	}
	return s
}

// LogStats writes the current statistics at info level.
func (p *Pool) LogStats() {
	s := p.Stats()
	p.log.Info("pool stats",
		zap.Uint64("allocs", s.Allocs),
		zap.Uint64("frees", s.Frees),
		zap.Uint64("bytes_allocated", s.BytesAllocated),
		zap.Uint64("bytes_freed", s.BytesFreed),
		zap.Uint64("in_use", s.InUse),
		zap.Uint64("peak", s.Peak),
		zap.Uint64("fallbacks", s.Fallbacks),
		zap.Uint64("corruptions", s.Corruptions),
	)
	for i, c := range s.Classes {
		if c.Chunks == 0 {
			continue
		}
		p.log.Info("pool class",
			zap.Int("class", i),
			zap.Int("block_size", c.BlockSize),
			zap.Int("chunks", c.Chunks),
			zap.Int("free", c.FreeBlocks),
			zap.Int("total", c.TotalBlocks),
		)
	}
}

// Validate walks every free list and checks magic numbers, class tags and
// the free count. All findings are returned together.
func (p *Pool) Validate() error {
	var err error
	for class := range p.classes {
		sc := &p.classes[class]
		total := len(sc.chunks) * sc.perChunk
		seen := 0
		for ref := sc.freeHead; ref != noBlock; {
			if int(ref) > total {
				err = multierr.Append(err, fmt.Errorf("%w: class %d link %d out of range", ErrCorruptFreeList, class, ref))
				break
			}
			if seen >= total {
				err = multierr.Append(err, fmt.Errorf("%w: class %d cycle", ErrCorruptFreeList, class))
				break
			}
			h := readHeader(sc.resolve(ref))
			if h.magic != MagicFree {
				err = multierr.Append(err, fmt.Errorf("%w: class %d block %d magic %#x", ErrCorruptFreeList, class, ref, h.magic))
			}
			if int(h.class) != class {
				err = multierr.Append(err, fmt.Errorf("%w: class %d block %d tagged %d", ErrCorruptFreeList, class, ref, h.class))
			}
			seen++
			ref = h.next
		}
		if seen != sc.freeCount {
			err = multierr.Append(err, fmt.Errorf("%w: class %d walked %d blocks, counted %d", ErrCorruptFreeList, class, seen, sc.freeCount))
		}
	}
	return err
}
