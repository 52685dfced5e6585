package pool

import (
	"go.uber.org/zap"
)

// NumClasses is the number of segregated size classes.
const NumClasses = 8

// HeaderSize is the per-block header: next-free link (4), class tag (1),
// reserved (1), magic (2).
const HeaderSize = 8

// Block magic numbers. A block is either linked into its class free list
// (MagicFree) or handed out to a caller (MagicInUse).
const (
	MagicFree  uint16 = 0xF4EE
	MagicInUse uint16 = 0xA11C
)

// classSizes are header-inclusive block sizes, ascending.
var classSizes = [NumClasses]int{16, 32, 64, 128, 256, 512, 1024, 2048}

// MaxPayload is the largest request served from a size class; anything
// bigger goes straight to the heap.
const MaxPayload = 2048 - HeaderSize

// Config controls chunk carving per size class.
type Config struct {
	BlocksPerChunk   [NumClasses]int
	MaxChunks        [NumClasses]int
	DetectCorruption bool
}

// DefaultConfig carves roughly 4KB chunks per class and allows 64 of them.
func DefaultConfig() Config {
	return Config{
		BlocksPerChunk:   [NumClasses]int{256, 128, 64, 32, 16, 8, 4, 2},
		MaxChunks:        [NumClasses]int{64, 64, 64, 64, 64, 64, 64, 64},
		DetectCorruption: true,
	}
}

// Pool is a segregated free-list allocator. Blocks and chunks live until
// Shutdown; freed blocks go back to their class, never to the heap.
// Single-goroutine access only.
type Pool struct {
	cfg     Config
	classes [NumClasses]sizeClass
	table   chunkTable

	// heap fallback allocations keyed by payload address
	fallback map[uintptr][]byte

	stats Stats
	log   *zap.Logger
}

// New creates an empty pool. Non-positive per-class values in cfg fall back
// to DefaultConfig.
func New(cfg Config, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultConfig()
	for i := range cfg.BlocksPerChunk {
		if cfg.BlocksPerChunk[i] <= 0 {
			cfg.BlocksPerChunk[i] = def.BlocksPerChunk[i]
		}
		if cfg.MaxChunks[i] < 0 {
			cfg.MaxChunks[i] = 0
		}
	}
	p := &Pool{cfg: cfg, log: log}
	p.reset()
	return p
}

func (p *Pool) reset() {
	for i := range p.classes {
		p.classes[i] = sizeClass{
			blockSize: classSizes[i],
			perChunk:  p.cfg.BlocksPerChunk[i],
			maxChunks: p.cfg.MaxChunks[i],
		}
	}
	p.table = p.table[:0]
	p.fallback = make(map[uintptr][]byte)
}

// ClassFor maps a payload size to the smallest class whose block fits the
// payload plus header.
func ClassFor(size int) (int, bool) {
	if size < 0 {
		return 0, false
	}
	need := size + HeaderSize
	for i, s := range classSizes {
		if need <= s {
			return i, true
		}
	}
	return 0, false
}

// BlockSize returns the header-inclusive block size of a class.
func BlockSize(class int) int {
	return classSizes[class]
}

// Alloc returns a zeroed payload of len size. Requests larger than
// MaxPayload, or whose class cannot grow, are served by the heap and counted
// as fallbacks. Alloc never fails for size >= 0.
func (p *Pool) Alloc(size int) []byte {
	if size < 0 {
		p.log.Error("pool alloc with negative size", zap.Int("size", size))
		return nil
	}
	if class, ok := ClassFor(size); ok {
		if blk := p.take(class); blk != nil {
			p.stats.onAlloc(uint64(len(blk)))
			payload := blk[HeaderSize:]
			clear(payload)
			return payload[:size:len(payload)]
		}
	}
	return p.allocFallback(size)
}

// Free returns b to its size class. Pointers the pool does not own are
// released through the heap path. Corrupted or already-free blocks are
// logged and left untouched.
func (p *Pool) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	addr := addrOf(b)
	c := p.table.find(addr)
	if c == nil {
		p.freeFallback(addr)
		return
	}

	sc := &p.classes[c.class]
	idx := int(addr-c.start) / sc.blockSize
	blk := c.block(idx, sc.blockSize)

	if p.cfg.DetectCorruption {
		h := readHeader(blk)
		if h.magic != MagicInUse {
			p.stats.Corruptions++
			msg := "pool free of corrupted block"
			if h.magic == MagicFree {
				msg = "pool double free"
			}
			p.log.Error(msg,
				zap.Int("class", c.class),
				zap.Int("chunk", c.index),
				zap.Int("block", idx),
				zap.Uint16("magic", h.magic),
			)
			return
		}
		if int(h.class) != c.class {
			p.stats.Corruptions++
			p.log.Error("pool free with mismatched class tag",
				zap.Int("class", c.class),
				zap.Uint8("tag", h.class),
			)
			return
		}
	}

	sc.push(blk, c.class, sc.ref(c.index, idx))
	p.stats.onFree(uint64(sc.blockSize))
}

// Owns reports the size class that b was carved from, if any.
func (p *Pool) Owns(b []byte) (int, bool) {
	if cap(b) == 0 {
		return 0, false
	}
	c := p.table.find(addrOf(b))
	if c == nil {
		return 0, false
	}
	return c.class, true
}

// FreeBlocks returns the number of blocks on a class free list.
func (p *Pool) FreeBlocks(class int) int {
	return p.classes[class].freeCount
}

// Chunks returns the number of chunks carved for a class.
func (p *Pool) Chunks(class int) int {
	return len(p.classes[class].chunks)
}

// Shutdown drops every chunk and fallback allocation and zeroes the
// statistics. The pool may be reused afterwards.
func (p *Pool) Shutdown() {
	p.log.Debug("pool shutdown",
		zap.Int("chunks", len(p.table)),
		zap.Int("fallback_live", len(p.fallback)),
	)
	p.reset()
	p.stats = Stats{}
}

func (p *Pool) allocFallback(size int) []byte {
	// cap of at least one byte gives every fallback a distinct address
	b := make([]byte, size, max(size, 1))
	p.fallback[addrOf(b)] = b
	p.stats.Fallbacks++
	p.stats.onAlloc(uint64(size))
	p.log.Debug("pool fallback to heap", zap.Int("size", size))
	return b
}

func (p *Pool) freeFallback(addr uintptr) {
	b, ok := p.fallback[addr]
	if !ok {
		// not ours at all; the collector owns it
		p.log.Debug("pool free of foreign pointer")
		return
	}
	delete(p.fallback, addr)
	p.stats.onFree(uint64(len(b)))
}
