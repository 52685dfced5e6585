package pool

import (
	"encoding/binary"
	"sort"
	"unsafe"

	"go.uber.org/zap"
)

// noBlock terminates a free list. Block refs are 1-based within a class.
const noBlock uint32 = 0

type header struct {
	next  uint32
	class uint8
	magic uint16
}

func readHeader(blk []byte) header {
	return header{
		next:  binary.LittleEndian.Uint32(blk[0:4]),
		class: blk[4],
		magic: binary.LittleEndian.Uint16(blk[6:8]),
	}
}

func writeHeader(blk []byte, h header) {
	binary.LittleEndian.PutUint32(blk[0:4], h.next)
	blk[4] = h.class
	blk[5] = 0
	binary.LittleEndian.PutUint16(blk[6:8], h.magic)
}

// chunk is one contiguous run of equally sized blocks.
type chunk struct {
	class int
	index int // position in its class chunk list
	mem   []byte
	start uintptr
	end   uintptr // exclusive
}

func (c *chunk) block(i, blockSize int) []byte {
	off := i * blockSize
	return c.mem[off : off+blockSize : off+blockSize]
}

type sizeClass struct {
	blockSize int
	perChunk  int
	maxChunks int
	chunks    []*chunk
	freeHead  uint32
	freeCount int
}

func (sc *sizeClass) ref(chunkIdx, blockIdx int) uint32 {
	return uint32(chunkIdx*sc.perChunk+blockIdx) + 1
}

func (sc *sizeClass) resolve(ref uint32) []byte {
	i := int(ref - 1)
	return sc.chunks[i/sc.perChunk].block(i%sc.perChunk, sc.blockSize)
}

func (sc *sizeClass) push(blk []byte, class int, ref uint32) {
	writeHeader(blk, header{next: sc.freeHead, class: uint8(class), magic: MagicFree})
	sc.freeHead = ref
	sc.freeCount++
}

// take pops a block off the class free list, growing the class once if the
// list is empty. Returns nil when the class is exhausted.
func (p *Pool) take(class int) []byte {
	sc := &p.classes[class]
	if sc.freeHead == noBlock && !p.grow(class) {
		return nil
	}
	ref := sc.freeHead
	blk := sc.resolve(ref)
	h := readHeader(blk)
	sc.freeHead = h.next
	sc.freeCount--
	writeHeader(blk, header{next: noBlock, class: uint8(class), magic: MagicInUse})
	return blk
}

// grow carves one more chunk for class, bounded by the configured maximum.
func (p *Pool) grow(class int) bool {
	sc := &p.classes[class]
	if len(sc.chunks) >= sc.maxChunks {
		p.log.Debug("pool class at chunk limit",
			zap.Int("class", class),
			zap.Int("block_size", sc.blockSize),
			zap.Int("max_chunks", sc.maxChunks),
		)
		return false
	}

	mem := make([]byte, sc.perChunk*sc.blockSize)
	start := addrOf(mem)
	c := &chunk{
		class: class,
		index: len(sc.chunks),
		mem:   mem,
		start: start,
		end:   start + uintptr(len(mem)),
	}
	sc.chunks = append(sc.chunks, c)

	// link back to front so the lowest block is handed out first
	for i := sc.perChunk - 1; i >= 0; i-- {
		sc.push(c.block(i, sc.blockSize), class, sc.ref(c.index, i))
	}
	p.table.insert(c)

	p.log.Debug("pool grew class",
		zap.Int("class", class),
		zap.Int("block_size", sc.blockSize),
		zap.Int("chunks", len(sc.chunks)),
	)
	return true
}

// chunkTable holds every chunk of every class sorted by start address.
type chunkTable []*chunk

func (t *chunkTable) insert(c *chunk) {
	i := sort.Search(len(*t), func(i int) bool { return (*t)[i].start > c.start })
	*t = append(*t, nil)
	copy((*t)[i+1:], (*t)[i:])
	(*t)[i] = c
}

func (t chunkTable) find(addr uintptr) *chunk {
	i := sort.Search(len(t), func(i int) bool { return t[i].end > addr })
	if i < len(t) && t[i].start <= addr {
		return t[i]
	}
	return nil
}

// addrOf returns the address of the first element of b's backing array.
// Chunks are referenced by the pool for its lifetime, so their addresses
// stay valid for containment checks.
func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
