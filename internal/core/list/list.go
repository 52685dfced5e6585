package list

import (
	"encoding/binary"

	"github.com/tilesim/core/internal/core/pool"
)

// NodeHeaderSize is reserved at the front of every node block. It records
// the payload size so a block can be recognised when dumping the pool.
const NodeHeaderSize = 8

// node links live in Go memory; the collector cannot trace pointers stored
// inside pool bytes.
type node struct {
	mem  []byte
	next *node
	prev *node
}

func (n *node) payload() []byte { return n.mem[NodeHeaderSize:] }

// List is a doubly linked list of fixed-size byte payloads whose nodes are
// carved from a pool.Pool. Not safe for concurrent use.
type List struct {
	pool        *pool.Pool
	payloadSize int
	head        *node
	tail        *node
	size        int
}

// New creates an empty list whose nodes hold payloadSize bytes.
func New(p *pool.Pool, payloadSize int) *List {
	if payloadSize < 0 {
		payloadSize = 0
	}
	return &List{pool: p, payloadSize: payloadSize}
}

func (l *List) Len() int         { return l.size }
func (l *List) PayloadSize() int { return l.payloadSize }

func (l *List) newNode(data []byte) *node {
	mem := l.pool.Alloc(NodeHeaderSize + l.payloadSize)
	binary.LittleEndian.PutUint32(mem[0:4], uint32(l.payloadSize))
	// pool blocks come back zeroed, so short data is padded
	copy(mem[NodeHeaderSize:], data)
	return &node{mem: mem}
}

func (l *List) release(n *node) {
	n.next, n.prev = nil, nil
	l.pool.Free(n.mem)
	n.mem = nil
}

// PushFront copies data into a new head node. Data longer than the payload
// size is truncated.
func (l *List) PushFront(data []byte) {
	n := l.newNode(data)
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.size++
}

// PushBack copies data into a new tail node.
func (l *List) PushBack(data []byte) {
	n := l.newNode(data)
	n.prev = l.tail
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.size++
}

// PopFront unlinks and frees the head node. Returns false on an empty list.
func (l *List) PopFront() bool {
	if l.head == nil {
		return false
	}
	l.unlink(l.head)
	return true
}

// PopBack unlinks and frees the tail node.
func (l *List) PopBack() bool {
	if l.tail == nil {
		return false
	}
	l.unlink(l.tail)
	return true
}

// Front returns the head payload, or nil.
func (l *List) Front() []byte {
	if l.head == nil {
		return nil
	}
	return l.head.payload()
}

// Back returns the tail payload, or nil.
func (l *List) Back() []byte {
	if l.tail == nil {
		return nil
	}
	return l.tail.payload()
}

// Get walks to index i. Returns nil when i is out of range. The payload
// aliases pool memory and is only valid until the node is removed.
func (l *List) Get(i int) []byte {
	if n := l.at(i); n != nil {
		return n.payload()
	}
	return nil
}

// Remove unlinks and frees the node at index i.
func (l *List) Remove(i int) bool {
	n := l.at(i)
	if n == nil {
		return false
	}
	l.unlink(n)
	return true
}

// Each calls fn for every payload front to back until fn returns false.
// fn must not modify the list.
func (l *List) Each(fn func(i int, payload []byte) bool) {
	i := 0
	for n := l.head; n != nil; n = n.next {
		if !fn(i, n.payload()) {
			return
		}
		i++
	}
}

// Destroy frees every node back to the pool and empties the list.
func (l *List) Destroy() {
	for n := l.head; n != nil; {
		next := n.next
		l.release(n)
		n = next
	}
	l.head, l.tail, l.size = nil, nil, 0
}

func (l *List) at(i int) *node {
	if i < 0 || i >= l.size {
		return nil
	}
	n := l.head
	for ; i > 0; i-- {
		n = n.next
	}
	return n
}

func (l *List) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	l.release(n)
	l.size--
}
