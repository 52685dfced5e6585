package list

import "github.com/tilesim/core/internal/core/pool"

// Stack pushes and pops at the head of a List.
type Stack struct {
	l *List
}

func NewStack(p *pool.Pool, payloadSize int) *Stack {
	return &Stack{l: New(p, payloadSize)}
}

func (s *Stack) Push(data []byte) { s.l.PushFront(data) }
func (s *Stack) Peek() []byte     { return s.l.Front() }
func (s *Stack) Len() int         { return s.l.Len() }
func (s *Stack) Destroy()         { s.l.Destroy() }

// Pop copies the top payload into dst, then frees it. dst may be nil.
func (s *Stack) Pop(dst []byte) bool {
	top := s.l.Front()
	if top == nil {
		return false
	}
	copy(dst, top)
	return s.l.PopFront()
}

// Queue pushes at the tail and pops at the head of a List.
type Queue struct {
	l *List
}

func NewQueue(p *pool.Pool, payloadSize int) *Queue {
	return &Queue{l: New(p, payloadSize)}
}

func (q *Queue) Enqueue(data []byte) { q.l.PushBack(data) }
func (q *Queue) Peek() []byte        { return q.l.Front() }
func (q *Queue) Len() int            { return q.l.Len() }
func (q *Queue) Destroy()            { q.l.Destroy() }

// Each visits queued payloads front to back.
func (q *Queue) Each(fn func(i int, payload []byte) bool) { q.l.Each(fn) }

// Dequeue copies the front payload into dst, then frees it.
func (q *Queue) Dequeue(dst []byte) bool {
	front := q.l.Front()
	if front == nil {
		return false
	}
	copy(dst, front)
	return q.l.PopFront()
}
