package list

import (
	"bytes"
	"testing"

	"github.com/tilesim/core/internal/core/pool"
	"go.uber.org/zap"
)

func newPool() *pool.Pool {
	return pool.New(pool.DefaultConfig(), zap.NewNop())
}

func contents(l *List) []byte {
	var out []byte
	l.Each(func(_ int, p []byte) bool {
		out = append(out, p[0])
		return true
	})
	return out
}

func TestPushFrontAndBack(t *testing.T) {
	l := New(newPool(), 1)
	l.PushBack([]byte{2})
	l.PushFront([]byte{1})
	l.PushBack([]byte{3})

	if l.Len() != 3 {
		t.Fatalf("len = %d", l.Len())
	}
	if got := contents(l); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("contents = %v", got)
	}
	if l.Front()[0] != 1 || l.Back()[0] != 3 {
		t.Fatalf("front/back = %v/%v", l.Front(), l.Back())
	}
}

func TestPayloadPaddingAndTruncation(t *testing.T) {
	l := New(newPool(), 4)
	l.PushBack([]byte{9})
	l.PushBack([]byte{1, 2, 3, 4, 5, 6})

	if got := l.Get(0); !bytes.Equal(got, []byte{9, 0, 0, 0}) {
		t.Fatalf("padded payload = %v", got)
	}
	if got := l.Get(1); !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("truncated payload = %v", got)
	}
}

func TestGetPastEndIsNil(t *testing.T) {
	l := New(newPool(), 1)
	l.PushBack([]byte{1})
	if l.Get(1) != nil || l.Get(-1) != nil {
		t.Fatal("expected nil past end")
	}
}

func TestPopOnEmptyIsNoop(t *testing.T) {
	l := New(newPool(), 1)
	if l.PopFront() || l.PopBack() {
		t.Fatal("pop on empty list reported success")
	}
	if l.Len() != 0 || l.Front() != nil {
		t.Fatal("empty list changed")
	}
}

func TestRemoveRelinksNeighbours(t *testing.T) {
	l := New(newPool(), 1)
	for i := byte(0); i < 5; i++ {
		l.PushBack([]byte{i})
	}
	if !l.Remove(2) {
		t.Fatal("Remove(2) failed")
	}
	if !l.Remove(0) {
		t.Fatal("Remove(0) failed")
	}
	if !l.Remove(2) {
		t.Fatal("Remove(tail) failed")
	}
	if l.Remove(5) {
		t.Fatal("Remove past end succeeded")
	}
	if got := contents(l); !bytes.Equal(got, []byte{1, 3}) {
		t.Fatalf("contents = %v", got)
	}
	if l.Back()[0] != 3 {
		t.Fatalf("tail = %v", l.Back())
	}
}

func TestNodesReturnToPool(t *testing.T) {
	p := newPool()
	l := New(p, 16)
	for i := 0; i < 100; i++ {
		l.PushBack([]byte{byte(i)})
	}
	l.PopFront()
	l.PopBack()
	l.Remove(10)
	l.Destroy()

	if l.Len() != 0 || l.Front() != nil || l.Back() != nil {
		t.Fatal("destroy left nodes behind")
	}
	s := p.Stats()
	if s.InUse != 0 || s.Allocs != s.Frees {
		t.Fatalf("nodes leaked: %+v", s)
	}
	if s.Fallbacks != 0 {
		t.Fatalf("node allocations fell back to heap: %d", s.Fallbacks)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestStackIsLIFO(t *testing.T) {
	s := NewStack(newPool(), 1)
	s.Push([]byte{1})
	s.Push([]byte{2})
	s.Push([]byte{3})

	buf := make([]byte, 1)
	for _, want := range []byte{3, 2, 1} {
		if !s.Pop(buf) || buf[0] != want {
			t.Fatalf("Pop = %v, want %d", buf, want)
		}
	}
	if s.Pop(buf) {
		t.Fatal("Pop on empty stack succeeded")
	}
}

func TestQueueIsFIFO(t *testing.T) {
	q := NewQueue(newPool(), 1)
	q.Enqueue([]byte{1})
	q.Enqueue([]byte{2})
	if q.Peek()[0] != 1 {
		t.Fatalf("Peek = %v", q.Peek())
	}

	buf := make([]byte, 1)
	for _, want := range []byte{1, 2} {
		if !q.Dequeue(buf) || buf[0] != want {
			t.Fatalf("Dequeue = %v, want %d", buf, want)
		}
	}
	if q.Dequeue(nil) || q.Len() != 0 {
		t.Fatal("queue not empty")
	}
}
