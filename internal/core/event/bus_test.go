package event

import "testing"

type ping struct{ n int }
type pong struct{ s string }

func TestEventsDeliveredAfterSwap(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(p ping) { got = append(got, p.n) })

	Emit(b, ping{1})
	Emit(b, ping{2})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("delivered before swap: %v", got)
	}
	if b.Pending() != 2 {
		t.Fatalf("pending = %d", b.Pending())
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 2 {
		t.Fatalf("redelivered: %v", got)
	}
}

func TestHandlersAreTyped(t *testing.T) {
	b := NewBus()
	pings, pongs := 0, 0
	Subscribe(b, func(ping) { pings++ })
	Subscribe(b, func(p pong) {
		if p.s == "x" {
			pongs++
		}
	})

	Emit(b, pong{"x"})
	Emit(b, ping{})
	Emit(b, pong{"y"})
	b.SwapBuffers()
	b.DispatchAll()
	if pings != 1 || pongs != 1 {
		t.Fatalf("pings=%d pongs=%d", pings, pongs)
	}
}

func TestResetDropsEvents(t *testing.T) {
	b := NewBus()
	n := 0
	Subscribe(b, func(ping) { n++ })
	Emit(b, ping{})
	b.Reset()
	b.SwapBuffers()
	b.DispatchAll()
	if n != 0 {
		t.Fatalf("delivered %d after reset", n)
	}
}
