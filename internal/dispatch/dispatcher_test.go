package dispatch

import (
	"reflect"
	"testing"
	"time"
)

type recordedCall struct {
	Name string
	X, Y float64
}

type recordingSink struct {
	calls []recordedCall
}

func (s *recordingSink) PointerDown(x, y float64) {
	s.calls = append(s.calls, recordedCall{"down", x, y})
}
func (s *recordingSink) PointerMove(x, y float64) {
	s.calls = append(s.calls, recordedCall{"move", x, y})
}
func (s *recordingSink) PointerUp(x, y float64) {
	s.calls = append(s.calls, recordedCall{"up", x, y})
}
func (s *recordingSink) ContextMenu(x, y float64) {
	s.calls = append(s.calls, recordedCall{"menu", x, y})
}

// newTestDispatcher swaps the clock for a manually advanced one.
func newTestDispatcher() (*Dispatcher, *recordingSink, *time.Time) {
	sink := &recordingSink{}
	d := NewDispatcher(sink)
	clock := time.Unix(0, 0)
	d.now = func() time.Time { return clock }
	return d, sink, &clock
}

func TestDuplicateFromOtherSourceDropped(t *testing.T) {
	d, sink, clock := newTestDispatcher()

	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindDown, X: 10, Y: 20})
	*clock = clock.Add(5 * time.Millisecond)
	d.Dispatch(PointerEvent{Source: SourceDOM, Kind: KindDown, X: 10, Y: 20})

	want := []recordedCall{{"down", 10, 20}}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Fatalf("calls = %v; want %v", sink.calls, want)
	}
}

func TestSecondSourceOutsideWindowForwards(t *testing.T) {
	d, sink, clock := newTestDispatcher()

	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindDown, X: 10, Y: 20})
	*clock = clock.Add(60 * time.Millisecond)
	d.Dispatch(PointerEvent{Source: SourceDOM, Kind: KindDown, X: 10, Y: 20})

	if len(sink.calls) != 2 {
		t.Fatalf("len(calls) = %d; want 2 when outside the dedup window", len(sink.calls))
	}
}

func TestSameSourceRepeatNotDeduplicated(t *testing.T) {
	d, sink, clock := newTestDispatcher()

	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindDown, X: 10, Y: 20})
	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindUp, X: 10, Y: 20})
	*clock = clock.Add(5 * time.Millisecond)
	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindDown, X: 10, Y: 20})

	if len(sink.calls) != 3 {
		t.Fatalf("len(calls) = %d; want 3 (same-source repeats are real)", len(sink.calls))
	}
}

func TestHoverMovesThrottled(t *testing.T) {
	d, sink, clock := newTestDispatcher()

	for i := 0; i < 4; i++ {
		d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindMove, X: float64(i), Y: 0})
		*clock = clock.Add(4 * time.Millisecond)
	}

	// 4ms spacing under a 16ms throttle: only the first move passes.
	want := []recordedCall{{"move", 0, 0}}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Fatalf("calls = %v; want %v", sink.calls, want)
	}

	*clock = clock.Add(16 * time.Millisecond)
	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindMove, X: 99, Y: 0})
	if got := sink.calls[len(sink.calls)-1]; got != (recordedCall{"move", 99, 0}) {
		t.Fatalf("move after throttle window = %v; want {move 99 0}", got)
	}
}

func TestMovesUnthrottledWhilePointerDown(t *testing.T) {
	d, sink, clock := newTestDispatcher()

	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindDown, X: 0, Y: 0})
	for i := 1; i <= 4; i++ {
		*clock = clock.Add(2 * time.Millisecond)
		d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindMove, X: float64(i), Y: 0})
	}

	if len(sink.calls) != 5 {
		t.Fatalf("len(calls) = %d; want 5 (down + every drag move)", len(sink.calls))
	}

	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindUp, X: 4, Y: 0})
	*clock = clock.Add(2 * time.Millisecond)
	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindMove, X: 5, Y: 0})
	if got := sink.calls[len(sink.calls)-1]; got != (recordedCall{"up", 4, 0}) {
		t.Fatalf("hover move after release not throttled; last call = %v", got)
	}
}

func TestClickExpandsToDownUp(t *testing.T) {
	d, sink, _ := newTestDispatcher()

	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindClick, X: 7, Y: 8})

	want := []recordedCall{{"down", 7, 8}, {"up", 7, 8}}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Fatalf("calls = %v; want %v", sink.calls, want)
	}
}

func TestClickThenPairFromOtherSourceCollapsed(t *testing.T) {
	d, sink, clock := newTestDispatcher()

	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindClick, X: 10, Y: 20})
	*clock = clock.Add(5 * time.Millisecond)
	d.Dispatch(PointerEvent{Source: SourceDOM, Kind: KindDown, X: 10, Y: 20})
	d.Dispatch(PointerEvent{Source: SourceDOM, Kind: KindUp, X: 10, Y: 20})

	// One physical click, reported once as a click and once as a
	// down/up pair: the sink must see a single gesture.
	want := []recordedCall{{"down", 10, 20}, {"up", 10, 20}}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Fatalf("calls = %v; want %v", sink.calls, want)
	}
}

func TestPairThenClickFromOtherSourceCollapsed(t *testing.T) {
	d, sink, clock := newTestDispatcher()

	d.Dispatch(PointerEvent{Source: SourceDOM, Kind: KindDown, X: 10, Y: 20})
	d.Dispatch(PointerEvent{Source: SourceDOM, Kind: KindUp, X: 10, Y: 20})
	*clock = clock.Add(5 * time.Millisecond)
	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindClick, X: 10, Y: 20})

	want := []recordedCall{{"down", 10, 20}, {"up", 10, 20}}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Fatalf("calls = %v; want %v", sink.calls, want)
	}
}

func TestContextMenuForwarded(t *testing.T) {
	d, sink, clock := newTestDispatcher()

	d.Dispatch(PointerEvent{Source: SourceDOM, Kind: KindContextMenu, X: 3, Y: 4})
	*clock = clock.Add(5 * time.Millisecond)
	d.Dispatch(PointerEvent{Source: SourceLibrary, Kind: KindContextMenu, X: 3, Y: 4})

	want := []recordedCall{{"menu", 3, 4}}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Fatalf("calls = %v; want %v", sink.calls, want)
	}
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	id1, ch1 := b.Subscribe()
	id2, ch2 := b.Subscribe()
	defer b.Unsubscribe(id1)
	defer b.Unsubscribe(id2)

	if got := b.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %d; want 2", got)
	}

	evt := Event{Type: EventToolCommitted, ToolID: "abc"}
	b.Publish(evt)

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got != evt {
				t.Errorf("received %+v; want %+v", got, evt)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive the event")
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	id, ch := b.Subscribe()
	b.Unsubscribe(id)

	b.Publish(Event{Type: EventToolDeleted, ToolID: "x"})
	if _, open := <-ch; open {
		t.Fatalf("channel still open after Unsubscribe")
	}
}
