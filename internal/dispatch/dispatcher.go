package dispatch

import (
	"log/slog"
	"sync"
	"time"
)

// Source names a physical delivery path for pointer traffic. The chart
// library's callback API and the injected DOM listeners both report the same
// gestures; the dispatcher collapses them so the sink sees each gesture once.
type Source string

const (
	SourceLibrary Source = "library"
	SourceDOM     Source = "dom"
)

// Kind is the pointer event kind on the wire.
type Kind string

const (
	KindDown        Kind = "down"
	KindMove        Kind = "move"
	KindUp          Kind = "up"
	KindClick       Kind = "click"
	KindContextMenu Kind = "contextmenu"
)

// PointerEvent is one raw pointer report from a source.
type PointerEvent struct {
	Source Source  `json:"source" required:"false"`
	Kind   Kind    `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Sink receives deduplicated, throttled pointer traffic. Implemented by the
// drawing engine.
type Sink interface {
	PointerDown(x, y float64)
	PointerMove(x, y float64)
	PointerUp(x, y float64)
	ContextMenu(x, y float64)
}

const (
	// moveThrottle caps hover-move delivery at roughly one event per display
	// frame. The throttle is disabled while the pointer is down: drag
	// previews want every move.
	moveThrottle = 16 * time.Millisecond
	// dedupWindow is how long a forwarded event shadows an identical one
	// arriving from the other source.
	dedupWindow = 50 * time.Millisecond
)

type forwarded struct {
	source Source
	x, y   float64
	at     time.Time
}

// Dispatcher merges pointer traffic from both sources into a single ordered
// stream for the sink.
type Dispatcher struct {
	mu   sync.Mutex
	sink Sink
	now  func() time.Time

	pointerDown bool
	lastMoveAt  time.Time
	last        map[Kind]forwarded
}

// NewDispatcher wires a dispatcher to sink.
func NewDispatcher(sink Sink) *Dispatcher {
	return &Dispatcher{
		sink: sink,
		now:  time.Now,
		last: make(map[Kind]forwarded),
	}
}

// Dispatch routes one raw event. Duplicate deliveries of the same gesture
// from the second source are dropped; hover moves are throttled.
func (d *Dispatcher) Dispatch(evt PointerEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()

	if d.isDuplicateLocked(evt, now) {
		slog.Debug("dropped duplicate pointer event",
			"kind", string(evt.Kind), "source", string(evt.Source))
		return
	}

	switch evt.Kind {
	case KindDown:
		d.pointerDown = true
		d.recordLocked(evt, now)
		d.sink.PointerDown(evt.X, evt.Y)
	case KindUp:
		d.pointerDown = false
		d.recordLocked(evt, now)
		d.sink.PointerUp(evt.X, evt.Y)
	case KindMove:
		if !d.pointerDown && now.Sub(d.lastMoveAt) < moveThrottle {
			return
		}
		d.lastMoveAt = now
		d.recordLocked(evt, now)
		d.sink.PointerMove(evt.X, evt.Y)
	case KindClick:
		// Some sources report a synthesized click instead of a down/up
		// pair; expand it so the sink sees one gesture model. The
		// expansion is recorded under down and up too, so the other
		// source's pair for the same physical click is collapsed.
		d.pointerDown = false
		d.recordLocked(evt, now)
		d.recordAsLocked(KindDown, evt, now)
		d.recordAsLocked(KindUp, evt, now)
		d.sink.PointerDown(evt.X, evt.Y)
		d.sink.PointerUp(evt.X, evt.Y)
	case KindContextMenu:
		d.pointerDown = false
		d.recordLocked(evt, now)
		d.sink.ContextMenu(evt.X, evt.Y)
	default:
		slog.Warn("unknown pointer event kind", "kind", string(evt.Kind))
	}
}

// isDuplicateLocked reports whether evt repeats a recently forwarded event
// from the other source. Repeats from the same source are real traffic
// (the engine handles coordinate-identical moves itself). A click also
// dedups against the other source's down/up, since both describe the
// same physical press.
func (d *Dispatcher) isDuplicateLocked(evt PointerEvent, now time.Time) bool {
	if d.matchesLocked(evt.Kind, evt, now) {
		return true
	}
	if evt.Kind == KindClick {
		return d.matchesLocked(KindDown, evt, now) || d.matchesLocked(KindUp, evt, now)
	}
	return false
}

func (d *Dispatcher) matchesLocked(kind Kind, evt PointerEvent, now time.Time) bool {
	prev, ok := d.last[kind]
	if !ok || prev.source == evt.Source {
		return false
	}
	return prev.x == evt.X && prev.y == evt.Y && now.Sub(prev.at) <= dedupWindow
}

func (d *Dispatcher) recordLocked(evt PointerEvent, now time.Time) {
	d.recordAsLocked(evt.Kind, evt, now)
}

func (d *Dispatcher) recordAsLocked(kind Kind, evt PointerEvent, now time.Time) {
	d.last[kind] = forwarded{source: evt.Source, x: evt.X, y: evt.Y, at: now}
}
