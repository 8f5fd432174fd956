package engine

import (
	"log/slog"
	"math"
	"time"

	"github.com/dgnsrekt/tv_annotate/internal/chartgeo"
	"github.com/dgnsrekt/tv_annotate/internal/dispatch"
	"github.com/dgnsrekt/tv_annotate/internal/hittest"
	"github.com/dgnsrekt/tv_annotate/internal/tool"
)

// dragSession tracks one press on an already-selected tool, from armed
// through active to commit or abort.
type dragSession struct {
	toolID   string
	handle   hittest.Handle
	start    tool.PixelPoint
	startPt  tool.Point
	original []tool.Point
	lastPtr  tool.PixelPoint
	accum    float64
	active   bool
}

func (e *Engine) armDragLocked(t *tool.Tool, handle hittest.Handle, ptr tool.PixelPoint) {
	startPt, err := chartgeo.ToDomain(ptr, e.viewport.Bounds, e.viewport.Samples)
	if err != nil {
		return
	}
	orig := make([]tool.Point, len(t.Points))
	copy(orig, t.Points)
	e.drag = &dragSession{
		toolID:   t.ID,
		handle:   handle,
		start:    ptr,
		startPt:  startPt,
		original: orig,
		lastPtr:  ptr,
	}
}

// maybeActivateDragLocked accumulates path displacement while armed and
// flips to an active drag once it crosses the threshold.
func (e *Engine) maybeActivateDragLocked(ptr tool.PixelPoint) {
	d := e.drag
	d.accum += math.Hypot(ptr.X-d.lastPtr.X, ptr.Y-d.lastPtr.Y)
	d.lastPtr = ptr
	if d.accum < e.cfg.DragThresholdPx {
		return
	}
	t := e.findLocked(d.toolID)
	if t == nil || t.Locked {
		e.drag = nil
		return
	}
	d.active = true
	e.state = StateDragging
	// Suppress autosave while the preview mutates points every frame.
	e.saver.Hold()
	e.updateDragLocked(ptr)
}

func (e *Engine) updateDragLocked(ptr tool.PixelPoint) {
	d := e.drag
	if d == nil || !d.active {
		return
	}
	t := e.findLocked(d.toolID)
	if t == nil {
		e.abortDragLocked()
		e.state = StateIdle
		return
	}
	cur, err := chartgeo.ToDomain(ptr, e.viewport.Bounds, e.viewport.Samples)
	if err != nil {
		return
	}

	switch d.handle {
	case hittest.HandleStart:
		t.Points[0] = e.snapPointLocked(cur)
	case hittest.HandleEnd:
		t.Points[len(t.Points)-1] = e.snapPointLocked(cur)
	default:
		// Whole-shape translate: apply the domain-space delta from the
		// press point to every original point.
		dts := cur.Timestamp - d.startPt.Timestamp
		dprice := cur.Price - d.startPt.Price
		for i, p := range d.original {
			moved := tool.Point{
				Timestamp: chartgeo.NearestSample(p.Timestamp+dts, e.viewport.Samples),
				Price:     p.Price + dprice,
			}
			t.Points[i] = moved
		}
	}
}

func (e *Engine) commitDragLocked() {
	d := e.drag
	e.drag = nil
	e.state = StateSelected
	if d == nil || !d.active {
		return
	}
	e.saver.Release()
	t := e.findLocked(d.toolID)
	if t == nil {
		return
	}
	t.UpdatedAt = time.Now().UTC()
	e.scheduleSaveLocked()
	e.publish(dispatch.Event{Type: dispatch.EventToolUpdated, ToolID: t.ID})
	slog.Debug("drag committed", "id", t.ID, "handle", string(d.handle))
}

// abortDragLocked reverts any active drag preview and releases the autosave
// hold. Safe to call with no drag in flight.
func (e *Engine) abortDragLocked() {
	d := e.drag
	e.drag = nil
	if d == nil {
		return
	}
	if !d.active {
		return
	}
	e.saver.Release()
	if t := e.findLocked(d.toolID); t != nil {
		copy(t.Points, d.original)
	}
}

// snapPriceLocked clamps price to the nearest configured snap level when
// within tolerance of the visible range.
func (e *Engine) snapPriceLocked(price float64) float64 {
	if e.cfg.SnapTolerancePercent <= 0 || len(e.snapLevels) == 0 {
		return price
	}
	span := e.viewport.Bounds.MaxPrice - e.viewport.Bounds.MinPrice
	if span <= 0 {
		return price
	}
	tol := span * e.cfg.SnapTolerancePercent / 100
	best, bestDist := price, math.Inf(1)
	for _, lvl := range e.snapLevels {
		if d := math.Abs(lvl - price); d < bestDist {
			best, bestDist = lvl, d
		}
	}
	if bestDist <= tol {
		return best
	}
	return price
}

func (e *Engine) snapPointLocked(p tool.Point) tool.Point {
	p.Price = e.snapPriceLocked(p.Price)
	return p
}
