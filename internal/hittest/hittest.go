// Package hittest resolves pointer positions against tool geometries in
// pixel space.
package hittest

import (
	"math"

	"github.com/dgnsrekt/tv_annotate/internal/chartgeo"
	"github.com/dgnsrekt/tv_annotate/internal/tool"
)

const (
	// BodyTolerance is the max pixel distance for a body hit.
	BodyTolerance = 10
	// HandleTolerance is the max pixel distance for an endpoint handle hit.
	HandleTolerance = 12
	// fibSpanExtension extends the fibonacci horizontal hit span to the
	// right by this fraction of the span width. Tunable, observed behavior
	// rather than a firm contract; do not generalize to other types.
	fibSpanExtension = 0.2
)

// Handle identifies which part of a tool a pointer grabbed.
type Handle string

const (
	HandleNone  Handle = ""
	HandleStart Handle = "start"
	HandleEnd   Handle = "end"
	HandleBody  Handle = "line"
)

// PointToSegmentDistance returns the Euclidean distance from (px,py) to the
// closest point on the segment (x1,y1)-(x2,y2).
func PointToSegmentDistance(px, py, x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((px-x1)*dx + (py-y1)*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}
	cx, cy := x1+t*dx, y1+t*dy
	return math.Hypot(px-cx, py-cy)
}

// HitTool reports whether the pointer hits the tool's body. Mapped pixel
// points must match the tool's arity; invisible tools never hit.
func HitTool(t *tool.Tool, px []tool.PixelPoint, pointer tool.PixelPoint) bool {
	if !t.Visible || len(px) != tool.Arity(t.Type) {
		return false
	}

	switch t.Type {
	case tool.TypeHorizontal:
		return math.Abs(pointer.Y-px[0].Y) <= BodyTolerance
	case tool.TypeVertical:
		return math.Abs(pointer.X-px[0].X) <= BodyTolerance
	case tool.TypeText:
		return math.Hypot(pointer.X-px[0].X, pointer.Y-px[0].Y) <= BodyTolerance
	case tool.TypeTrendline, tool.TypeArrow:
		return PointToSegmentDistance(pointer.X, pointer.Y, px[0].X, px[0].Y, px[1].X, px[1].Y) <= BodyTolerance
	case tool.TypeRectangle:
		a, b := px[0], px[1]
		edges := [][4]float64{
			{a.X, a.Y, b.X, a.Y},
			{b.X, a.Y, b.X, b.Y},
			{b.X, b.Y, a.X, b.Y},
			{a.X, b.Y, a.X, a.Y},
		}
		for _, e := range edges {
			if PointToSegmentDistance(pointer.X, pointer.Y, e[0], e[1], e[2], e[3]) <= BodyTolerance {
				return true
			}
		}
		return false
	case tool.TypeFibonacci:
		return hitFibonacci(t, px, pointer)
	}
	return false
}

func hitFibonacci(t *tool.Tool, px []tool.PixelPoint, pointer tool.PixelPoint) bool {
	minX := math.Min(px[0].X, px[1].X)
	maxX := math.Max(px[0].X, px[1].X)
	span := maxX - minX
	if pointer.X < minX || pointer.X > maxX+fibSpanExtension*span {
		return false
	}
	for _, r := range tool.FibRatios {
		y := px[0].Y + (px[1].Y-px[0].Y)*r
		if math.Abs(pointer.Y-y) <= BodyTolerance {
			return true
		}
	}
	return false
}

// HitHandle returns the endpoint handle under the pointer for two-point
// tools, preferring the nearer endpoint when both are in range. Single-point
// tools have no handles.
func HitHandle(t *tool.Tool, px []tool.PixelPoint, pointer tool.PixelPoint) Handle {
	if !t.Visible {
		return HandleNone
	}
	spec, ok := tool.Lookup(t.Type)
	if !ok || !spec.HasHandles || len(px) != 2 {
		return HandleNone
	}
	dStart := math.Hypot(pointer.X-px[0].X, pointer.Y-px[0].Y)
	dEnd := math.Hypot(pointer.X-px[1].X, pointer.Y-px[1].Y)
	switch {
	case dStart <= HandleTolerance && dStart <= dEnd:
		return HandleStart
	case dEnd <= HandleTolerance:
		return HandleEnd
	}
	return HandleNone
}

// Result describes which tool and part a pointer landed on.
type Result struct {
	ToolID string
	Handle Handle
}

// Resolve finds the first tool under the pointer in insertion order. Handle
// hits take priority over body hits on the same tool; there is no explicit
// z-order. Mapping failures for individual tools skip that tool rather than
// failing the frame.
func Resolve(tools []*tool.Tool, bounds chartgeo.Bounds, pointer tool.PixelPoint) (Result, bool) {
	for _, t := range tools {
		px, err := chartgeo.MapPoints(t.Points, bounds)
		if err != nil {
			continue
		}
		if h := HitHandle(t, px, pointer); h != HandleNone {
			return Result{ToolID: t.ID, Handle: h}, true
		}
		if HitTool(t, px, pointer) {
			return Result{ToolID: t.ID, Handle: HandleBody}, true
		}
	}
	return Result{}, false
}
