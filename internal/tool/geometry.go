package tool

// PixelPoint is a screen-space coordinate produced by the coordinate mapper.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is a renderable line segment in pixel space. Ratio is set only for
// fibonacci level segments.
type Segment struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Ratio float64 `json:"ratio,omitempty"`
}

// Segments expands a tool's mapped pixel points into the segments a renderer
// would draw. width and height are the current viewport dimensions, used by
// the single-point line types that span the full chart. Text tools produce no
// segments; their anchor point is the only geometry.
func Segments(typ Type, px []PixelPoint, width, height float64) ([]Segment, error) {
	spec, ok := Lookup(typ)
	if !ok {
		return nil, NewError(CodeValidation, "unknown tool type: "+string(typ), nil)
	}
	if len(px) != spec.Arity {
		return nil, NewError(CodeInvalidGeometry, "point count does not match tool arity", nil)
	}

	switch typ {
	case TypeHorizontal:
		return []Segment{{X1: 0, Y1: px[0].Y, X2: width, Y2: px[0].Y}}, nil
	case TypeVertical:
		return []Segment{{X1: px[0].X, Y1: 0, X2: px[0].X, Y2: height}}, nil
	case TypeText:
		return nil, nil
	case TypeTrendline, TypeArrow:
		return []Segment{{X1: px[0].X, Y1: px[0].Y, X2: px[1].X, Y2: px[1].Y}}, nil
	case TypeRectangle:
		a, b := px[0], px[1]
		return []Segment{
			{X1: a.X, Y1: a.Y, X2: b.X, Y2: a.Y},
			{X1: b.X, Y1: a.Y, X2: b.X, Y2: b.Y},
			{X1: b.X, Y1: b.Y, X2: a.X, Y2: b.Y},
			{X1: a.X, Y1: b.Y, X2: a.X, Y2: a.Y},
		}, nil
	case TypeFibonacci:
		a, b := px[0], px[1]
		x1, x2 := a.X, b.X
		if x2 < x1 {
			x1, x2 = x2, x1
		}
		segs := make([]Segment, 0, len(FibRatios))
		for _, r := range FibRatios {
			// The price mapping is linear, so the level y interpolates
			// directly between the two anchor pixels.
			y := a.Y + (b.Y-a.Y)*r
			segs = append(segs, Segment{X1: x1, Y1: y, X2: x2, Y2: y, Ratio: r})
		}
		return segs, nil
	}
	return nil, NewError(CodeValidation, "unknown tool type: "+string(typ), nil)
}
