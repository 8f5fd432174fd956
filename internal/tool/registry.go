package tool

// Spec describes per-type construction rules: how many points a committed
// tool carries and the style applied when the user has not picked one.
type Spec struct {
	Type         Type   `json:"type"`
	Arity        int    `json:"arity"`
	DefaultStyle Style  `json:"default_style"`
	HasHandles   bool   `json:"has_handles"`
	Label        string `json:"label"`
}

var registry = map[Type]Spec{
	TypeTrendline: {
		Type:       TypeTrendline,
		Arity:      2,
		HasHandles: true,
		Label:      "Trend Line",
		DefaultStyle: Style{
			Color:     "#2962FF",
			Thickness: 2,
			Opacity:   1,
		},
	},
	TypeHorizontal: {
		Type:  TypeHorizontal,
		Arity: 1,
		Label: "Horizontal Line",
		DefaultStyle: Style{
			Color:     "#787B86",
			Thickness: 1,
			Opacity:   1,
		},
	},
	TypeVertical: {
		Type:  TypeVertical,
		Arity: 1,
		Label: "Vertical Line",
		DefaultStyle: Style{
			Color:     "#787B86",
			Thickness: 1,
			Opacity:   1,
		},
	},
	TypeRectangle: {
		Type:       TypeRectangle,
		Arity:      2,
		HasHandles: true,
		Label:      "Rectangle",
		DefaultStyle: Style{
			Color:       "#2962FF",
			Thickness:   1,
			Opacity:     1,
			FillColor:   "#2962FF",
			FillOpacity: 0.2,
		},
	},
	TypeArrow: {
		Type:       TypeArrow,
		Arity:      2,
		HasHandles: true,
		Label:      "Arrow",
		DefaultStyle: Style{
			Color:     "#F23645",
			Thickness: 2,
			Opacity:   1,
		},
	},
	TypeText: {
		Type:  TypeText,
		Arity: 1,
		Label: "Text",
		DefaultStyle: Style{
			Color:      "#131722",
			Thickness:  1,
			Opacity:    1,
			FontSize:   14,
			FontFamily: "Trebuchet MS",
		},
	},
	TypeFibonacci: {
		Type:       TypeFibonacci,
		Arity:      2,
		HasHandles: true,
		Label:      "Fib Retracement",
		DefaultStyle: Style{
			Color:     "#787B86",
			Thickness: 1,
			Opacity:   0.8,
		},
	},
}

// Lookup returns the spec for a tool type.
func Lookup(typ Type) (Spec, bool) {
	spec, ok := registry[typ]
	return spec, ok
}

// Arity returns the required point count for a type, or 0 if unknown.
func Arity(typ Type) int {
	if spec, ok := registry[typ]; ok {
		return spec.Arity
	}
	return 0
}

// AllSpecs returns every registered spec in a stable order.
func AllSpecs() []Spec {
	order := []Type{
		TypeTrendline, TypeHorizontal, TypeVertical,
		TypeRectangle, TypeArrow, TypeText, TypeFibonacci,
	}
	out := make([]Spec, 0, len(order))
	for _, t := range order {
		out = append(out, registry[t])
	}
	return out
}

// FibRatios are the seven fixed retracement levels rendered as horizontal
// sub-levels of a fibonacci tool.
var FibRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1}

// FibLevels expands the start/end prices of a fibonacci tool into the
// per-ratio level prices: start + (end-start)*ratio.
func FibLevels(startPrice, endPrice float64) []float64 {
	levels := make([]float64, len(FibRatios))
	for i, r := range FibRatios {
		levels[i] = startPrice + (endPrice-startPrice)*r
	}
	return levels
}
