package tool

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies a drawing tool kind.
type Type string

const (
	TypeTrendline  Type = "trendline"
	TypeHorizontal Type = "horizontal"
	TypeVertical   Type = "vertical"
	TypeRectangle  Type = "rectangle"
	TypeArrow      Type = "arrow"
	TypeText       Type = "text"
	TypeFibonacci  Type = "fibonacci"
)

// Point is a domain coordinate: a logical chart location independent of
// screen resolution or zoom.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// Style holds the renderable appearance of a tool.
type Style struct {
	Color       string    `json:"color"`
	Thickness   float64   `json:"thickness"`
	Opacity     float64   `json:"opacity"`
	DashPattern []float64 `json:"dash_pattern,omitempty"`
	FillColor   string    `json:"fill_color,omitempty"`
	FillOpacity float64   `json:"fill_opacity,omitempty"`
	FontSize    int       `json:"font_size,omitempty"`
	FontFamily  string    `json:"font_family,omitempty"`
}

// Tool is a single persisted chart annotation.
type Tool struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Points    []Point   `json:"points"`
	Style     Style     `json:"style"`
	Text      string    `json:"text,omitempty"`
	Visible   bool      `json:"visible"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewID returns a fresh tool identifier.
func NewID() string {
	return uuid.NewString()
}

// New builds a committed tool from a completed draft. The point count must
// match the type's arity; callers that skip Validate get the error here.
func New(typ Type, points []Point, text string) (*Tool, error) {
	spec, ok := Lookup(typ)
	if !ok {
		return nil, NewError(CodeValidation, "unknown tool type: "+string(typ), nil)
	}
	if len(points) != spec.Arity {
		return nil, NewError(CodeInvalidGeometry, "point count does not match tool arity", nil)
	}
	now := time.Now().UTC()
	return &Tool{
		ID:        NewID(),
		Type:      typ,
		Points:    append([]Point(nil), points...),
		Style:     spec.DefaultStyle,
		Text:      text,
		Visible:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks the at-rest invariant: points.length equals the arity.
func (t *Tool) Validate() error {
	spec, ok := Lookup(t.Type)
	if !ok {
		return NewError(CodeValidation, "unknown tool type: "+string(t.Type), nil)
	}
	if len(t.Points) != spec.Arity {
		return NewError(CodeInvalidGeometry, "point count does not match tool arity", nil)
	}
	return nil
}

// Clone returns a deep copy with a fresh id and bumped timestamps.
func (t *Tool) Clone() *Tool {
	now := time.Now().UTC()
	c := *t
	c.ID = NewID()
	c.Points = append([]Point(nil), t.Points...)
	c.Style.DashPattern = append([]float64(nil), t.Style.DashPattern...)
	c.CreatedAt = now
	c.UpdatedAt = now
	return &c
}

// Copy returns a deep copy preserving identity and timestamps. Used for
// drag snapshots and defensive returns from the engine.
func (t *Tool) Copy() *Tool {
	c := *t
	c.Points = append([]Point(nil), t.Points...)
	c.Style.DashPattern = append([]float64(nil), t.Style.DashPattern...)
	return &c
}
