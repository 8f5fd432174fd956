// Package chartgeo converts between price/time domain coordinates and pixel
// space for the current chart viewport. The x axis is categorical candle
// space: inverse mapping resolves to the nearest sample timestamp rather
// than interpolating continuous time.
package chartgeo

import (
	"sort"

	"github.com/dgnsrekt/tv_annotate/internal/tool"
)

// Bounds describes the visible chart viewport, supplied externally each
// frame.
type Bounds struct {
	StartTimestamp int64   `json:"start_timestamp"`
	EndTimestamp   int64   `json:"end_timestamp"`
	MinPrice       float64 `json:"min_price"`
	MaxPrice       float64 `json:"max_price"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
}

// Degenerate reports whether the bounds would divide by zero in either axis.
func (b Bounds) Degenerate() bool {
	return b.EndTimestamp == b.StartTimestamp || b.MaxPrice == b.MinPrice
}

func degenerateErr() error {
	return tool.NewError(tool.CodeDomainConversion, "degenerate chart bounds", nil)
}

// ToPixel maps a domain point into pixel space.
func ToPixel(p tool.Point, b Bounds) (tool.PixelPoint, error) {
	if b.Degenerate() {
		return tool.PixelPoint{}, degenerateErr()
	}
	x := float64(p.Timestamp-b.StartTimestamp) / float64(b.EndTimestamp-b.StartTimestamp) * b.Width
	y := (b.MaxPrice - p.Price) / (b.MaxPrice - b.MinPrice) * b.Height
	return tool.PixelPoint{X: x, Y: y}, nil
}

// ToDomain maps a pixel position back into domain coordinates. samples is
// the monotonic list of candle timestamps currently on the axis; the raw
// inverse timestamp snaps to the nearest entry. With no samples the raw
// inverse is returned unmodified.
func ToDomain(px tool.PixelPoint, b Bounds, samples []int64) (tool.Point, error) {
	if b.Degenerate() {
		return tool.Point{}, degenerateErr()
	}
	if b.Width == 0 || b.Height == 0 {
		return tool.Point{}, degenerateErr()
	}
	raw := b.StartTimestamp + int64(px.X/b.Width*float64(b.EndTimestamp-b.StartTimestamp))
	price := b.MaxPrice - px.Y/b.Height*(b.MaxPrice-b.MinPrice)
	return tool.Point{Timestamp: NearestSample(raw, samples), Price: price}, nil
}

// NearestSample resolves a raw timestamp to the closest entry in the sorted
// sample list. Returns raw when the list is empty.
func NearestSample(raw int64, samples []int64) int64 {
	if len(samples) == 0 {
		return raw
	}
	i := sort.Search(len(samples), func(i int) bool { return samples[i] >= raw })
	if i == 0 {
		return samples[0]
	}
	if i == len(samples) {
		return samples[len(samples)-1]
	}
	lo, hi := samples[i-1], samples[i]
	if raw-lo <= hi-raw {
		return lo
	}
	return hi
}

// MapPoints maps every domain point of a tool into pixel space under the
// given bounds. Any failure disables interaction for the frame, so the first
// error aborts the whole mapping.
func MapPoints(points []tool.Point, b Bounds) ([]tool.PixelPoint, error) {
	out := make([]tool.PixelPoint, 0, len(points))
	for _, p := range points {
		px, err := ToPixel(p, b)
		if err != nil {
			return nil, err
		}
		out = append(out, px)
	}
	return out, nil
}
