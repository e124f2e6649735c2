package htmlmap

import (
	"fmt"
	"math"
)

// NoDataColor fills regions without an aggregate.
const NoDataColor = "#CCCCCC"

type rgb struct{ r, g, b float64 }

// Red-yellow-green diverging stops, low to high.
var rdYlGn = []rgb{
	{0xd7, 0x30, 0x27},
	{0xfc, 0x8d, 0x59},
	{0xfe, 0xe0, 0x8b},
	{0xd9, 0xef, 0x8b},
	{0x91, 0xcf, 0x60},
	{0x1a, 0x98, 0x50},
}

// ColorScale maps values in [Min, Max] onto the red-yellow-green ramp.
type ColorScale struct {
	Min float64
	Max float64
}

// Color returns the hex color for v. Values outside the range are clamped;
// a degenerate range maps everything to the middle of the ramp.
func (s ColorScale) Color(v float64) string {
	t := 0.5
	if s.Max > s.Min {
		t = (v - s.Min) / (s.Max - s.Min)
	}
	if math.IsNaN(t) {
		t = 0.5
	}
	t = math.Max(0, math.Min(1, t))

	pos := t * float64(len(rdYlGn)-1)
	i := int(math.Floor(pos))
	if i >= len(rdYlGn)-1 {
		return hex(rdYlGn[len(rdYlGn)-1])
	}
	f := pos - float64(i)
	a, b := rdYlGn[i], rdYlGn[i+1]
	return hex(rgb{
		r: a.r + (b.r-a.r)*f,
		g: a.g + (b.g-a.g)*f,
		b: a.b + (b.b-a.b)*f,
	})
}

// Stops returns n evenly spaced legend entries from Min to Max.
func (s ColorScale) Stops(n int) []LegendStop {
	if n < 2 {
		n = 2
	}
	stops := make([]LegendStop, 0, n)
	for i := 0; i < n; i++ {
		v := s.Min + (s.Max-s.Min)*float64(i)/float64(n-1)
		stops = append(stops, LegendStop{Value: v, Color: s.Color(v)})
	}
	return stops
}

// LegendStop is one swatch in the map legend.
type LegendStop struct {
	Value float64
	Color string
}

func hex(c rgb) string {
	return fmt.Sprintf("#%02X%02X%02X", int(math.Round(c.r)), int(math.Round(c.g)), int(math.Round(c.b)))
}
