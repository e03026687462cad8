package meshing

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// WallShade darkens wall faces relative to the tile top they hang from.
const WallShade = 0.7

// Palette picks the color of a tile top from its elevation.
type Palette interface {
	Color(height float64) mgl32.Vec3
}

// PaletteFunc adapts a function to the Palette interface.
type PaletteFunc func(height float64) mgl32.Vec3

// Color calls f(height).
func (f PaletteFunc) Color(height float64) mgl32.Vec3 { return f(height) }

// HuePalette walks the color wheel at full saturation as height goes from 0 to HeightLimit.
type HuePalette struct {
	HeightLimit float64
}

// Color maps height/HeightLimit to a hue.
func (p HuePalette) Color(height float64) mgl32.Vec3 {
	h := 0.0
	if p.HeightLimit > 0 {
		h = height / p.HeightLimit
	}
	return hsvToRGB(h, 1, 1)
}

// hsvToRGB converts a hue/saturation/value triple with all channels in [0,1].
// Hue wraps, so 1.0 is red again.
func hsvToRGB(h, s, v float64) mgl32.Vec3 {
	if s == 0 {
		return mgl32.Vec3{float32(v), float32(v), float32(v)}
	}
	sector := math.Floor(h * 6)
	f := h*6 - sector
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch i := int(sector) % 6; (i + 6) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return mgl32.Vec3{float32(r), float32(g), float32(b)}
}
