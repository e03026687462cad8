package world

import "math"

// ChunkCoord identifies a square chunk of the height field by its chunk-space X/Z.
type ChunkCoord struct {
	X, Z int
}

// Origin returns the world-space tile coordinate of the chunk's first interior tile.
func (c ChunkCoord) Origin(width int) (int, int) {
	return c.X * width, c.Z * width
}

// Chebyshev returns the chessboard distance between two chunk coordinates.
func (c ChunkCoord) Chebyshev(o ChunkCoord) int {
	return max(abs(c.X-o.X), abs(c.Z-o.Z))
}

// ChunkAt returns the chunk containing world position (x, z).
func ChunkAt(x, z float64, width int) ChunkCoord {
	return ChunkCoord{
		X: floorDiv(int(math.Floor(x)), width),
		Z: floorDiv(int(math.Floor(z)), width),
	}
}

// Square returns every chunk within Chebyshev distance radius of center,
// ordered by X then Z. A negative radius yields an empty window.
func Square(center ChunkCoord, radius int) []ChunkCoord {
	if radius < 0 {
		return nil
	}
	side := 2*radius + 1
	out := make([]ChunkCoord, 0, side*side)
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			out = append(out, ChunkCoord{X: center.X + dx, Z: center.Z + dz})
		}
	}
	return out
}

// Window is a Chebyshev square of chunks that supports O(1) membership tests.
type Window struct {
	Center ChunkCoord
	Radius int
}

// WindowAround builds the window of radius chunks around the chunk holding (x, z).
func WindowAround(x, z float64, width, radius int) Window {
	return Window{Center: ChunkAt(x, z, width), Radius: radius}
}

// Contains reports whether c lies inside the window.
func (w Window) Contains(c ChunkCoord) bool {
	return w.Radius >= 0 && w.Center.Chebyshev(c) <= w.Radius
}

// Coords lists the window's chunks in the same order as Square.
func (w Window) Coords() []ChunkCoord {
	return Square(w.Center, w.Radius)
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
