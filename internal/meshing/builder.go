package meshing

import (
	"context"
	"fmt"

	"meshmap/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// Generator produces a chunk's mesh. Implementations must not touch render state.
type Generator interface {
	Build(ctx context.Context, coord world.ChunkCoord) (*Mesh, error)
}

// Grid holds the heights of a chunk's interior plus a one-tile halo.
// Index (0,0) is the halo corner; (1,1) is the chunk's first interior tile.
type Grid struct {
	Width   int
	heights []float64
}

// NewGrid allocates a zeroed grid for a chunk of the given width.
func NewGrid(width int) *Grid {
	side := width + 2
	return &Grid{Width: width, heights: make([]float64, side*side)}
}

// SampleGrid fills a grid for coord by sampling s at every interior and halo tile.
func SampleGrid(s world.Sampler, coord world.ChunkCoord, width int) *Grid {
	g := NewGrid(width)
	ox, oz := coord.Origin(width)
	for i := 0; i < width+2; i++ {
		for j := 0; j < width+2; j++ {
			g.Set(i, j, s.Height(float64(ox+i-1), float64(oz+j-1)))
		}
	}
	return g
}

// At returns the height at grid index (i, j); i runs along X, j along Z.
func (g *Grid) At(i, j int) float64 {
	return g.heights[i*(g.Width+2)+j]
}

// Set stores the height at grid index (i, j).
func (g *Grid) Set(i, j int, h float64) {
	g.heights[i*(g.Width+2)+j] = h
}

// edge describes one side of a tile: the neighbor offset and the two
// local corners of the tile's top edge that face it.
type edge struct {
	di, dj         int
	x0, z0, x1, z1 float32
}

// Edge order is north, south, east, west.
var tileEdges = [4]edge{
	{di: 0, dj: 1, x0: 0, z0: 1, x1: 1, z1: 1},
	{di: 0, dj: -1, x0: 0, z0: 0, x1: 1, z1: 0},
	{di: 1, dj: 0, x0: 1, z0: 0, x1: 1, z1: 1},
	{di: -1, dj: 0, x0: 0, z0: 0, x1: 0, z1: 1},
}

// BuildFromGrid emits top faces for every interior tile and a wall on each
// edge where the tile stands strictly higher than its neighbor. Only the
// higher side of an edge ever draws the wall, so shared edges are covered once.
func BuildFromGrid(coord world.ChunkCoord, g *Grid, palette Palette) *Mesh {
	w := g.Width
	ox, oz := coord.Origin(w)
	m := &Mesh{Coord: coord}

	for i := 1; i <= w; i++ {
		for j := 1; j <= w; j++ {
			h := g.At(i, j)
			y := float32(h)
			x := float32(ox + i - 1)
			z := float32(oz + j - 1)
			top := palette.Color(h)

			m.quad(
				mgl32.Vec3{x, y, z},
				mgl32.Vec3{x + 1, y, z},
				mgl32.Vec3{x + 1, y, z + 1},
				mgl32.Vec3{x, y, z + 1},
				top,
			)

			wall := top.Mul(WallShade)
			for _, e := range tileEdges {
				nh := g.At(i+e.di, j+e.dj)
				if !(h > nh) {
					continue
				}
				ny := float32(nh)
				m.quad(
					mgl32.Vec3{x + e.x0, y, z + e.z0},
					mgl32.Vec3{x + e.x0, ny, z + e.z0},
					mgl32.Vec3{x + e.x1, ny, z + e.z1},
					mgl32.Vec3{x + e.x1, y, z + e.z1},
					wall,
				)
			}
		}
	}
	return m
}

// Builder turns chunk coordinates into meshes by sampling a height field.
type Builder struct {
	sampler world.Sampler
	width   int
	palette Palette
}

// NewBuilder creates a chunk mesh builder. A nil palette is not allowed.
func NewBuilder(sampler world.Sampler, width int, palette Palette) (*Builder, error) {
	if sampler == nil {
		return nil, fmt.Errorf("meshing: nil sampler")
	}
	if palette == nil {
		return nil, fmt.Errorf("meshing: nil palette")
	}
	if width <= 0 {
		return nil, fmt.Errorf("meshing: chunk width must be > 0, got %d", width)
	}
	return &Builder{sampler: sampler, width: width, palette: palette}, nil
}

// Width returns the number of tiles along each chunk side.
func (b *Builder) Width() int { return b.width }

// Generate builds the mesh for one chunk. It is safe for concurrent use and
// touches no shared state.
func (b *Builder) Generate(coord world.ChunkCoord) *Mesh {
	return BuildFromGrid(coord, SampleGrid(b.sampler, coord, b.width), b.palette)
}

// Build implements Generator. It returns early if ctx is already done.
func (b *Builder) Build(ctx context.Context, coord world.ChunkCoord) (*Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Generate(coord), nil
}
