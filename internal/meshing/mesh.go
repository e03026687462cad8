package meshing

import (
	"meshmap/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// FloatsPerVertex is the interleaved layout: x, y, z, r, g, b.
const FloatsPerVertex = 6

// Vertex is one corner of a triangle with its color.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

// Mesh is a chunk's triangle list in interleaved float form, ready for upload.
type Mesh struct {
	Coord       world.ChunkCoord
	Vertices    []float32
	VertexCount int
}

// Triangles returns the number of whole triangles in the mesh.
func (m *Mesh) Triangles() int {
	return m.VertexCount / 3
}

// Vertex decodes vertex i from the interleaved buffer.
func (m *Mesh) Vertex(i int) Vertex {
	o := i * FloatsPerVertex
	v := m.Vertices[o : o+FloatsPerVertex : o+FloatsPerVertex]
	return Vertex{
		Position: mgl32.Vec3{v[0], v[1], v[2]},
		Color:    mgl32.Vec3{v[3], v[4], v[5]},
	}
}

func (m *Mesh) push(p, c mgl32.Vec3) {
	m.Vertices = append(m.Vertices, p[0], p[1], p[2], c[0], c[1], c[2])
	m.VertexCount++
}

// quad appends the two triangles (a, b, c) and (a, c, d).
func (m *Mesh) quad(a, b, c, d, color mgl32.Vec3) {
	m.push(a, color)
	m.push(b, color)
	m.push(c, color)
	m.push(a, color)
	m.push(c, color)
	m.push(d, color)
}
