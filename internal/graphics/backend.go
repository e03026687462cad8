package graphics

import (
	"errors"
	"fmt"

	"meshmap/internal/meshing"
	"meshmap/internal/streaming"

	"github.com/go-gl/gl/v4.1-core/gl"
)

type chunkMesh struct {
	vao         uint32
	vbo         uint32
	vertexCount int32
}

// GLBackend stores chunk meshes as one VAO/VBO pair per handle.
// All methods must run on the thread that owns the GL context.
type GLBackend struct {
	meshes map[streaming.Handle]*chunkMesh
}

// NewGLBackend requires a current GL context.
func NewGLBackend() *GLBackend {
	return &GLBackend{meshes: make(map[streaming.Handle]*chunkMesh)}
}

// Allocate uploads interleaved position/color vertices.
func (b *GLBackend) Allocate(vertices []float32) (streaming.Handle, error) {
	if len(vertices)%meshing.FloatsPerVertex != 0 {
		return 0, fmt.Errorf("vertex data length %d is not a multiple of %d", len(vertices), meshing.FloatsPerVertex)
	}

	m := &chunkMesh{vertexCount: int32(len(vertices) / meshing.FloatsPerVertex)}
	gl.GenVertexArrays(1, &m.vao)
	gl.GenBuffers(1, &m.vbo)
	if m.vao == 0 || m.vbo == 0 {
		return 0, errors.New("failed to create vertex buffers")
	}

	gl.BindVertexArray(m.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)

	stride := int32(meshing.FloatsPerVertex * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)

	if len(vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	} else {
		gl.BufferData(gl.ARRAY_BUFFER, 0, nil, gl.STATIC_DRAW)
	}
	gl.BindVertexArray(0)

	if code := gl.GetError(); code == gl.OUT_OF_MEMORY {
		gl.DeleteBuffers(1, &m.vbo)
		gl.DeleteVertexArrays(1, &m.vao)
		return 0, errors.New("out of GPU memory")
	}

	h := streaming.Handle(m.vao)
	b.meshes[h] = m
	return h, nil
}

// Draw issues a triangle draw for the first vertexCount vertices of h.
func (b *GLBackend) Draw(h streaming.Handle, vertexCount int) {
	m, ok := b.meshes[h]
	if !ok || vertexCount == 0 {
		return
	}
	gl.BindVertexArray(m.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(vertexCount))
}

// Free deletes the buffers behind h.
func (b *GLBackend) Free(h streaming.Handle) {
	m, ok := b.meshes[h]
	if !ok {
		return
	}
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteVertexArrays(1, &m.vao)
	delete(b.meshes, h)
}

// Live returns the number of allocated meshes.
func (b *GLBackend) Live() int { return len(b.meshes) }
