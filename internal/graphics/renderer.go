package graphics

import (
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Renderer owns the terrain shader and the GL chunk backend.
type Renderer struct {
	Camera  *Camera
	shader  *Shader
	backend *GLBackend
}

// NewRenderer compiles the terrain program and enables depth testing.
func NewRenderer(camera *Camera) (*Renderer, error) {
	shader, err := NewTerrainShader()
	if err != nil {
		return nil, err
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.ClearColor(0.53, 0.81, 0.92, 1.0)

	return &Renderer{
		Camera:  camera,
		shader:  shader,
		backend: NewGLBackend(),
	}, nil
}

// Backend returns the buffer store to hand to the streaming controller.
func (r *Renderer) Backend() *GLBackend { return r.backend }

// SetViewport resizes the GL viewport and the camera aspect.
func (r *Renderer) SetViewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
	r.Camera.SetViewport(width, height)
}

// BeginFrame clears the screen and binds the terrain program with the
// camera matrices for a target at (x, z) standing on terrain at ground.
func (r *Renderer) BeginFrame(x, z, ground float64) {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	view := r.Camera.GetViewMatrix(x, z, ground)
	proj := r.Camera.GetProjectionMatrix()
	r.shader.Use()
	r.shader.SetMatrix4("proj", &proj[0])
	r.shader.SetMatrix4("view", &view[0])
}

// EndFrame unbinds the vertex array.
func (r *Renderer) EndFrame() {
	gl.BindVertexArray(0)
}

// Dispose releases the shader. Chunk buffers are freed by the controller.
func (r *Renderer) Dispose() {
	r.shader.Delete()
}
