package graphics

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera handles the view and projection matrices. It hovers above and
// behind its target, looking down at the terrain surface under it.
type Camera struct {
	AspectRatio float32
	FOV         float32
	NearPlane   float32
	FarPlane    float32

	// Height is added to the vertical eye position, Back pushes the eye
	// along +Z away from the target.
	Height float32
	Back   float32
}

// NewCamera frames a terrain whose peaks reach heightLimit.
func NewCamera(width, height int, heightLimit float32) *Camera {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return &Camera{
		AspectRatio: aspect,
		FOV:         45.0,
		NearPlane:   0.1,
		FarPlane:    100000.0,
		Height:      heightLimit + 10,
		Back:        heightLimit + 100,
	}
}

// SetViewport updates the aspect ratio after a resize.
func (c *Camera) SetViewport(width, height int) {
	if height == 0 {
		return
	}
	c.AspectRatio = float32(width) / float32(height)
}

// Eye returns the camera position for a target at (x, z).
func (c *Camera) Eye(x, z float64) mgl32.Vec3 {
	return mgl32.Vec3{float32(x), c.Height, float32(z) + c.Back}
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
}

// GetViewMatrix looks from Eye(x, z) at the point (x, ground, z).
func (c *Camera) GetViewMatrix(x, z, ground float64) mgl32.Mat4 {
	center := mgl32.Vec3{float32(x), float32(ground), float32(z)}
	return mgl32.LookAtV(c.Eye(x, z), center, mgl32.Vec3{0, 1, 0})
}
