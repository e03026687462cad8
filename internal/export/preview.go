package export

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"meshmap/internal/meshing"
	"meshmap/internal/world"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderPreview draws one pixel per tile of every chunk in w, colored like
// the tile tops. -Z is up, as in the viewer. A non-empty caption is drawn top-left.
func RenderPreview(s world.Sampler, palette meshing.Palette, w world.Window, chunkWidth int, caption string) *image.RGBA {
	side := (2*w.Radius + 1) * chunkWidth
	ox, oz := world.ChunkCoord{X: w.Center.X - w.Radius, Z: w.Center.Z - w.Radius}.Origin(chunkWidth)

	img := image.NewRGBA(image.Rect(0, 0, side, side))
	for px := 0; px < side; px++ {
		for py := 0; py < side; py++ {
			x := ox + px
			z := oz + py
			img.SetRGBA(px, py, toRGBA(palette.Color(s.Height(float64(x), float64(z)))))
		}
	}

	if caption != "" {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.White),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(4, 13),
		}
		d.DrawString(caption)
	}
	return img
}

// WritePreview encodes img as PNG at path.
func WritePreview(path string, img image.Image) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}

func toRGBA(c mgl32.Vec3) color.RGBA {
	return color.RGBA{R: channel(c.X()), G: channel(c.Y()), B: channel(c.Z()), A: 255}
}

func channel(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
