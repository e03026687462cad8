package export

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"meshmap/internal/meshing"
	"meshmap/internal/streaming"
	"meshmap/internal/world"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zstd"
)

func preloadedController(t *testing.T) *streaming.Controller {
	t.Helper()
	c, err := streaming.New(streaming.NewMemoryBackend(), streaming.Options{
		ChunkWidth:      4,
		RenderDistance:  1,
		ChunksPerUpdate: 2,
		HeightField:     world.DefaultHeightFieldConfig(7),
		InitialTarget:   &streaming.Target{},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := preloadedController(t)
	snap := Capture(c)
	if len(snap.Chunks) != 25 || snap.Header.Chunks != 25 {
		t.Fatalf("captured %d chunks, want 25", len(snap.Chunks))
	}
	if snap.Header.ID == "" || snap.Header.Seed != 7 || snap.Header.ChunkWidth != 4 {
		t.Fatalf("bad header: %+v", snap.Header)
	}
	for i := 1; i < len(snap.Chunks); i++ {
		a, b := snap.Chunks[i-1], snap.Chunks[i]
		if a.CX > b.CX || (a.CX == b.CX && a.CZ >= b.CZ) {
			t.Fatalf("chunks not sorted at %d: %+v then %+v", i, a, b)
		}
	}

	path := filepath.Join(t.TempDir(), "out", "terrain.zst")
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatal(err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Header.ID != snap.Header.ID || got.Terrain != snap.Terrain {
		t.Errorf("header/terrain mismatch: %+v vs %+v", got.Header, snap.Header)
	}
	if len(got.Chunks) != len(snap.Chunks) {
		t.Fatalf("read %d chunks, want %d", len(got.Chunks), len(snap.Chunks))
	}
	rec, ok := c.Ready(world.ChunkCoord{X: got.Chunks[0].CX, Z: got.Chunks[0].CZ})
	if !ok || rec.VertexCount != got.Chunks[0].VertexCount || len(rec.Vertices) != len(got.Chunks[0].Vertices) {
		t.Errorf("chunk 0 does not match the live record")
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatal(err)
	}
	if h.ID != snap.Header.ID || h.Chunks != 25 {
		t.Errorf("ReadHeader: %+v", h)
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte(`{"version":99}` + "\n")); err != nil {
		t.Fatal(err)
	}
	enc.Close()
	f.Close()

	if _, err := ReadSnapshot(path); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestRenderPreviewOrientation(t *testing.T) {
	// height equals z, so the bottom row is the highest
	s := world.SamplerFunc(func(x, z float64) float64 { return z })
	palette := meshing.PaletteFunc(func(h float64) mgl32.Vec3 {
		return mgl32.Vec3{float32(h) / 8, 0, 0}
	})
	w := world.Window{Center: world.ChunkCoord{X: 0, Z: 0}, Radius: 0}

	img := RenderPreview(s, palette, w, 8, "")
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("bounds %v, want 8x8", b)
	}
	top := img.RGBAAt(0, 0)
	bottom := img.RGBAAt(0, 7)
	if bottom.R <= top.R {
		t.Errorf("-Z should be up: top %v bottom %v", top, bottom)
	}
	if top != (color.RGBA{A: 255}) {
		t.Errorf("z=0 tile should be black, got %v", top)
	}
}

func TestRenderPreviewCaption(t *testing.T) {
	s := world.NewFlatSampler(0)
	palette := meshing.PaletteFunc(func(float64) mgl32.Vec3 { return mgl32.Vec3{} })
	w := world.Window{Radius: 1}

	img := RenderPreview(s, palette, w, 16, "seed 42")
	white := 0
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			if img.RGBAAt(x, y).R > 0 {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("caption not drawn")
	}
}

func TestWritePreview(t *testing.T) {
	img := RenderPreview(world.NewFlatSampler(1), meshing.HuePalette{HeightLimit: 10}, world.Window{}, 4, "")
	path := filepath.Join(t.TempDir(), "map.png")
	if err := WritePreview(path, img); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Error("not a PNG file")
	}
}
