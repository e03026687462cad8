// Command meshdump generates terrain headlessly and writes it out as a
// compressed mesh snapshot and an optional PNG preview.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"meshmap/internal/config"
	"meshmap/internal/export"
	"meshmap/internal/meshing"
	"meshmap/internal/streaming"
	"meshmap/internal/world"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a YAML config file")
		outPath     = flag.String("out", "terrain.zst", "snapshot output path")
		previewPath = flag.String("preview", "", "optional PNG preview output path")
		x           = flag.Float64("x", 0, "target world X")
		z           = flag.Float64("z", 0, "target world Z")
	)
	flag.Parse()

	if err := run(*configPath, *outPath, *previewPath, streaming.Target{X: *x, Z: *z}); err != nil {
		log.Printf("meshdump: %v", err)
		os.Exit(1)
	}
}

func run(configPath, outPath, previewPath string, target streaming.Target) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.InitialTarget = &config.Point{X: target.X, Z: target.Z}

	opts := cfg.Options()
	engine, err := streaming.New(streaming.NewMemoryBackend(), opts)
	if err != nil {
		return err
	}
	defer engine.Close()

	snap := export.Capture(engine)
	if err := export.WriteSnapshot(outPath, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	log.Printf("wrote %d chunks to %s (id %s)", len(snap.Chunks), outPath, snap.Header.ID)

	if previewPath == "" {
		return nil
	}
	hf, err := world.NewHeightField(engine.HeightField())
	if err != nil {
		return err
	}
	w := world.WindowAround(target.X, target.Z, opts.ChunkWidth, 2*opts.RenderDistance)
	caption := fmt.Sprintf("seed %d  (%.0f, %.0f)", hf.Config().Seed, target.X, target.Z)
	img := export.RenderPreview(hf, meshing.HuePalette{HeightLimit: hf.HeightLimit()}, w, opts.ChunkWidth, caption)
	if err := export.WritePreview(previewPath, img); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	log.Printf("wrote preview to %s", previewPath)
	return nil
}
