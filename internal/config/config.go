package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"meshmap/internal/streaming"
	"meshmap/internal/world"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "MESHMAP_"

// Config holds all configuration for the terrain engine and its viewer.
type Config struct {
	Terrain TerrainConfig `yaml:"terrain"`
	Stream  StreamConfig  `yaml:"stream"`
	Window  WindowConfig  `yaml:"window"`
	// InitialTarget triggers a blocking preload when set.
	InitialTarget *Point `yaml:"initial_target"`
}

// TerrainConfig shapes the height field and chunk geometry.
type TerrainConfig struct {
	ChunkWidth  int     `yaml:"chunk_width"`
	Seed        int64   `yaml:"seed"`
	Scale       float64 `yaml:"scale"`
	HeightLimit float64 `yaml:"height_limit"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Lacunarity  float64 `yaml:"lacunarity"`
	Repeat      int     `yaml:"repeat"`
}

// StreamConfig controls how much terrain is kept resident and how fast it loads.
type StreamConfig struct {
	RenderDistance  int `yaml:"render_distance"`
	ChunksPerUpdate int `yaml:"chunks_per_update"`
	Workers         int `yaml:"workers"`
	UploadsPerTick  int `yaml:"uploads_per_tick"`
	QueueSize       int `yaml:"queue_size"`
}

// WindowConfig holds viewer settings.
type WindowConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Title     string  `yaml:"title"`
	FPSLimit  int     `yaml:"fps_limit"`
	MoveSpeed float64 `yaml:"move_speed"` // world units per millisecond
}

// Point is an X/Z world position.
type Point struct {
	X float64 `yaml:"x"`
	Z float64 `yaml:"z"`
}

// Default returns the stock configuration.
func Default() *Config {
	hf := world.DefaultHeightFieldConfig(42)
	return &Config{
		Terrain: TerrainConfig{
			ChunkWidth:  16,
			Seed:        hf.Seed,
			Scale:       hf.Scale,
			HeightLimit: hf.HeightLimit,
			Octaves:     hf.Octaves,
			Persistence: hf.Persistence,
			Lacunarity:  hf.Lacunarity,
			Repeat:      hf.Repeat,
		},
		Stream: StreamConfig{
			RenderDistance:  30,
			ChunksPerUpdate: 6,
		},
		Window: WindowConfig{
			Width:     1500,
			Height:    900,
			Title:     "MeshMap",
			FPSLimit:  60,
			MoveSpeed: 0.1,
		},
		InitialTarget: &Point{},
	}
}

// Load builds a Config from defaults, then the YAML file at path (if any),
// then a .env file and MESHMAP_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	// Try to load .env file (ignore error if it doesn't exist)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[Config] Warning: could not read .env: %v", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	t := &c.Terrain
	t.ChunkWidth = getIntEnv("CHUNK_WIDTH", t.ChunkWidth)
	t.Seed = int64(getIntEnv("SEED", int(t.Seed)))
	t.Scale = getFloatEnv("SCALE", t.Scale)
	t.HeightLimit = getFloatEnv("HEIGHT_LIMIT", t.HeightLimit)
	t.Octaves = getIntEnv("OCTAVES", t.Octaves)
	t.Persistence = getFloatEnv("PERSISTENCE", t.Persistence)
	t.Lacunarity = getFloatEnv("LACUNARITY", t.Lacunarity)
	t.Repeat = getIntEnv("REPEAT", t.Repeat)

	s := &c.Stream
	s.RenderDistance = getIntEnv("RENDER_DISTANCE", s.RenderDistance)
	s.ChunksPerUpdate = getIntEnv("CHUNKS_PER_UPDATE", s.ChunksPerUpdate)
	s.Workers = getIntEnv("WORKERS", s.Workers)
	s.UploadsPerTick = getIntEnv("UPLOADS_PER_TICK", s.UploadsPerTick)
	s.QueueSize = getIntEnv("QUEUE_SIZE", s.QueueSize)

	w := &c.Window
	w.Width = getIntEnv("WINDOW_WIDTH", w.Width)
	w.Height = getIntEnv("WINDOW_HEIGHT", w.Height)
	w.Title = getEnv("WINDOW_TITLE", w.Title)
	w.FPSLimit = getIntEnv("FPS_LIMIT", w.FPSLimit)
	w.MoveSpeed = getFloatEnv("MOVE_SPEED", w.MoveSpeed)

	if v := getEnv("NO_PRELOAD", ""); v == "1" || strings.EqualFold(v, "true") {
		c.InitialTarget = nil
	}
}

// Validate checks the engine options and the viewer settings.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Options().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Window.FPSLimit < 0 {
		errs = append(errs, fmt.Errorf("fps_limit must be >= 0, got %d", c.Window.FPSLimit))
	}
	return errors.Join(errs...)
}

// HeightField returns the noise parameters.
func (c *Config) HeightField() world.HeightFieldConfig {
	t := c.Terrain
	return world.HeightFieldConfig{
		Seed:        t.Seed,
		Scale:       t.Scale,
		Octaves:     t.Octaves,
		Persistence: t.Persistence,
		Lacunarity:  t.Lacunarity,
		HeightLimit: t.HeightLimit,
		Repeat:      t.Repeat,
	}
}

// Options converts the configuration into streaming controller options.
func (c *Config) Options() streaming.Options {
	opts := streaming.Options{
		ChunkWidth:      c.Terrain.ChunkWidth,
		RenderDistance:  c.Stream.RenderDistance,
		ChunksPerUpdate: c.Stream.ChunksPerUpdate,
		Workers:         c.Stream.Workers,
		UploadsPerTick:  c.Stream.UploadsPerTick,
		QueueSize:       c.Stream.QueueSize,
		HeightField:     c.HeightField(),
	}
	if c.InitialTarget != nil {
		opts.InitialTarget = &streaming.Target{X: c.InitialTarget.X, Z: c.InitialTarget.Z}
	}
	return opts
}

// Helper functions for environment variable access

func getEnv(key, defaultValue string) string {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[Config] Warning: invalid integer value for %s%s: %s, using default: %d", EnvPrefix, key, value, defaultValue)
		return defaultValue
	}
	return intValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("[Config] Warning: invalid float value for %s%s: %s, using default: %v", EnvPrefix, key, value, defaultValue)
		return defaultValue
	}
	return f
}
