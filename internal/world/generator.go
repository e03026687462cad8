package world

import (
	"errors"
	"fmt"
	"math"
)

// Sampler reports terrain elevation at a world position.
// Implementations must be pure and safe for concurrent use.
type Sampler interface {
	Height(x, z float64) float64
}

// SamplerFunc adapts an ordinary function to the Sampler interface.
type SamplerFunc func(x, z float64) float64

// Height calls f(x, z).
func (f SamplerFunc) Height(x, z float64) float64 { return f(x, z) }

// FlatSampler returns the same elevation everywhere.
type FlatSampler struct {
	Level float64
}

// NewFlatSampler creates a sampler with constant height.
func NewFlatSampler(level float64) *FlatSampler {
	return &FlatSampler{Level: level}
}

// Height returns the configured level.
func (f *FlatSampler) Height(x, z float64) float64 { return f.Level }

// HeightFieldConfig parameterizes the procedural height field.
type HeightFieldConfig struct {
	Seed        int64
	Scale       float64
	Octaves     int
	Persistence float64
	Lacunarity  float64
	HeightLimit float64
	// Repeat is the lattice period of the first octave; 0 disables tiling.
	Repeat int
}

// DefaultHeightFieldConfig returns the stock noise shape for a seed.
func DefaultHeightFieldConfig(seed int64) HeightFieldConfig {
	return HeightFieldConfig{
		Seed:        seed,
		Scale:       0.005,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2.0,
		HeightLimit: 1000,
		Repeat:      1024,
	}
}

// Validate checks that the configuration produces a usable field.
func (c HeightFieldConfig) Validate() error {
	var errs []error
	if !(c.Scale > 0) {
		errs = append(errs, fmt.Errorf("scale must be > 0, got %v", c.Scale))
	}
	if !(c.HeightLimit > 0) {
		errs = append(errs, fmt.Errorf("height limit must be > 0, got %v", c.HeightLimit))
	}
	if c.Octaves <= 0 {
		errs = append(errs, fmt.Errorf("octaves must be > 0, got %d", c.Octaves))
	}
	if c.Repeat < 0 {
		errs = append(errs, fmt.Errorf("repeat must be >= 0, got %d", c.Repeat))
	}
	return errors.Join(errs...)
}

// HeightField maps world X/Z to an elevation in [0, HeightLimit].
// It holds no mutable state and may be shared freely between goroutines.
type HeightField struct {
	cfg HeightFieldConfig
}

// NewHeightField validates cfg and builds a height field.
func NewHeightField(cfg HeightFieldConfig) (*HeightField, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &HeightField{cfg: cfg}, nil
}

// Config returns the configuration the field was built with.
func (h *HeightField) Config() HeightFieldConfig { return h.cfg }

// HeightLimit returns the maximum elevation the field can produce.
func (h *HeightField) HeightLimit() float64 { return h.cfg.HeightLimit }

// Height computes the elevation at world (x, z).
func (h *HeightField) Height(x, z float64) float64 {
	n := octaveNoise2D(x*h.cfg.Scale, z*h.cfg.Scale, h.cfg.Seed,
		h.cfg.Octaves, h.cfg.Persistence, h.cfg.Lacunarity, h.cfg.Repeat)
	normalized := (n + 1) / 2
	if normalized < 0 {
		normalized = 0
	} else if normalized > 1 {
		normalized = 1
	}
	// fifth power keeps most terrain low with rare sharp peaks
	return math.Pow(normalized, 5) * h.cfg.HeightLimit
}
