package world

import (
	"math"
)

// Deterministic 2D gradient noise with multiple octaves.
// Gradients are picked by integer hashing of lattice points, so any two
// callers sampling the same world position agree bit for bit.

// fade is the quintic smoothstep 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func hash2(x int64, z int64, seed int64) uint64 {
	// SplitMix64 finalizer over a per-axis weighted sum, stable across runs
	v := uint64(x)*0x9E3779B97F4A7C15 + uint64(z)*0x517CC1B727220A95 + uint64(seed)
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	v = v ^ (v >> 31)
	return v
}

// grad2 dots one of eight lattice gradients with the offset (dx, dz).
func grad2(h uint64, dx, dz float64) float64 {
	switch h & 7 {
	case 0:
		return dx + dz
	case 1:
		return -dx + dz
	case 2:
		return dx - dz
	case 3:
		return -dx - dz
	case 4:
		return dx
	case 5:
		return -dx
	case 6:
		return dz
	default:
		return -dz
	}
}

// wrap maps a lattice index into [0, period).
func wrap(i, period int64) int64 {
	if period <= 0 {
		return i
	}
	i %= period
	if i < 0 {
		i += period
	}
	return i
}

// gradientNoise2D returns Perlin-style noise in [-1,1]. When period > 0
// the lattice repeats every period units along both axes.
func gradientNoise2D(x float64, z float64, seed int64, period int64) float64 {
	x0 := math.Floor(x)
	z0 := math.Floor(z)
	fx := x - x0
	fz := z - z0

	ix0 := wrap(int64(x0), period)
	iz0 := wrap(int64(z0), period)
	ix1 := wrap(int64(x0)+1, period)
	iz1 := wrap(int64(z0)+1, period)

	u := fade(fx)
	v := fade(fz)

	n00 := grad2(hash2(ix0, iz0, seed), fx, fz)
	n10 := grad2(hash2(ix1, iz0, seed), fx-1, fz)
	n01 := grad2(hash2(ix0, iz1, seed), fx, fz-1)
	n11 := grad2(hash2(ix1, iz1, seed), fx-1, fz-1)

	return lerp(lerp(n00, n10, u), lerp(n01, n11, u), v)
}

// octaveNoise2D sums octaves of gradient noise normalized back to [-1,1].
// The repeat period scales with each octave's frequency so the sum tiles too.
func octaveNoise2D(x float64, z float64, seed int64, octaves int, persistence, lacunarity float64, repeat int) float64 {
	amplitude := 1.0
	frequency := 1.0
	sum := 0.0
	norm := 0.0
	for range octaves {
		period := int64(0)
		if repeat > 0 {
			period = int64(float64(repeat) * frequency)
		}
		v := gradientNoise2D(x*frequency, z*frequency, seed, period)
		sum += v * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}
