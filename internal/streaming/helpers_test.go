package streaming

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"meshmap/internal/meshing"
	"meshmap/internal/world"
)

// fakeGen hands out tiny meshes and records how it was called.
type fakeGen struct {
	mu       sync.Mutex
	calls    map[world.ChunkCoord]int
	inflight map[world.ChunkCoord]bool
	overlaps int

	// release gates every Build when non-nil
	release chan struct{}
	// fail decides whether the n-th call for coord fails
	fail func(coord world.ChunkCoord, n int) error
}

func newFakeGen() *fakeGen {
	return &fakeGen{
		calls:    make(map[world.ChunkCoord]int),
		inflight: make(map[world.ChunkCoord]bool),
	}
}

func (g *fakeGen) Build(ctx context.Context, coord world.ChunkCoord) (*meshing.Mesh, error) {
	g.mu.Lock()
	g.calls[coord]++
	n := g.calls[coord]
	if g.inflight[coord] {
		g.overlaps++
	}
	g.inflight[coord] = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inflight[coord] = false
		g.mu.Unlock()
	}()

	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.fail != nil {
		if err := g.fail(coord, n); err != nil {
			return nil, err
		}
	}
	return &meshing.Mesh{
		Coord:       coord,
		Vertices:    make([]float32, 6*meshing.FloatsPerVertex),
		VertexCount: 6,
	}, nil
}

func (g *fakeGen) callsFor(c world.ChunkCoord) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[c]
}

func (g *fakeGen) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, v := range g.calls {
		n += v
	}
	return n
}

var errNoContext = errors.New("render context lost")

// recordingBackend tracks every allocation, draw and free.
type recordingBackend struct {
	next      Handle
	allocs    int
	frees     map[Handle]int
	live      map[Handle]bool
	draws     []Handle
	failAlloc bool
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{frees: make(map[Handle]int), live: make(map[Handle]bool)}
}

func (b *recordingBackend) Allocate(vertices []float32) (Handle, error) {
	if b.failAlloc {
		return 0, errNoContext
	}
	b.next++
	b.allocs++
	b.live[b.next] = true
	return b.next, nil
}

func (b *recordingBackend) Draw(h Handle, vertexCount int) {
	b.draws = append(b.draws, h)
}

func (b *recordingBackend) Free(h Handle) {
	b.frees[h]++
	delete(b.live, h)
}

func testOptions() Options {
	return Options{
		ChunkWidth:      4,
		RenderDistance:  1,
		ChunksPerUpdate: 2,
		HeightField:     world.DefaultHeightFieldConfig(42),
	}
}

func newTestController(t *testing.T, b Backend, gen meshing.Generator, mutate func(*Options)) *Controller {
	t.Helper()
	opts := testOptions()
	if gen != nil {
		opts.Generator = gen
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(b, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// waitBacklog blocks until every pending task has a result.
func waitBacklog(t *testing.T, c *Controller) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for _, p := range c.cache.Backlog() {
		select {
		case <-p.Task.Done():
		case <-deadline:
			t.Fatalf("task for %v did not finish", p.Coord)
		}
	}
}
