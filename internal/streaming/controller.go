package streaming

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"meshmap/internal/meshing"
	"meshmap/internal/profiling"
	"meshmap/internal/world"
)

var (
	// ErrInvalidConfig wraps every construction-time configuration problem.
	ErrInvalidConfig = errors.New("streaming: invalid configuration")
	// ErrClosed is returned by Update after Close.
	ErrClosed = errors.New("streaming: controller closed")
)

const defaultQueueSize = 4096

// Target is a world-space X/Z position the terrain window follows.
type Target struct {
	X, Z float64
}

// Options configures a Controller. It is read once by New.
type Options struct {
	ChunkWidth      int
	RenderDistance  int
	ChunksPerUpdate int
	// Workers and UploadsPerTick default to ChunksPerUpdate when zero.
	Workers        int
	UploadsPerTick int
	// QueueSize bounds tasks waiting for a worker; zero means 4096.
	QueueSize int

	HeightField world.HeightFieldConfig
	// Palette colors tile tops; nil uses a HuePalette over the height limit.
	Palette meshing.Palette
	// Generator replaces the height-field mesh builder when set.
	Generator meshing.Generator

	// InitialTarget triggers a blocking preload at twice RenderDistance.
	InitialTarget *Target
}

// Validate reports every invalid field, wrapped in ErrInvalidConfig.
func (o Options) Validate() error {
	var errs []error
	if o.ChunkWidth <= 0 {
		errs = append(errs, fmt.Errorf("chunk_width must be > 0, got %d", o.ChunkWidth))
	}
	if o.RenderDistance < 0 {
		errs = append(errs, fmt.Errorf("render_distance must be >= 0, got %d", o.RenderDistance))
	}
	if o.ChunksPerUpdate <= 0 {
		errs = append(errs, fmt.Errorf("chunks_per_update must be > 0, got %d", o.ChunksPerUpdate))
	}
	if o.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", o.Workers))
	}
	if o.UploadsPerTick < 0 {
		errs = append(errs, fmt.Errorf("uploads_per_tick must be >= 0, got %d", o.UploadsPerTick))
	}
	if o.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("queue_size must be >= 0, got %d", o.QueueSize))
	}
	if err := o.HeightField.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return o.ChunksPerUpdate
}

func (o Options) uploadsPerTick() int {
	if o.UploadsPerTick > 0 {
		return o.UploadsPerTick
	}
	return o.ChunksPerUpdate
}

func (o Options) queueSize() int {
	if o.QueueSize > 0 {
		return o.QueueSize
	}
	return defaultQueueSize
}

// Stats is a point-in-time view of the controller's bookkeeping.
type Stats struct {
	Pending   int
	Ready     int
	Submitted int
	Uploaded  int
	Failed    int
	Discarded int
	// Running and Queued describe the worker pool at the time of the call.
	Running int
	Queued  int
	// Deferred counts coordinates left absent because the job queue was full.
	Deferred int
}

// Controller keeps the chunks around a moving target generated and uploaded.
// Update, Render, Flush and Close must be called from the goroutine that owns
// the render context. Height is safe from any goroutine.
type Controller struct {
	opts    Options
	heights *world.HeightField
	backend Backend
	pool    *meshing.WorkerPool
	cache   *Cache
	stats   Stats
	closed  bool
	// queueFull is set while submit passes keep hitting a full job queue.
	queueFull bool
}

// New validates opts, starts the worker pool and, if an initial target is
// set, blocks until the preload square around it is fully materialized.
func New(backend Backend, opts Options) (*Controller, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrInvalidConfig)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	hf, err := world.NewHeightField(opts.HeightField)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	gen := opts.Generator
	if gen == nil {
		palette := opts.Palette
		if palette == nil {
			palette = meshing.HuePalette{HeightLimit: hf.HeightLimit()}
		}
		b, err := meshing.NewBuilder(hf, opts.ChunkWidth, palette)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		gen = b
	}

	c := &Controller{
		opts:    opts,
		heights: hf,
		backend: backend,
		pool:    meshing.NewWorkerPool(gen, opts.workers(), opts.queueSize()),
		cache:   NewCache(),
	}

	if opts.InitialTarget != nil {
		if err := c.preload(context.Background(), *opts.InitialTarget); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// Height returns the terrain elevation at world (x, z).
func (c *Controller) Height(x, z float64) float64 {
	return c.heights.Height(x, z)
}

// HeightField returns the noise parameters the terrain is built from.
func (c *Controller) HeightField() world.HeightFieldConfig { return c.heights.Config() }

// ChunkWidth returns the number of tiles per chunk side.
func (c *Controller) ChunkWidth() int { return c.opts.ChunkWidth }

// RenderDistance returns the Chebyshev radius kept resident around the target.
func (c *Controller) RenderDistance() int { return c.opts.RenderDistance }

func (c *Controller) window(t Target, radius int) world.Window {
	return world.WindowAround(t.X, t.Z, c.opts.ChunkWidth, radius)
}

// Update submits every missing chunk around target and uploads up to
// UploadsPerTick finished ones. Only a backend allocation failure is returned.
func (c *Controller) Update(target Target) error {
	if c.closed {
		return ErrClosed
	}
	defer profiling.Track("streaming.Update")()

	if err := c.submit(c.window(target, c.opts.RenderDistance)); err != nil {
		return err
	}
	return c.drain(c.opts.uploadsPerTick())
}

// submit queues every absent coordinate in w. A full queue ends the pass;
// the remaining coordinates stay absent and are retried next tick.
func (c *Controller) submit(w world.Window) error {
	coords := w.Coords()
	for i, coord := range coords {
		if c.cache.State(coord) != Absent {
			continue
		}
		task, err := c.pool.Submit(coord)
		if errors.Is(err, meshing.ErrQueueFull) {
			c.deferSubmissions(coords[i:])
			return nil
		}
		if err != nil {
			return err
		}
		if err := c.cache.MarkPending(coord, task); err != nil {
			task.Cancel()
			return err
		}
		c.stats.Submitted++
	}
	c.queueFull = false
	return nil
}

// deferSubmissions counts the absent coordinates a full queue turned away and
// logs the first pass of each run of full-queue ticks.
func (c *Controller) deferSubmissions(rest []world.ChunkCoord) {
	deferred := 0
	for _, coord := range rest {
		if c.cache.State(coord) == Absent {
			deferred++
		}
	}
	c.stats.Deferred += deferred
	if !c.queueFull {
		log.Printf("[Stream] job queue full (%d slots), %d chunks deferred to later ticks; consider a larger queue_size",
			c.opts.queueSize(), deferred)
		c.queueFull = true
	}
}

// drain materializes up to budget finished tasks in submission order.
func (c *Controller) drain(budget int) error {
	defer profiling.Track("streaming.drain")()
	processed := 0
	for _, p := range c.cache.Backlog() {
		if processed >= budget {
			break
		}
		if !p.Task.Finished() {
			continue
		}
		if err := c.complete(p); err != nil {
			return err
		}
		processed++
	}
	return nil
}

// complete turns a finished task into a ready record, or back into an
// absent coordinate when generation failed.
func (c *Controller) complete(p PendingTask) error {
	mesh, err := p.Task.Result()
	if err != nil {
		log.Printf("[Stream] chunk %v generation failed, will retry: %v", p.Coord, err)
		c.cache.Reset(p.Coord, p.Task)
		c.stats.Failed++
		return nil
	}

	handle, err := c.backend.Allocate(mesh.Vertices)
	if err != nil {
		c.cache.Reset(p.Coord, p.Task)
		return fmt.Errorf("allocate buffer for chunk %v: %w", p.Coord, err)
	}
	rec := &ChunkRecord{
		Coord:       p.Coord,
		Vertices:    mesh.Vertices,
		VertexCount: mesh.VertexCount,
		Handle:      handle,
	}
	if err := c.cache.Promote(p.Coord, p.Task, rec); err != nil {
		c.backend.Free(handle)
		return err
	}
	c.stats.Uploaded++
	return nil
}

// preload generates the square at twice the render distance and waits for
// all of it, with no per-tick upload budget.
func (c *Controller) preload(ctx context.Context, target Target) error {
	defer profiling.Track("streaming.Preload")()
	start := time.Now()

	for _, coord := range c.window(target, 2*c.opts.RenderDistance).Coords() {
		if c.cache.State(coord) != Absent {
			continue
		}
		task, err := c.pool.SubmitBlocking(ctx, coord)
		if err != nil {
			return fmt.Errorf("preload chunk %v: %w", coord, err)
		}
		if err := c.cache.MarkPending(coord, task); err != nil {
			task.Cancel()
			return err
		}
		c.stats.Submitted++
	}

	for _, p := range c.cache.Backlog() {
		if _, err := p.Task.Wait(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.complete(p); err != nil {
			return err
		}
	}

	log.Printf("[Stream] preloaded %d chunks around (%.1f, %.1f) in %v (%d failed)",
		c.cache.ReadyCount(), target.X, target.Z, time.Since(start).Round(time.Millisecond), c.stats.Failed)
	return nil
}

// Render draws every ready chunk inside the render distance of target and
// returns how many were drawn. Ready chunks outside the window are kept.
func (c *Controller) Render(target Target) int {
	defer profiling.Track("streaming.Render")()
	drawn := 0
	for _, coord := range c.window(target, c.opts.RenderDistance).Coords() {
		rec, ok := c.cache.Record(coord)
		if !ok {
			continue
		}
		c.backend.Draw(rec.Handle, rec.VertexCount)
		drawn++
	}
	return drawn
}

// Flush frees every ready chunk's buffer, cancels every pending task and
// forgets all coordinates. Results of cancelled tasks are never uploaded.
func (c *Controller) Flush() {
	discarded := 0
	c.cache.Clear(
		func(rec *ChunkRecord) { c.backend.Free(rec.Handle) },
		func(task *meshing.Task) {
			task.Cancel()
			discarded++
		},
	)
	c.stats.Discarded += discarded
}

// Close flushes the cache and stops the workers. It is safe to call twice.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.Flush()
	c.pool.Shutdown()
	c.closed = true
}

// State reports the lifecycle state of coord.
func (c *Controller) State(coord world.ChunkCoord) State {
	return c.cache.State(coord)
}

// Ready returns a copy of the ready record for coord.
func (c *Controller) Ready(coord world.ChunkCoord) (ChunkRecord, bool) {
	rec, ok := c.cache.Record(coord)
	if !ok {
		return ChunkRecord{}, false
	}
	return *rec, true
}

// EachReady calls fn for every ready chunk in unspecified order.
func (c *Controller) EachReady(fn func(ChunkRecord)) {
	c.cache.EachReady(func(rec *ChunkRecord) { fn(*rec) })
}

// Stats returns current counters.
func (c *Controller) Stats() Stats {
	s := c.stats
	s.Pending = c.cache.PendingCount()
	s.Ready = c.cache.ReadyCount()
	s.Running = c.pool.Running()
	s.Queued = c.pool.GetQueueLength()
	return s
}
