package meshing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"meshmap/internal/world"
)

var (
	// ErrPoolClosed is returned for submissions after Shutdown and for tasks
	// still queued when the pool shut down.
	ErrPoolClosed = errors.New("meshing: worker pool closed")
	// ErrQueueFull is returned by Submit when the job queue has no room.
	ErrQueueFull = errors.New("meshing: job queue full")
)

// Task is the handle to one in-flight chunk generation.
type Task struct {
	Coord world.ChunkCoord

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// written by the worker before done is closed
	mesh *Mesh
	err  error
}

func newTask(parent context.Context, coord world.ChunkCoord) *Task {
	ctx, cancel := context.WithCancel(parent)
	return &Task{
		Coord:  coord,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Done is closed once the task has a result.
func (t *Task) Done() <-chan struct{} { return t.done }

// Finished polls for completion without blocking.
func (t *Task) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Result blocks until the task finishes and returns its outcome.
func (t *Task) Result() (*Mesh, error) {
	<-t.done
	return t.mesh, t.err
}

// Wait is Result with a caller-side deadline.
func (t *Task) Wait(ctx context.Context) (*Mesh, error) {
	select {
	case <-t.done:
		return t.mesh, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel asks the task to stop. A task that already started may still finish.
func (t *Task) Cancel() { t.cancel() }

func (t *Task) finish(m *Mesh, err error) {
	t.mesh, t.err = m, err
	t.cancel()
	close(t.done)
}

// WorkerPool runs chunk generation on a fixed set of goroutines.
type WorkerPool struct {
	gen      Generator
	jobQueue chan *Task
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closed   atomic.Bool
	running  atomic.Int32
}

// NewWorkerPool starts workers goroutines pulling from a queue of queueSize tasks.
func NewWorkerPool(gen Generator, workers int, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	pool := &WorkerPool{
		gen:      gen,
		jobQueue: make(chan *Task, queueSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := range workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	return pool
}

// Submit queues coord for generation without blocking.
func (p *WorkerPool) Submit(coord world.ChunkCoord) (*Task, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	task := newTask(p.ctx, coord)
	select {
	case p.jobQueue <- task:
		return task, nil
	default:
		task.cancel()
		return nil, ErrQueueFull
	}
}

// SubmitBlocking queues coord, waiting for queue room until ctx is done.
func (p *WorkerPool) SubmitBlocking(ctx context.Context, coord world.ChunkCoord) (*Task, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	task := newTask(p.ctx, coord)
	select {
	case p.jobQueue <- task:
		return task, nil
	case <-ctx.Done():
		task.cancel()
		return nil, ctx.Err()
	case <-p.ctx.Done():
		task.cancel()
		return nil, ErrPoolClosed
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.jobQueue:
			p.run(task)
		case <-p.ctx.Done():
			return
		}
	}
}

// run executes one task, converting a panic in the generator into an error.
func (p *WorkerPool) run(task *Task) {
	if err := task.ctx.Err(); err != nil {
		task.finish(nil, err)
		return
	}

	p.running.Add(1)
	defer p.running.Add(-1)

	var (
		mesh *Mesh
		err  error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				mesh, err = nil, fmt.Errorf("generate chunk %v: panic: %v", task.Coord, r)
			}
		}()
		mesh, err = p.gen.Build(task.ctx, task.Coord)
		if err != nil {
			err = fmt.Errorf("generate chunk %v: %w", task.Coord, err)
		}
	}()
	task.finish(mesh, err)
}

// Shutdown stops the workers and fails every task still in the queue.
// It must not race with Submit or SubmitBlocking.
func (p *WorkerPool) Shutdown() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.wg.Wait()
	for {
		select {
		case task := <-p.jobQueue:
			task.finish(nil, ErrPoolClosed)
		default:
			return
		}
	}
}

// Workers returns the pool size.
func (p *WorkerPool) Workers() int { return p.workers }

// GetQueueLength returns the current number of jobs in the queue
func (p *WorkerPool) GetQueueLength() int {
	return len(p.jobQueue)
}

// Running returns how many tasks are being generated right now.
func (p *WorkerPool) Running() int {
	return int(p.running.Load())
}
