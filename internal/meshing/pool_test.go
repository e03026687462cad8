package meshing

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"meshmap/internal/world"
)

type genFunc func(ctx context.Context, coord world.ChunkCoord) (*Mesh, error)

func (f genFunc) Build(ctx context.Context, coord world.ChunkCoord) (*Mesh, error) {
	return f(ctx, coord)
}

func waitTask(t *testing.T, task *Task) (*Mesh, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m, err := task.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("task %v did not finish", task.Coord)
	}
	return m, err
}

func TestPoolGeneratesMeshes(t *testing.T) {
	b, _ := NewBuilder(world.NewFlatSampler(0), 4, grey)
	pool := NewWorkerPool(b, 2, 16)
	defer pool.Shutdown()

	var tasks []*Task
	for x := 0; x < 6; x++ {
		task, err := pool.Submit(world.ChunkCoord{X: x})
		if err != nil {
			t.Fatal(err)
		}
		tasks = append(tasks, task)
	}
	for _, task := range tasks {
		m, err := waitTask(t, task)
		if err != nil {
			t.Fatalf("task %v: %v", task.Coord, err)
		}
		if m.Coord != task.Coord || m.Triangles() != 32 {
			t.Errorf("task %v: mesh for %v with %d triangles", task.Coord, m.Coord, m.Triangles())
		}
		if !task.Finished() {
			t.Errorf("task %v not reported finished", task.Coord)
		}
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	pool := NewWorkerPool(genFunc(func(context.Context, world.ChunkCoord) (*Mesh, error) {
		panic("boom")
	}), 1, 4)
	defer pool.Shutdown()

	task, _ := pool.Submit(world.ChunkCoord{X: 1, Z: 2})
	_, err := waitTask(t, task)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected panic error, got %v", err)
	}

	// the worker survives the panic
	task, _ = pool.Submit(world.ChunkCoord{})
	if _, err := waitTask(t, task); err == nil {
		t.Fatal("expected second panic error")
	}
}

func TestPoolWrapsGeneratorErrors(t *testing.T) {
	sentinel := errors.New("no terrain")
	pool := NewWorkerPool(genFunc(func(context.Context, world.ChunkCoord) (*Mesh, error) {
		return nil, sentinel
	}), 1, 4)
	defer pool.Shutdown()

	task, _ := pool.Submit(world.ChunkCoord{})
	if _, err := waitTask(t, task); !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}

func TestPoolQueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	pool := NewWorkerPool(genFunc(func(ctx context.Context, c world.ChunkCoord) (*Mesh, error) {
		started <- struct{}{}
		<-release
		return &Mesh{Coord: c}, nil
	}), 1, 1)
	defer pool.Shutdown()
	defer close(release)

	if _, err := pool.Submit(world.ChunkCoord{X: 0}); err != nil {
		t.Fatal(err)
	}
	<-started // worker is busy; the queue is empty again
	if _, err := pool.Submit(world.ChunkCoord{X: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Submit(world.ChunkCoord{X: 2}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if n := pool.GetQueueLength(); n != 1 {
		t.Errorf("queue length %d, want 1", n)
	}
	if n := pool.Running(); n != 1 {
		t.Errorf("running %d, want 1", n)
	}
}

func TestCancelledTaskSkipsGeneration(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	pool := NewWorkerPool(genFunc(func(ctx context.Context, c world.ChunkCoord) (*Mesh, error) {
		calls.Add(1)
		<-release
		return &Mesh{Coord: c}, nil
	}), 1, 4)
	defer pool.Shutdown()

	first, _ := pool.Submit(world.ChunkCoord{X: 0})
	queued, _ := pool.Submit(world.ChunkCoord{X: 1})
	queued.Cancel()
	close(release)

	if _, err := waitTask(t, first); err != nil {
		t.Fatal(err)
	}
	if _, err := waitTask(t, queued); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("generator ran %d times, want 1", n)
	}
}

func TestShutdownFailsQueuedTasks(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	pool := NewWorkerPool(genFunc(func(ctx context.Context, c world.ChunkCoord) (*Mesh, error) {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, ctx.Err()
	}), 1, 4)

	running, _ := pool.Submit(world.ChunkCoord{X: 0})
	<-started
	queued, _ := pool.Submit(world.ChunkCoord{X: 1})
	pool.Shutdown()

	if _, err := waitTask(t, running); err == nil {
		t.Error("running task should observe cancellation")
	}
	if _, err := waitTask(t, queued); !errors.Is(err, ErrPoolClosed) && !errors.Is(err, context.Canceled) {
		t.Errorf("queued task: %v", err)
	}
	if _, err := pool.Submit(world.ChunkCoord{}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("submit after shutdown: %v", err)
	}
	pool.Shutdown() // idempotent
}

func TestSubmitBlockingHonorsContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	pool := NewWorkerPool(genFunc(func(ctx context.Context, c world.ChunkCoord) (*Mesh, error) {
		started <- struct{}{}
		<-release
		return &Mesh{Coord: c}, nil
	}), 1, 1)
	defer pool.Shutdown()
	defer close(release)

	pool.Submit(world.ChunkCoord{X: 0})
	<-started
	pool.Submit(world.ChunkCoord{X: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.SubmitBlocking(ctx, world.ChunkCoord{X: 2}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}
