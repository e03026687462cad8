package streaming

import (
	"fmt"
	"sync"
)

// Handle is an opaque render-side reference to an uploaded chunk buffer.
type Handle uint32

// Backend owns GPU-resident chunk buffers. All methods are called from the
// goroutine that owns the Controller, which must also own the render context.
type Backend interface {
	// Allocate uploads an interleaved x,y,z,r,g,b vertex buffer.
	// An error means the render context is unusable.
	Allocate(vertices []float32) (Handle, error)
	Draw(h Handle, vertexCount int)
	Free(h Handle)
}

// MemoryBackend keeps buffers in process memory. It backs headless tools
// that want the streaming behavior without a graphics context.
type MemoryBackend struct {
	mu      sync.Mutex
	next    Handle
	buffers map[Handle][]float32
	draws   int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{buffers: make(map[Handle][]float32)}
}

// Allocate stores the vertices under a fresh handle.
func (b *MemoryBackend) Allocate(vertices []float32) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.buffers[b.next] = vertices
	return b.next, nil
}

// Draw counts the call; nothing is rasterized.
func (b *MemoryBackend) Draw(h Handle, vertexCount int) {
	b.mu.Lock()
	b.draws++
	b.mu.Unlock()
}

// Free drops the buffer. Freeing an unknown handle panics, since it means
// the cache lost track of ownership.
func (b *MemoryBackend) Free(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.buffers[h]; !ok {
		panic(fmt.Sprintf("streaming: free of unknown handle %d", h))
	}
	delete(b.buffers, h)
}

// Buffer returns the vertices stored under h.
func (b *MemoryBackend) Buffer(h Handle) ([]float32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.buffers[h]
	return v, ok
}

// Live returns the number of allocated, unfreed buffers.
func (b *MemoryBackend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffers)
}

// Draws returns the total number of Draw calls.
func (b *MemoryBackend) Draws() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draws
}
