package streaming

import (
	"fmt"

	"meshmap/internal/meshing"
	"meshmap/internal/world"
)

// State is the lifecycle position of one chunk coordinate.
type State int

const (
	Absent State = iota
	Pending
	Ready
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ChunkRecord is a materialized chunk whose buffer lives in the backend.
type ChunkRecord struct {
	Coord       world.ChunkCoord
	Vertices    []float32
	VertexCount int
	Handle      Handle
}

// entry is either pendingEntry or readyEntry; a missing key means Absent.
type entry interface {
	state() State
}

type pendingEntry struct {
	task *meshing.Task
}

func (pendingEntry) state() State { return Pending }

type readyEntry struct {
	record *ChunkRecord
}

func (readyEntry) state() State { return Ready }

// PendingTask pairs a coordinate with its outstanding generation task.
type PendingTask struct {
	Coord world.ChunkCoord
	Task  *meshing.Task
}

// Cache maps each coordinate to exactly one of Absent, Pending or Ready.
// It is owned by a single goroutine and does no locking.
type Cache struct {
	entries map[world.ChunkCoord]entry
	// backlog keeps submission order for draining; it may hold stale pairs
	// that Backlog filters out.
	backlog []PendingTask
	pending int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[world.ChunkCoord]entry)}
}

// State reports the coordinate's current state.
func (c *Cache) State(coord world.ChunkCoord) State {
	if e, ok := c.entries[coord]; ok {
		return e.state()
	}
	return Absent
}

// MarkPending records task as the single in-flight generation for coord.
func (c *Cache) MarkPending(coord world.ChunkCoord, task *meshing.Task) error {
	if s := c.State(coord); s != Absent {
		return fmt.Errorf("streaming: chunk %v is %v, cannot mark pending", coord, s)
	}
	c.entries[coord] = pendingEntry{task: task}
	c.backlog = append(c.backlog, PendingTask{Coord: coord, Task: task})
	c.pending++
	return nil
}

// owns reports whether task is the live pending task for coord.
func (c *Cache) owns(coord world.ChunkCoord, task *meshing.Task) bool {
	p, ok := c.entries[coord].(pendingEntry)
	return ok && p.task == task
}

// Promote moves coord from Pending to Ready. task must be the one recorded
// by MarkPending; results of superseded tasks are rejected.
func (c *Cache) Promote(coord world.ChunkCoord, task *meshing.Task, rec *ChunkRecord) error {
	if !c.owns(coord, task) {
		return fmt.Errorf("streaming: chunk %v has no pending task to promote", coord)
	}
	c.entries[coord] = readyEntry{record: rec}
	c.pending--
	return nil
}

// Reset returns coord from Pending to Absent if task is still its live task.
func (c *Cache) Reset(coord world.ChunkCoord, task *meshing.Task) bool {
	if !c.owns(coord, task) {
		return false
	}
	delete(c.entries, coord)
	c.pending--
	return true
}

// Record returns the ready record for coord.
func (c *Cache) Record(coord world.ChunkCoord) (*ChunkRecord, bool) {
	r, ok := c.entries[coord].(readyEntry)
	if !ok {
		return nil, false
	}
	return r.record, true
}

// Backlog returns the live pending tasks in submission order.
func (c *Cache) Backlog() []PendingTask {
	live := c.backlog[:0]
	for _, p := range c.backlog {
		if c.owns(p.Coord, p.Task) {
			live = append(live, p)
		}
	}
	clear(c.backlog[len(live):])
	c.backlog = live
	return append([]PendingTask(nil), live...)
}

// EachReady calls fn for every ready record in unspecified order.
func (c *Cache) EachReady(fn func(*ChunkRecord)) {
	for _, e := range c.entries {
		if r, ok := e.(readyEntry); ok {
			fn(r.record)
		}
	}
}

// Len returns the number of tracked (non-absent) coordinates.
func (c *Cache) Len() int { return len(c.entries) }

// PendingCount returns the number of coordinates awaiting generation.
func (c *Cache) PendingCount() int { return c.pending }

// ReadyCount returns the number of materialized coordinates.
func (c *Cache) ReadyCount() int { return len(c.entries) - c.pending }

// Clear forgets every coordinate, handing each ready record to release and
// each pending task to abandon first.
func (c *Cache) Clear(release func(*ChunkRecord), abandon func(*meshing.Task)) {
	for _, e := range c.entries {
		switch e := e.(type) {
		case readyEntry:
			release(e.record)
		case pendingEntry:
			abandon(e.task)
		}
	}
	clear(c.entries)
	c.backlog = nil
	c.pending = 0
}
