package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Per-frame CPU timings for the tick loop and the generation workers.

type entry struct {
	total time.Duration
	calls int
}

var (
	mu    sync.Mutex
	frame = make(map[string]entry)
)

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("streaming.Update")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		e := frame[name]
		e.total += d
		e.calls++
		frame[name] = e
		mu.Unlock()
	}
}

// ResetFrame clears current per-frame totals. Call at the start of each frame.
func ResetFrame() {
	mu.Lock()
	clear(frame)
	mu.Unlock()
}

// Snapshot returns a copy of current per-frame totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(frame))
	for k, v := range frame {
		out[k] = v.total
	}
	return out
}

// Calls returns how many times name was tracked this frame.
func Calls(name string) int {
	mu.Lock()
	defer mu.Unlock()
	return frame[name].calls
}

// TopNCurrentFrame formats the n most expensive names of the current frame.
// Example: "streaming.Update:4.2ms(1), streaming.drain:2.1ms(1)"
func TopNCurrentFrame(n int) string {
	if n <= 0 {
		return ""
	}
	mu.Lock()
	type pair struct {
		name string
		e    entry
	}
	list := make([]pair, 0, len(frame))
	for k, v := range frame {
		list = append(list, pair{name: k, e: v})
	}
	mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].e.total == list[j].e.total {
			return list[i].name < list[j].name
		}
		return list[i].e.total > list[j].e.total
	})
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for _, p := range list[:n] {
		ms := float64(p.e.total.Microseconds()) / 1000.0
		parts = append(parts, fmt.Sprintf("%s:%.1fms(%d)", p.name, ms, p.e.calls))
	}
	return strings.Join(parts, ", ")
}
