// Package crawl provides the crawl orchestration core: a depth-ordered
// URL frontier, a deduplication cache, per-domain rate limiting with
// backoff, outcome classification, and a checkpointed worker pool that
// ties them together.
package crawl

import (
	"container/heap"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/websum/websum"
)

// Bloom filter sizing for the frontier's fast seen-check.
const (
	// frontierExpectedURLs is the expected number of URLs for Bloom filter sizing.
	frontierExpectedURLs = 10000
	// frontierFalsePositiveRate is the acceptable false positive rate for the fast path.
	frontierFalsePositiveRate = 0.01
)

// Frontier is the pending-work queue of discovered URLs. Ordering is FIFO
// within each depth level (approximate breadth-first), so shallow pages are
// never starved by a large sibling set at a deeper level.
//
// Enqueue and its dedup checks are atomic under one lock: two workers
// discovering the same link concurrently result in exactly one enqueue.
// It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu       sync.Mutex
	maxDepth int
	budget   int // 0 = unlimited
	seen     *bloom.BloomFilter
	enqueued map[string]struct{}
	cache    *Cache
	queue    taskHeap
	seq      uint64
	accepted int
}

// NewFrontier creates a Frontier enforcing the configured depth limit and
// page budget. The cache is consulted on enqueue so URLs already in a
// terminal state are never re-queued; it may be nil.
func NewFrontier(cfg websum.Config, cache *Cache) *Frontier {
	expected := uint(frontierExpectedURLs)
	if cfg.MaxPages > 0 {
		expected = uint(cfg.MaxPages)
	}

	h := &taskHeap{}
	heap.Init(h)

	return &Frontier{
		maxDepth: cfg.MaxDepth,
		budget:   cfg.MaxPages,
		seen:     bloom.NewWithEstimates(expected, frontierFalsePositiveRate),
		enqueued: make(map[string]struct{}),
		cache:    cache,
		queue:    *h,
	}
}

// Enqueue adds a task to the frontier. It returns false, without queuing,
// when the task's depth exceeds the depth limit, when the URL has already
// been accepted or is terminal in the dedup cache, or when the page budget
// is exhausted.
func (f *Frontier) Enqueue(task websum.URLTask) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if task.Depth < 0 || task.Depth > f.maxDepth {
		return false
	}
	if f.budget > 0 && f.accepted >= f.budget {
		return false
	}

	// The Bloom filter answers "definitely new" cheaply; a positive is
	// confirmed against the exact set, so a false positive never drops a URL.
	if f.seen.TestString(task.URL) {
		if _, ok := f.enqueued[task.URL]; ok {
			return false
		}
	}
	if f.cache != nil && f.cache.Contains(task.URL) {
		return false
	}

	f.seen.AddString(task.URL)
	f.enqueued[task.URL] = struct{}{}
	f.accepted++
	f.push(task)
	return true
}

// Requeue puts a previously accepted task back on the queue, e.g. after a
// retryable failure. It bypasses dedup and budget checks: the task was
// already accounted for when first accepted.
func (f *Frontier) Requeue(task websum.URLTask) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.push(task)
}

// Dequeue returns the next task, shallowest depth first, FIFO within a
// depth. The bool result is false if the frontier is empty.
func (f *Frontier) Dequeue() (websum.URLTask, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queue.Len() == 0 {
		return websum.URLTask{}, false
	}
	entry, _ := heap.Pop(&f.queue).(queueEntry)
	return entry.task, true
}

// Len returns the number of queued tasks.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// Accepted returns the cumulative number of tasks accepted, queued or not.
func (f *Frontier) Accepted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accepted
}

// Snapshot returns the queued tasks for checkpointing. Ordering is not
// significant; Restore re-establishes depth ordering.
func (f *Frontier) Snapshot() []websum.QueuedTask {
	f.mu.Lock()
	defer f.mu.Unlock()

	tasks := make([]websum.QueuedTask, 0, f.queue.Len())
	for _, entry := range f.queue {
		tasks = append(tasks, websum.QueuedTask{
			URL:        entry.task.URL,
			Depth:      entry.task.Depth,
			RetryCount: entry.task.RetryCount,
		})
	}
	return tasks
}

// Restore rehydrates the frontier from a checkpoint. processed is the
// number of tasks the interrupted run already completed; together with the
// restored queue it re-establishes the budget accounting. Tasks already
// terminal in the dedup cache are dropped: a snapshot can list a task that
// completed between the frontier snapshot and the cache persist.
func (f *Frontier) Restore(tasks []websum.QueuedTask, processed int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, qt := range tasks {
		task, err := websum.NewTask(qt.URL, qt.Depth)
		if err != nil {
			continue
		}
		task.RetryCount = qt.RetryCount
		if _, ok := f.enqueued[task.URL]; ok {
			continue
		}
		if f.cache != nil && f.cache.Contains(task.URL) {
			continue
		}
		f.seen.AddString(task.URL)
		f.enqueued[task.URL] = struct{}{}
		f.push(task)
	}
	f.accepted = processed + f.queue.Len()
}

// push appends a task to the heap. Caller must hold f.mu.
func (f *Frontier) push(task websum.URLTask) {
	heap.Push(&f.queue, queueEntry{task: task, seq: f.seq})
	f.seq++
}

// queueEntry pairs a task with its arrival sequence number so ordering
// within a depth level stays FIFO.
type queueEntry struct {
	task websum.URLTask
	seq  uint64
}

// taskHeap implements heap.Interface ordered by (depth, arrival).
type taskHeap []queueEntry

func (h taskHeap) Len() int { return len(h) }

// Less orders shallow depths first; ties break by arrival order (min-heap).
func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Depth != h[j].task.Depth {
		return h[i].task.Depth < h[j].task.Depth
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	entry, _ := x.(queueEntry)
	*h = append(*h, entry)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
