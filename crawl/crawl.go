package crawl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/websum/websum"
)

// Crawler orchestrates a crawl: a fixed-size pool of workers pulls tasks
// from the frontier, waits on the rate limiter, invokes the fetch
// collaborator, classifies the outcome, and feeds the dedup cache and
// frontier. State is periodically checkpointed so an interrupted run can
// resume.
//
// Collaborators are exported fields; zero values mean "not wired" (no
// sink, no persistence) and the crawler degrades to in-memory operation.
type Crawler struct {
	Config      websum.Config
	Fetcher     websum.Fetcher
	Sink        websum.ResultSink
	CacheStore  websum.CacheStore
	Checkpoints websum.CheckpointStore

	// Filter scopes discovered links; a nil filter admits everything.
	// Seeds bypass the filter.
	Filter *websum.URLFilter

	// CacheRef identifies the cache backend inside checkpoints, e.g. the
	// cache file path.
	CacheRef string

	Logger *slog.Logger
}

// Result holds the outcome of a crawl run.
type Result struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int

	// Resumed is true when the run rehydrated state from a checkpoint.
	Resumed bool
}

// Run crawls from the given seed URLs until the frontier drains, the page
// budget is reached, the global error threshold trips, or ctx is canceled.
// A final checkpoint is written before returning, including on
// cancellation. The returned Result is valid even when err is non-nil.
func (c *Crawler) Run(ctx context.Context, seeds []string) (*Result, error) {
	cfg := c.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c.Fetcher == nil {
		return nil, websum.Errorf(websum.EINVALID, "a fetcher is required")
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &run{
		cfg:         cfg,
		fetcher:     c.Fetcher,
		sink:        c.Sink,
		filter:      c.Filter,
		logger:      logger,
		cache:       NewCache(c.CacheStore),
		limiter:     NewLimiter(cfg),
		classifier:  NewClassifier(cfg.RateLimitStatusCodes),
		checkpoints: NewCheckpointer(c.Checkpoints, logger),
		cacheRef:    c.CacheRef,
		fingerprint: cfg.Fingerprint(),
		runID:       uuid.New().String(),
		inflight:    make(map[string]websum.URLTask),
	}
	r.cond = sync.NewCond(&r.mu)

	resumed, err := r.restore(ctx)
	if err != nil {
		return nil, err
	}
	r.frontier = NewFrontier(cfg, r.cache)
	if resumed != nil {
		r.frontier.Restore(resumed.Frontier, resumed.ProcessedCount)
		r.limiter.Restore(resumed.Domains)
		r.processed = resumed.ProcessedCount
		r.runID = resumed.RunID
		logger.Info("resuming from checkpoint",
			"run_id", r.runID,
			"processed", r.processed,
			"pending", r.frontier.Len(),
		)
	}

	// Seeds already terminal in the restored cache are silently rejected
	// by the frontier; a seed that cannot be parsed is a startup error.
	for _, seed := range seeds {
		task, err := websum.NewTask(seed, 0)
		if err != nil {
			return nil, err
		}
		r.frontier.Enqueue(task)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Wake blocked workers when the run is canceled.
	go func() {
		<-runCtx.Done()
		r.cond.Broadcast()
	}()

	var ticker sync.WaitGroup
	if cfg.CheckpointInterval > 0 && c.Checkpoints != nil {
		ticker.Add(1)
		go func() {
			defer ticker.Done()
			r.checkpointLoop(runCtx, cfg.CheckpointInterval)
		}()
	}

	g := &errgroup.Group{}
	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			r.worker(runCtx)
			return nil
		})
	}
	_ = g.Wait()

	cancel()
	ticker.Wait()

	// Final snapshot, also after cancellation, so nothing in flight or
	// queued is lost across a restart. A canceled caller context would
	// make the stores refuse the write, so it is detached here.
	r.checkpoint(context.WithoutCancel(ctx))

	result := r.result()
	result.Resumed = resumed != nil
	logger.Info("crawl finished",
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)

	r.mu.Lock()
	abortErr := r.abortErr
	r.mu.Unlock()
	if abortErr != nil {
		return result, abortErr
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// run holds the mutable state of a single Run invocation. The frontier,
// cache, and limiter serialize their own mutations; run.mu guards the
// in-flight set and counters and backs the worker wakeup condition.
type run struct {
	cfg         websum.Config
	fetcher     websum.Fetcher
	sink        websum.ResultSink
	filter      *websum.URLFilter
	logger      *slog.Logger
	frontier    *Frontier
	cache       *Cache
	limiter     *Limiter
	classifier  *Classifier
	checkpoints *Checkpointer
	cacheRef    string
	fingerprint string
	runID       string

	mu          sync.Mutex
	cond        *sync.Cond
	inflight    map[string]websum.URLTask
	processed   int
	succeeded   int
	failed      int
	skipped     int
	consecutive int
	abortErr    error

	cpMu sync.Mutex
}

// restore applies the configured resume mode before the run starts.
func (r *run) restore(ctx context.Context) (*websum.Checkpoint, error) {
	switch r.cfg.Resume {
	case websum.ResumeClear:
		if err := r.checkpoints.Clear(ctx); err != nil {
			return nil, err
		}
		if err := r.cache.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil

	case websum.ResumeContinue:
		if err := r.cache.Load(ctx); err != nil {
			r.logger.Warn("cache unreadable, starting with empty cache", "error", err)
		}
		return r.checkpoints.Load(ctx, r.fingerprint), nil

	default:
		if err := r.cache.Load(ctx); err != nil {
			r.logger.Warn("cache unreadable, starting with empty cache", "error", err)
		}
		return nil, nil
	}
}

// worker is one member of the fetch pool. It loops until the run is
// terminal: frontier empty with nothing in flight, canceled, or aborted.
func (r *run) worker(ctx context.Context) {
	for {
		task, ok := r.next(ctx)
		if !ok {
			return
		}
		r.process(ctx, task)
	}
}

// next blocks cooperatively until a task is available or the run is
// terminal. The in-flight reservation happens under the same lock as the
// emptiness check, so "empty frontier" and "nothing in flight" are
// observed consistently.
func (r *run) next(ctx context.Context) (websum.URLTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.abortErr != nil || ctx.Err() != nil {
			return websum.URLTask{}, false
		}
		if task, ok := r.frontier.Dequeue(); ok {
			r.inflight[task.URL] = task
			return task, true
		}
		if len(r.inflight) == 0 {
			// Terminal: wake the other idle workers so they observe it too.
			r.cond.Broadcast()
			return websum.URLTask{}, false
		}
		r.cond.Wait()
	}
}

// process runs one task through the state machine
// Pending → InFlight → {Success, RetryableFailure, PermanentFailure}.
// Every path releases the in-flight reservation exactly once, either
// finishing the task or requeuing it atomically with the release.
func (r *run) process(ctx context.Context, task websum.URLTask) {
	// Queued tasks for a permanently skipped domain drain as skipped.
	if r.limiter.Skipped(task.Domain) {
		r.finish(ctx, task, websum.StatusSkipped)
		return
	}

	if err := r.limiter.Wait(ctx, task.Domain); err != nil {
		// Canceled mid-wait; keep the task for the final checkpoint.
		r.release(task, true)
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	result, err := r.fetcher.Fetch(fetchCtx, task.URL)
	cancel()

	// A fetch that failed because the whole run was canceled is not a
	// verdict on the URL; in-flight work that did finish is still processed.
	if err != nil && ctx.Err() != nil {
		r.release(task, true)
		return
	}

	outcome := r.classifier.Classify(result, err)
	r.limiter.Observe(task.Domain, outcome)

	switch outcome {
	case OutcomeSuccess:
		r.mu.Lock()
		r.consecutive = 0
		r.mu.Unlock()

		if r.sink != nil {
			if serr := r.sink.Process(ctx, task, result); serr != nil {
				r.logger.Warn("result sink failed", "url", task.URL, "error", serr)
			}
		}
		r.enqueueLinks(task, result.Links)
		r.finish(ctx, task, websum.StatusSuccess)
		r.logger.Info("fetched", "url", task.URL, "depth", task.Depth, "links", len(result.Links))

	case OutcomeRateLimited:
		r.recordFailure(task, outcome)
		// The domain's error counter bounds rate-limited tasks, not their
		// own retry budget.
		if r.limiter.Skipped(task.Domain) {
			r.finish(ctx, task, websum.StatusSkipped)
			r.logger.Warn("domain skipped after repeated rate limiting", "domain", task.Domain)
			return
		}
		r.release(task, true)

	case OutcomeRetry:
		r.recordFailure(task, outcome)
		if task.RetryCount < r.cfg.MaxRetries {
			task.RetryCount++
			r.release(task, true)
			return
		}
		r.finish(ctx, task, websum.StatusRetriesExhausted)
		r.logger.Warn("retries exhausted", "url", task.URL, "error", err)

	case OutcomePermanent:
		r.recordFailure(task, outcome)
		r.finish(ctx, task, websum.StatusFailedPermanent)
		r.logger.Warn("permanent failure", "url", task.URL, "status", statusCode(result), "error", err)
	}
}

// release drops the in-flight reservation and optionally requeues the
// task. Removal and requeue happen under one lock so no moment exists in
// which the task is in neither the in-flight set nor the frontier.
func (r *run) release(task websum.URLTask, requeue bool) {
	r.mu.Lock()
	delete(r.inflight, task.URL)
	if requeue {
		r.frontier.Requeue(task)
	}
	r.mu.Unlock()
	r.cond.Broadcast()
}

// enqueueLinks filters newly discovered links into the frontier at the
// parent's depth + 1.
func (r *run) enqueueLinks(parent websum.URLTask, links []string) {
	var added bool
	for _, link := range links {
		if !r.filter.Match(link) {
			continue
		}
		task, err := websum.NewTask(link, parent.Depth+1)
		if err != nil {
			continue
		}
		if r.frontier.Enqueue(task) {
			added = true
		}
	}
	if added {
		r.cond.Broadcast()
	}
}

// finish records a terminal state for the task, releases it, and triggers
// a checkpoint when the count interval elapses.
func (r *run) finish(ctx context.Context, task websum.URLTask, status websum.CacheStatus) {
	r.cache.Mark(task.URL, status)

	r.mu.Lock()
	delete(r.inflight, task.URL)
	r.processed++
	switch status {
	case websum.StatusSuccess:
		r.succeeded++
	case websum.StatusSkipped:
		r.skipped++
	default:
		r.failed++
	}
	n := r.processed
	r.mu.Unlock()
	r.cond.Broadcast()

	if r.cfg.CheckpointEvery > 0 && n%r.cfg.CheckpointEvery == 0 {
		r.checkpoint(ctx)
	}
}

// recordFailure bumps the global consecutive-error counter and trips the
// circuit breaker when it is exceeded: a broadly failing target aborts the
// run instead of grinding on indefinitely.
func (r *run) recordFailure(task websum.URLTask, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.consecutive++
	if r.abortErr == nil && r.consecutive > r.cfg.MaxConsecutiveErrors {
		r.abortErr = websum.Errorf(websum.EUNAVAILABLE,
			"aborting after %d consecutive failures (last: %s %s)",
			r.consecutive, outcome, task.URL)
		r.cond.Broadcast()
	}
}

// checkpointLoop drives time-based checkpoints until the run ends.
func (r *run) checkpointLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.checkpoint(ctx)
		}
	}
}

// checkpoint snapshots frontier + in-flight tasks + limiter + counters and
// persists cache and checkpoint. In-flight tasks are included so a crash
// between snapshot and completion cannot drop them; on resume the cache
// rejects any that completed after the snapshot.
func (r *run) checkpoint(ctx context.Context) {
	r.cpMu.Lock()
	defer r.cpMu.Unlock()

	// Frontier and in-flight set are read under run.mu, the same lock that
	// serializes task transitions between them, so a task is never counted
	// in both or lost from both.
	r.mu.Lock()
	snapshot := r.frontier.Snapshot()
	processed := r.processed
	for _, task := range r.inflight {
		snapshot = append(snapshot, websum.QueuedTask{
			URL:        task.URL,
			Depth:      task.Depth,
			RetryCount: task.RetryCount,
		})
	}
	r.mu.Unlock()

	if err := r.cache.Persist(ctx); err != nil {
		r.logger.Warn("cache write failed, continuing with in-memory state", "error", err)
	}

	r.checkpoints.Save(ctx, &websum.Checkpoint{
		RunID:          r.runID,
		Fingerprint:    r.fingerprint,
		ProcessedCount: processed,
		Frontier:       snapshot,
		Domains:        r.limiter.Snapshot(),
		CacheRef:       r.cacheRef,
		CreatedAt:      time.Now().UTC(),
	})
}

// result snapshots the run counters.
func (r *run) result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Result{
		Processed: r.processed,
		Succeeded: r.succeeded,
		Failed:    r.failed,
		Skipped:   r.skipped,
	}
}

func statusCode(result *websum.FetchResult) int {
	if result == nil {
		return 0
	}
	return result.StatusCode
}
