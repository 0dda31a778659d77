package mproc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultPollInterval   = 5 * time.Millisecond
	defaultSuspendTimeout = 2 * time.Second
	defaultJoinTimeout    = 10 * time.Second
)

// TimeoutError reports that the controller gave up waiting for its workers
// to confirm shutdown. A worker that died on a failed task never posts its
// done signal and surfaces here.
type TimeoutError struct {
	Waited  time.Duration
	Done    int
	Workers int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"timed out after %s waiting for workers to finish (%d of %d done signals received)",
		e.Waited, e.Done, e.Workers,
	)
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier installs the callback sink for progress, result and finished
// notifications.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithPollInterval overrides the supervisory loop's sleep between polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.pollInterval = d }
}

// WithSuspendTimeout overrides the bounded wait in Suspend.
func WithSuspendTimeout(d time.Duration) Option {
	return func(c *Controller) { c.suspendTimeout = d }
}

// WithJoinTimeout overrides the bounded post-run wait for worker done
// signals.
func WithJoinTimeout(d time.Duration) Option {
	return func(c *Controller) { c.joinTimeout = d }
}

// Controller owns a pool of worker goroutines and a supervisory loop that
// feeds them pending tasks, drains their results and reports progress. The
// loop cycles through pre-run (spawn workers), running (submit and drain)
// and post-run (join workers) phases and can run several task batches over
// the pool's lifetime.
type Controller struct {
	logger   *slog.Logger
	nWorkers int
	notifier Notifier

	pollInterval   time.Duration
	suspendTimeout time.Duration
	joinTimeout    time.Duration

	taskLock sync.RWMutex
	pending  []any

	fnMu      sync.Mutex
	fn        TaskFunc
	fixedArgs []any

	running      atomic.Bool
	threadAlive  atomic.Bool
	active       atomic.Bool
	stopAfterRun atomic.Bool

	submitQueue   *Queue[any]
	resultQueue   *Queue[TaskResult]
	stopQueue     *Queue[int]
	finishedQueue *Queue[int]

	progressMu     sync.Mutex
	progressDone   int
	progressTarget int

	workersDone int
	workerWG    *sync.WaitGroup

	started  atomic.Bool
	loopDone chan struct{}
	loopErr  error
}

// NewController creates a controller for nWorkers workers. The workers are
// not spawned until Start is called and tasks are available.
func NewController(logger *slog.Logger, nWorkers int, opts ...Option) (*Controller, error) {
	if nWorkers < 1 {
		return nil, fmt.Errorf("invalid worker count %d, need at least 1", nWorkers)
	}

	c := &Controller{
		logger:         logger.With("module", "mproc.controller"),
		nWorkers:       nWorkers,
		notifier:       NopNotifier{},
		pollInterval:   defaultPollInterval,
		suspendTimeout: defaultSuspendTimeout,
		joinTimeout:    defaultJoinTimeout,
		submitQueue:    NewQueue[any](),
		resultQueue:    NewQueue[TaskResult](),
		stopQueue:      NewQueue[int](),
		finishedQueue:  NewQueue[int](),
		loopDone:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// NWorkers returns the configured pool size.
func (c *Controller) NWorkers() int { return c.nWorkers }

// IsRunning reports whether the supervisory loop is in its running phase.
func (c *Controller) IsRunning() bool { return c.running.Load() }

// IsActive reports whether worker goroutines are currently alive.
func (c *Controller) IsActive() bool { return c.active.Load() }

// Progress returns the completed and target task counts.
func (c *Controller) Progress() (done, target int) {
	c.progressMu.Lock()
	defer c.progressMu.Unlock()

	return c.progressDone, c.progressTarget
}

// ChangeFunction replaces the target callable and its fixed arguments. Any
// ongoing processing is suspended first and the pending task list is
// discarded; processing resumes with the new callable.
func (c *Controller) ChangeFunction(fn TaskFunc, fixedArgs ...any) {
	c.Suspend()
	c.resetTaskList()

	c.fnMu.Lock()
	c.fn = fn
	c.fixedArgs = fixedArgs
	c.fnMu.Unlock()

	c.Restart()
}

// AddTask appends one task and raises the progress target by one.
func (c *Controller) AddTask(task any) {
	c.taskLock.Lock()
	c.pending = append(c.pending, task)
	c.taskLock.Unlock()

	c.progressMu.Lock()
	c.progressTarget++
	c.progressMu.Unlock()
}

// AddTasks appends a batch of tasks and sets the progress target to the
// batch length.
func (c *Controller) AddTasks(tasks []any) {
	c.taskLock.Lock()
	c.pending = append(c.pending, tasks...)
	c.taskLock.Unlock()

	c.progressMu.Lock()
	c.progressTarget = len(tasks)
	c.progressMu.Unlock()
}

// FinalizeTasks appends one shutdown sentinel per worker and marks the
// controller to stop after the current batch completes.
func (c *Controller) FinalizeTasks() {
	c.taskLock.Lock()
	for range c.nWorkers {
		c.pending = append(c.pending, nil)
	}
	c.taskLock.Unlock()

	c.stopAfterRun.Store(true)
}

// Suspend pauses task processing without discarding pending tasks. It waits
// a bounded time for the workers to wind down; a timeout is logged, not an
// error.
func (c *Controller) Suspend() {
	c.running.Store(false)
	c.waitForWorkersToShutDown()
}

// Restart resumes processing of the pending task list.
func (c *Controller) Restart() {
	c.running.Store(true)
}

// SendStopSignal pushes one stop token per worker. Workers drop any
// remaining submitted tasks when they pick the token up.
func (c *Controller) SendStopSignal() {
	for range c.nWorkers {
		c.stopQueue.Put(1)
	}
}

// Stop aborts processing: it suspends the loop, queues shutdown sentinels
// and stop tokens for the workers and terminates the supervisory loop.
func (c *Controller) Stop() {
	c.Suspend()

	c.taskLock.Lock()
	for range c.nWorkers {
		c.pending = append(c.pending, nil)
	}
	c.taskLock.Unlock()

	c.SendStopSignal()
	c.threadAlive.Store(false)
}

// Start launches the supervisory loop in its own goroutine. The loop runs
// until Stop is called, a finalized batch completes or ctx is cancelled.
func (c *Controller) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}

	c.threadAlive.Store(true)

	go c.run(ctx)
}

// Wait blocks until the supervisory loop has exited and returns its error,
// if any. A *TimeoutError indicates that not all workers confirmed
// shutdown.
func (c *Controller) Wait() error {
	<-c.loopDone

	return c.loopErr
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.loopDone)

	c.workersDone = 0
	c.running.Store(true)

	for c.threadAlive.Load() {
		if ctx.Err() != nil {
			c.running.Store(false)
			c.threadAlive.Store(false)
		}

		if c.running.Load() && !c.active.Load() {
			c.cyclePreRun()
		}

		for c.running.Load() && ctx.Err() == nil {
			for c.submitNextTask() {
			}

			time.Sleep(c.pollInterval)
			c.drainResults()
			c.countWorkerDoneSignals()
		}

		if c.active.Load() {
			if err := c.cyclePostRun(); err != nil {
				c.loopErr = err
				c.threadAlive.Store(false)

				c.logger.Error("Supervisory loop terminating", "error", err)

				return
			}
		}

		time.Sleep(c.pollInterval)
	}

	c.notifier.Finished()
}

// cyclePreRun spawns the worker pool and resets the progress counter for
// the new batch.
func (c *Controller) cyclePreRun() {
	c.fnMu.Lock()
	fn := c.fn
	fixedArgs := c.fixedArgs
	c.fnMu.Unlock()

	if fn == nil {
		c.logger.Warn("No target function configured, suspending")
		c.running.Store(false)

		return
	}

	c.progressMu.Lock()
	c.progressDone = 0
	c.progressMu.Unlock()

	c.workersDone = 0
	c.workerWG = &sync.WaitGroup{}

	for i := range c.nWorkers {
		c.workerWG.Add(1)

		workerLogger := c.logger.With("worker", i)

		go func() {
			defer c.workerWG.Done()
			Processor(
				workerLogger, c.submitQueue, c.resultQueue, c.stopQueue, c.finishedQueue,
				fn, fixedArgs...,
			)
		}()
	}

	c.active.Store(true)
	c.logger.Debug("Worker pool spawned", "n_workers", c.nWorkers)
}

// submitNextTask moves one pending task to the submit queue. It returns
// false when the pending list is empty.
func (c *Controller) submitNextTask() bool {
	c.taskLock.Lock()

	if len(c.pending) == 0 {
		c.taskLock.Unlock()

		return false
	}

	task := c.pending[0]
	c.pending = c.pending[1:]
	c.taskLock.Unlock()

	c.submitQueue.Put(task)

	return true
}

// drainResults empties the result queue, forwarding each item and the
// updated progress fraction to the notifier.
func (c *Controller) drainResults() {
	for {
		item, err := c.resultQueue.GetNowait()
		if err != nil {
			return
		}

		c.progressMu.Lock()
		c.progressDone++
		done, target := c.progressDone, c.progressTarget
		c.progressMu.Unlock()

		c.notifier.Result(item.Task, item.Value)

		if target > 0 {
			c.notifier.Progress(float64(done) / float64(target))
		}
	}
}

// countWorkerDoneSignals drains the finished queue and leaves the running
// phase once every worker has confirmed shutdown.
func (c *Controller) countWorkerDoneSignals() {
	for {
		if _, err := c.finishedQueue.GetNowait(); err != nil {
			break
		}

		c.workersDone++
	}

	if c.workersDone >= c.nWorkers {
		c.running.Store(false)
	}
}

// cyclePostRun winds the worker pool down after a batch: it drains any
// stragglers, joins the workers and waits a bounded time for the missing
// done signals.
func (c *Controller) cyclePostRun() error {
	c.joinWorkers()

	if c.stopAfterRun.Load() {
		c.threadAlive.Store(false)
	}

	return c.waitForWorkerDoneSignals(c.joinTimeout)
}

// joinWorkers queues one sentinel per worker so that idle workers unblock
// and terminate, then waits a bounded time for the goroutines to return.
func (c *Controller) joinWorkers() {
	for range c.nWorkers {
		c.submitQueue.Put(nil)
	}

	waitWithTimeout(c.workerWG, c.joinTimeout)
	c.active.Store(false)
}

func (c *Controller) waitForWorkerDoneSignals(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		c.drainResults()
		c.countWorkerDoneSignals()

		if c.workersDone >= c.nWorkers {
			return nil
		}

		if time.Now().After(deadline) {
			return &TimeoutError{Waited: timeout, Done: c.workersDone, Workers: c.nWorkers}
		}

		time.Sleep(c.pollInterval)
	}
}

// waitForWorkersToShutDown polls the active flag for the suspend timeout.
// The workers are shut down by the supervisory loop; this only observes.
func (c *Controller) waitForWorkersToShutDown() {
	deadline := time.Now().Add(c.suspendTimeout)

	for c.active.Load() {
		if time.Now().After(deadline) {
			c.logger.Warn("Workers did not confirm shutdown within suspend timeout")

			return
		}

		time.Sleep(c.pollInterval)
	}
}

func (c *Controller) resetTaskList() {
	c.taskLock.Lock()
	c.pending = nil
	c.taskLock.Unlock()

	c.progressMu.Lock()
	c.progressDone = 0
	c.progressTarget = 0
	c.progressMu.Unlock()
}

// waitWithTimeout waits on wg for at most timeout and reports whether the
// wait completed.
func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
