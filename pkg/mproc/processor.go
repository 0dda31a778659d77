package mproc

import (
	"fmt"
	"log/slog"
)

// TaskFunc is the target callable distributed to the workers. The task is
// the single varying argument; args are the fixed arguments configured via
// ChangeFunction.
type TaskFunc func(task any, args ...any) (any, error)

// TaskResult pairs a task argument with the value computed for it. Because
// workers race independently against the shared submit queue, consumers
// must place results by task, never by arrival order.
type TaskResult struct {
	Task  any
	Value any
}

// Processor is the loop run inside every worker. It pulls one task at a
// time from the input queue, invokes the target callable and pushes the
// (task, result) pair to the output queue, until it receives the nil
// sentinel or a stop token.
//
// A task whose callable returns an error or panics terminates the worker
// without a done signal. There is deliberately no per-task error channel;
// the loss surfaces as the controller's bounded post-run wait timing out.
func Processor(logger *slog.Logger, input *Queue[any], output *Queue[TaskResult], stop, finished *Queue[int], fn TaskFunc, args ...any) {
	logger = logger.With("module", "mproc.processor")
	logger.Debug("Worker started")

	for {
		arg := input.Get()
		if arg == nil {
			logger.Debug("Received sentinel, worker shutting down")
			finished.Put(1)

			return
		}

		if _, err := stop.GetNowait(); err == nil {
			logger.Debug("Received stop token, worker shutting down")
			finished.Put(1)

			return
		}

		value, err := runTask(fn, arg, args...)
		if err != nil {
			logger.Error("Task failed, worker terminating", "task", arg, "error", err)

			return
		}

		output.Put(TaskResult{Task: arg, Value: value})
	}
}

// runTask converts a panic in the callable into an error so a broken plugin
// kills only its worker, not the whole process.
func runTask(fn TaskFunc, task any, args ...any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return fn(task, args...)
}
