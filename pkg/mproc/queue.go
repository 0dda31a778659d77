// Package mproc provides the parallel task-distribution core: an unbounded
// FIFO queue primitive, the worker-side processor loop and the supervisory
// worker controller.
package mproc

import (
	"errors"
	"sync"
)

// ErrEmpty is returned by GetNowait when the queue holds no items.
var ErrEmpty = errors.New("queue is empty")

// Queue is an unbounded FIFO safe for concurrent producers and consumers.
// Put never blocks; Get blocks until an item is available.
type Queue[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []T
}

func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)

	return q
}

func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.cond.Signal()
}

// Get blocks until an item is available and removes it from the queue.
func (q *Queue[T]) Get() T {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		q.cond.Wait()
	}

	return q.pop()
}

// GetNowait removes and returns the head item, or ErrEmpty.
func (q *Queue[T]) GetNowait() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T

		return zero, ErrEmpty
	}

	return q.pop(), nil
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

func (q *Queue[T]) pop() T {
	item := q.items[0]
	q.items = q.items[1:]

	return item
}
