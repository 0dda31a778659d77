package mproc

// Notifier receives progress and result callbacks from the controller's
// supervisory loop. Implementations must be safe for use from a single
// goroutine but should not block; a slow Result callback stalls result
// draining.
type Notifier interface {
	// Progress reports the completed fraction in [0, 1].
	Progress(fraction float64)
	// Result delivers one (task, value) pair as it is drained.
	Result(task any, value any)
	// Finished is called once when the supervisory loop exits cleanly.
	Finished()
}

// NopNotifier discards all callbacks.
type NopNotifier struct{}

func (NopNotifier) Progress(float64) {}
func (NopNotifier) Result(any, any)  {}
func (NopNotifier) Finished()        {}
