// Package events defines the event types published over the bus during
// scan processing runs.
package events

import (
	"time"
)

type EventType string

// Topic is the bus topic all run events are published to.
const Topic = "diffract.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent    EventType = "run.started"
	RunProgressEvent   EventType = "run.progress"
	TaskCompletedEvent EventType = "run.task.completed"
	RunFinishedEvent   EventType = "run.finished"
	RunFailedEvent     EventType = "run.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RunStarted marks the beginning of a scan processing run.
type RunStarted struct {
	BaseEvent

	ScanTitle string `json:"scan_title"`
	NPoints   int    `json:"n_points"`
	NWorkers  int    `json:"n_workers"`
}

func (r RunStarted) GetType() EventType {
	return RunStartedEvent
}

// RunProgress reports the completed fraction of a running scan.
type RunProgress struct {
	BaseEvent

	Fraction float64 `json:"fraction"`
}

func (r RunProgress) GetType() EventType {
	return RunProgressEvent
}

// TaskCompleted reports that one scan point has been processed. Results are
// keyed by node id; the payload carries the flattened values so consumers
// do not need the dataset type.
type TaskCompleted struct {
	BaseEvent

	TaskIndex int               `json:"task_index"`
	Results   map[int][]float64 `json:"results"`
	Shapes    map[int][]int     `json:"shapes"`
}

func (t TaskCompleted) GetType() EventType {
	return TaskCompletedEvent
}

// RunFinished marks the successful completion of a scan processing run.
type RunFinished struct {
	BaseEvent

	Duration       time.Duration `json:"duration"`
	PointsComplete int           `json:"points_complete"`
}

func (r RunFinished) GetType() EventType {
	return RunFinishedEvent
}

// RunFailed marks an aborted scan processing run.
type RunFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (r RunFailed) GetType() EventType {
	return RunFailedEvent
}
