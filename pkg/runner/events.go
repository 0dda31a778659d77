package runner

import (
	"context"
	"time"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/eventbus"
	"github.com/stormlab/diffract/pkg/events"
	"github.com/stormlab/diffract/pkg/scan"
)

func (r *Runner) baseEvent(runID string, eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:        r.bus.GenerateID(),
		Type:      eventType,
		Timestamp: time.Now(),
		RunID:     runID,
		WorkerID:  r.runnerID,
	}
}

func (r *Runner) publish(ctx context.Context, runID string, event eventbus.Event) {
	if r.bus == nil {
		return
	}

	if err := r.bus.Publish(ctx, runID, event); err != nil {
		r.logger.Warn("Cannot publish event", "event_type", event.GetType(), "error", err)
	}
}

func (r *Runner) publishStarted(ctx context.Context, runID string, scanCtx *scan.Context) {
	if r.bus == nil {
		return
	}

	r.publish(ctx, runID, events.RunStarted{
		BaseEvent: r.baseEvent(runID, events.RunStartedEvent),
		ScanTitle: scanCtx.Title,
		NPoints:   scanCtx.NPoints(),
		NWorkers:  r.nWorkers,
	})
}

func (r *Runner) publishProgress(ctx context.Context, runID string, fraction float64) {
	if r.bus == nil {
		return
	}

	r.publish(ctx, runID, events.RunProgress{
		BaseEvent: r.baseEvent(runID, events.RunProgressEvent),
		Fraction:  fraction,
	})
}

func (r *Runner) publishTaskCompleted(ctx context.Context, runID string, index int, nodeResults map[int]any) {
	if r.bus == nil {
		return
	}

	values := make(map[int][]float64, len(nodeResults))
	shapes := make(map[int][]int, len(nodeResults))

	for nodeID, value := range nodeResults {
		data, ok := value.(*dataset.Dataset)
		if !ok {
			continue
		}

		values[nodeID] = data.Values()
		shapes[nodeID] = data.Shape()
	}

	r.publish(ctx, runID, events.TaskCompleted{
		BaseEvent: r.baseEvent(runID, events.TaskCompletedEvent),
		TaskIndex: index,
		Results:   values,
		Shapes:    shapes,
	})
}

func (r *Runner) publishFinished(ctx context.Context, runID string, points int, duration time.Duration) {
	if r.bus == nil {
		return
	}

	r.publish(ctx, runID, events.RunFinished{
		BaseEvent:      r.baseEvent(runID, events.RunFinishedEvent),
		Duration:       duration,
		PointsComplete: points,
	})
}

func (r *Runner) publishFailed(ctx context.Context, runID string, err error, duration time.Duration) {
	if r.bus == nil {
		return
	}

	r.publish(ctx, runID, events.RunFailed{
		BaseEvent: r.baseEvent(runID, events.RunFailedEvent),
		Error:     err.Error(),
		Duration:  duration,
	})
}
