package eventbus_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlab/diffract/pkg/channels/gochannel"
	"github.com/stormlab/diffract/pkg/eventbus"
	"github.com/stormlab/diffract/pkg/events"
)

func testBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	logger := watermill.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	pub, sub, err := gochannel.CreateTestChannel(logger)
	require.NoError(t, err)

	return eventbus.NewWatermillEventBus(pub, sub)
}

func TestPublishAndSubscribe(t *testing.T) {
	bus := testBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.RunProgress, 1)

	err := bus.Handle(events.RunProgressEvent, func(_ context.Context, event any) error {
		progress, ok := event.(*events.RunProgress)
		if ok {
			received <- progress
		}

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	event := events.RunProgress{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.RunProgressEvent,
			Timestamp: time.Now(),
			RunID:     "run-1",
		},
		Fraction: 0.5,
	}

	require.NoError(t, bus.Publish(ctx, "run-1", event))

	select {
	case progress := <-received:
		assert.Equal(t, "run-1", progress.RunID)
		assert.InDelta(t, 0.5, progress.Fraction, 1e-12)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestEventsWithoutHandlerAreAcked(t *testing.T) {
	bus := testBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.RunFinished{
		BaseEvent: events.BaseEvent{
			ID:    bus.GenerateID(),
			Type:  events.RunFinishedEvent,
			RunID: "run-2",
		},
	}

	require.NoError(t, bus.Publish(ctx, "run-2", event))
}

func TestGenerateIDIsUnique(t *testing.T) {
	bus := testBus(t)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
