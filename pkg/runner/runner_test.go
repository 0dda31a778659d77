package runner_test

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlab/diffract/pkg/channels/gochannel"
	"github.com/stormlab/diffract/pkg/eventbus"
	"github.com/stormlab/diffract/pkg/events"
	"github.com/stormlab/diffract/pkg/mproc"
	"github.com/stormlab/diffract/pkg/plugins/framesource"
	"github.com/stormlab/diffract/pkg/plugins/scale"
	"github.com/stormlab/diffract/pkg/plugins/sumall"
	"github.com/stormlab/diffract/pkg/registry"
	"github.com/stormlab/diffract/pkg/runner"
	"github.com/stormlab/diffract/pkg/scan"
	"github.com/stormlab/diffract/pkg/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func testRegistry() *registry.Registry {
	reg := registry.NewRegistry(testLogger())
	reg.RegisterPlugin(framesource.NewFactory())
	reg.RegisterPlugin(scale.NewFactory())
	reg.RegisterPlugin(sumall.NewFactory())

	return reg
}

// buildTree wires frame -> scale -> sum with index fill, so scan point i
// yields 4*4 * i * 2 = 32*i.
func buildTree(t *testing.T) (*workflow.Tree, int) {
	t.Helper()

	tree := workflow.NewTree(testLogger())

	source, err := framesource.New(map[string]any{
		"size":      []int{4, 4},
		"fill_mode": framesource.FillIndex,
	})
	require.NoError(t, err)

	doubler, err := scale.New(map[string]any{"factor": 2.0})
	require.NoError(t, err)

	summer, err := sumall.New(nil)
	require.NoError(t, err)

	_, err = tree.CreateAndAddNode(source)
	require.NoError(t, err)
	_, err = tree.CreateAndAddNode(doubler)
	require.NoError(t, err)

	sumID, err := tree.CreateAndAddNode(summer)
	require.NoError(t, err)

	return tree, sumID
}

func testScan(t *testing.T) *scan.Context {
	t.Helper()

	c, err := scan.New("grid",
		scan.Dimension{Label: "y", N: 2},
		scan.Dimension{Label: "x", N: 2},
	)
	require.NoError(t, err)

	return c
}

func fastControllerOptions() runner.Option {
	return runner.WithControllerOptions(
		mproc.WithPollInterval(time.Millisecond),
		mproc.WithJoinTimeout(5*time.Second),
	)
}

func TestRunFillsResultStore(t *testing.T) {
	tree, sumID := buildTree(t)

	r, err := runner.New(testLogger(), testRegistry(), 2, fastControllerOptions())
	require.NoError(t, err)

	store, err := r.Run(context.Background(), runner.NewRunID(), tree, testScan(t))
	require.NoError(t, err)
	require.True(t, store.Complete())

	node, err := store.Node(sumID)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 32, 64, 96}, node.Values())
}

func TestRunPublishesLifecycleEvents(t *testing.T) {
	logger := watermill.NewSlogLogger(testLogger())

	pub, sub, err := gochannel.CreateChannel(logger)
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	var tasksCompleted, runsFinished atomic.Int64

	finished := make(chan struct{}, 1)

	require.NoError(t, bus.Handle(events.TaskCompletedEvent, func(_ context.Context, _ any) error {
		tasksCompleted.Add(1)

		return nil
	}))
	require.NoError(t, bus.Handle(events.RunFinishedEvent, func(_ context.Context, _ any) error {
		runsFinished.Add(1)
		finished <- struct{}{}

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	tree, _ := buildTree(t)

	r, err := runner.New(
		testLogger(), testRegistry(), 2,
		runner.WithEventBus(bus), fastControllerOptions(),
	)
	require.NoError(t, err)

	_, err = r.Run(ctx, runner.NewRunID(), tree, testScan(t))
	require.NoError(t, err)

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("run finished event was not delivered")
	}

	assert.Equal(t, int64(4), tasksCompleted.Load())
	assert.Equal(t, int64(1), runsFinished.Load())
}

func TestRunFailsOnUndeterminedShapes(t *testing.T) {
	tree := workflow.NewTree(testLogger())

	source, err := framesource.New(nil)
	require.NoError(t, err)

	_, err = tree.CreateAndAddNode(source)
	require.NoError(t, err)

	r, err := runner.New(testLogger(), testRegistry(), 1, fastControllerOptions())
	require.NoError(t, err)

	_, err = r.Run(context.Background(), runner.NewRunID(), tree, testScan(t))
	require.Error(t, err)
}

func TestNewRejectsInvalidWorkerCount(t *testing.T) {
	_, err := runner.New(testLogger(), testRegistry(), 0)
	require.Error(t, err)
}
