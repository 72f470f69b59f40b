package eventbus

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-sizer-go/internal/utils"
)

func TestSubscribeJob_OrderedDelivery(t *testing.T) {
	bus := New()

	var got []int
	var done []CompletedEvent
	sub, err := bus.SubscribeJob("j1",
		func(e ProgressEvent) { got = append(got, e.Completed) },
		func(e CompletedEvent) { done = append(done, e) },
	)
	require.NoError(t, err)

	for i := 0; i <= 3; i++ {
		bus.PublishProgress(ProgressEvent{JobID: "j1", Completed: i, Total: 3})
	}
	bus.PublishProgress(ProgressEvent{JobID: "other", Completed: 99})
	bus.PublishCompleted(CompletedEvent{JobID: "j1", State: "complete", Outputs: 3})

	assert.Equal(t, []int{0, 1, 2, 3}, got)
	require.Len(t, done, 1)
	assert.Equal(t, 3, done[0].Outputs)

	sub.Close()
	sub.Close()
	assert.False(t, bus.HasSubscriber("j1"))

	bus.PublishProgress(ProgressEvent{JobID: "j1", Completed: 4})
	assert.Len(t, got, 4)
}

func TestSubscribeJob_SingleSubscriber(t *testing.T) {
	bus := New()
	_, err := bus.SubscribeJob("j1", func(ProgressEvent) {}, func(CompletedEvent) {})
	require.NoError(t, err)

	_, err = bus.SubscribeJob("j1", func(ProgressEvent) {}, func(CompletedEvent) {})
	assert.Error(t, err)
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	bus := New()
	require.NoError(t, Attach(bus, NewLogHandler(utils.NewConsoleLogger("info", &buf))))

	bus.PublishCompleted(CompletedEvent{JobID: "ok", State: "complete", Outputs: 2, Failed: 1})
	bus.PublishCompleted(CompletedEvent{JobID: "bad", State: "failed", Error: "no outputs produced"})

	out := buf.String()
	assert.Contains(t, out, "[JOB] job ok complete: 2 outputs, 1 failed")
	assert.Contains(t, out, "[WARN] [JOB] job bad failed: no outputs produced")
}
