package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmind/studio-api/internal/model"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func receive(t *testing.T, s *Subscriber) model.JobEvent {
	t.Helper()
	select {
	case raw := <-s.Messages():
		var ev model.JobEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return model.JobEvent{}
	}
}

func TestHub_StepEventReachesOnlyItsJob(t *testing.T) {
	h := runHub(t)

	watcher := NewSubscriber("job-1")
	other := NewSubscriber("job-2")
	h.Add(watcher)
	h.Add(other)

	h.BroadcastStep("job-1", 2, model.GenerationStep{ID: "3", Type: model.ShotLifestyle, Status: model.StepError, Error: "boom"})

	ev := receive(t, watcher)
	assert.Equal(t, model.EventStep, ev.Type)
	require.NotNil(t, ev.Index)
	assert.Equal(t, 2, *ev.Index)
	require.NotNil(t, ev.Step)
	assert.Equal(t, model.StepError, ev.Step.Status)
	assert.False(t, ev.At.IsZero())

	select {
	case <-other.Messages():
		t.Fatal("event leaked to another job")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_ProgressZeroIsEncoded(t *testing.T) {
	h := runHub(t)
	s := NewSubscriber("job-1")
	h.Add(s)

	h.BroadcastProgress("job-1", 0, model.JobStatusRunning, "Starting generation")

	ev := receive(t, s)
	require.NotNil(t, ev.Progress)
	assert.Equal(t, 0, *ev.Progress)
	assert.Equal(t, model.JobStatusRunning, ev.Status)
}

func TestHub_RemoveClosesMessages(t *testing.T) {
	h := runHub(t)

	s := NewSubscriber("job-1")
	h.Add(s)
	assert.Equal(t, 1, h.Subscribers("job-1"))

	h.Remove(s)
	assert.Equal(t, 0, h.Subscribers("job-1"))

	_, open := <-s.Messages()
	assert.False(t, open)

	// removing twice and offering afterwards are both harmless
	h.Remove(s)
	assert.False(t, s.offer([]byte("late")))
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	h := runHub(t)
	s := NewSubscriber("job-1")
	h.Add(s)

	for i := 0; i <= sendBuffer; i++ {
		h.BroadcastProgress("job-1", i, model.JobStatusRunning, "")
	}

	assert.Eventually(t, func() bool { return h.Subscribers("job-1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_ErrorEvent(t *testing.T) {
	h := runHub(t)
	s := NewSubscriber("job-9")
	h.Add(s)

	h.BroadcastError("job-9", "GENERATION_FAILED", "all shots failed")

	ev := receive(t, s)
	assert.Equal(t, model.EventError, ev.Type)
	assert.Equal(t, model.JobStatusFailed, ev.Status)
	require.NotNil(t, ev.Error)
	assert.Equal(t, "GENERATION_FAILED", ev.Error.Code)
}

func TestHub_CompleteEventMatchesStoredStatus(t *testing.T) {
	h := runHub(t)
	s := NewSubscriber("job-3")
	h.Add(s)

	h.BroadcastComplete("job-3", map[string]int{"generatedCount": 5})

	ev := receive(t, s)
	assert.Equal(t, model.EventComplete, ev.Type)
	// clients compare this against GET /status, which reports the stored job status
	assert.Equal(t, model.JobStatusSucceeded, ev.Status)
	assert.True(t, (&model.Job{Status: ev.Status}).IsFinished())
	assert.Equal(t, map[string]interface{}{"generatedCount": float64(5)}, ev.Result)
}

func TestHub_RunStopsAndClosesSubscribers(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	s := NewSubscriber("job-1")
	h.Add(s)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	_, open := <-s.Messages()
	assert.False(t, open)
}

func TestHub_SnapshotEvent(t *testing.T) {
	h := NewHub()
	_, ok := h.snapshotEvent(context.Background(), "job-1")
	assert.False(t, ok)

	h.SetSnapshot(func(ctx context.Context, jobID string) (interface{}, error) {
		if jobID != "job-1" {
			return nil, errors.New("not found")
		}
		return map[string]string{"status": "running"}, nil
	})

	data, ok := h.snapshotEvent(context.Background(), "job-1")
	require.True(t, ok)
	var ev model.JobEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, model.EventSnapshot, ev.Type)
	assert.Equal(t, map[string]interface{}{"status": "running"}, ev.Result)

	_, ok = h.snapshotEvent(context.Background(), "missing")
	assert.False(t, ok)
}
