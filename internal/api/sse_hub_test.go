package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, hub *SSEHub, datasetID string) chan ProgressEvent {
	t.Helper()
	ch := make(chan ProgressEvent, 10)
	hub.register <- SSEClient{DatasetID: datasetID, Channel: ch}

	require.Eventually(t, func() bool {
		for _, id := range hub.ActiveDatasets() {
			if id == datasetID {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return ch
}

func TestHubDeliversToRegisteredClient(t *testing.T) {
	hub := NewSSEHub()
	ch := register(t, hub, "ds1")

	hub.PublishProgress("ds1", "parsing_csv", 25)

	select {
	case event := <-ch:
		assert.Equal(t, "ds1", event.DatasetID)
		assert.Equal(t, "parsing_csv", event.State)
		assert.Equal(t, 25, event.Percent)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestHubScopesEventsByDataset(t *testing.T) {
	hub := NewSSEHub()
	ch1 := register(t, hub, "ds1")
	ch2 := register(t, hub, "ds2")

	hub.PublishProgress("ds1", "complete", 100)

	select {
	case event := <-ch1:
		assert.Equal(t, "ds1", event.DatasetID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	select {
	case event := <-ch2:
		t.Fatalf("unexpected event for ds2: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesChannel(t *testing.T) {
	hub := NewSSEHub()
	ch := register(t, hub, "ds1")

	hub.unregister <- SSEClient{DatasetID: "ds1", Channel: ch}

	require.Eventually(t, func() bool {
		return len(hub.ActiveDatasets()) == 0
	}, time.Second, 5*time.Millisecond)

	_, open := <-ch
	assert.False(t, open)
}

func TestHubDropsEventsForFullClient(t *testing.T) {
	hub := NewSSEHub()
	ch := make(chan ProgressEvent, 1)
	hub.register <- SSEClient{DatasetID: "ds1", Channel: ch}

	require.Eventually(t, func() bool {
		return len(hub.ActiveDatasets()) == 1
	}, time.Second, 5*time.Millisecond)

	// The second event does not fit; the hub must not block.
	hub.PublishProgress("ds1", "reading_file", 10)
	hub.PublishProgress("ds1", "parsing_csv", 20)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, ch, 1)
}
