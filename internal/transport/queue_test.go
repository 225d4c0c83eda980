package transport_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowkit/ergble/internal/transport"
)

func deviceEvent(id string) transport.Event {
	return transport.Event{Kind: transport.EventDeviceFound, DeviceID: id}
}

func TestEventQueueDeliversInOrder(t *testing.T) {
	q := transport.NewEventQueue(4)
	q.Push(deviceEvent("a"))
	q.Push(deviceEvent("b"))
	q.Push(deviceEvent("c"))
	q.Close()

	var got []string
	for ev := range q.C() {
		got = append(got, ev.DeviceID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Zero(t, q.Dropped())
}

func TestEventQueueDropsOldestWhenFull(t *testing.T) {
	q := transport.NewEventQueue(2)
	q.Push(deviceEvent("a"))
	q.Push(deviceEvent("b"))
	q.Push(deviceEvent("c")) // evicts "a"
	q.Push(deviceEvent("d")) // evicts "b"
	q.Close()

	var got []string
	for ev := range q.C() {
		got = append(got, ev.DeviceID)
	}
	assert.Equal(t, []string{"c", "d"}, got)
	assert.EqualValues(t, 2, q.Dropped())
}

func TestEventQueuePushAfterClose(t *testing.T) {
	q := transport.NewEventQueue(2)
	q.Push(deviceEvent("a"))
	q.Close()
	q.Push(deviceEvent("b"))

	ev, ok := <-q.C()
	require.True(t, ok)
	assert.Equal(t, "a", ev.DeviceID)

	_, ok = <-q.C()
	assert.False(t, ok)
	assert.EqualValues(t, 1, q.Dropped())
}

func TestEventQueueCloseRacingProducers(t *testing.T) {
	q := transport.NewEventQueue(8)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				q.Push(deviceEvent("x"))
			}
		}()
	}
	q.Close()
	wg.Wait()

	// Drain whatever landed before the close; no send may have panicked.
	for range q.C() {
	}
}

func TestEventQueueCloseIsIdempotent(t *testing.T) {
	q := transport.NewEventQueue(1)
	q.Close()
	assert.NotPanics(t, func() { q.Close() })
}

func TestEventQueueRejectsZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { transport.NewEventQueue(0) })
}
