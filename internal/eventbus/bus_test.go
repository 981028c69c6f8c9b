package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_RoundTrip(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	require.NoError(t, eb.SendToCore(SelectSourceEvent{Input: "https://example.com/cat.jpg"}))
	event := <-eb.UIToCore()
	assert.Equal(t, SelectSourceEvent{Input: "https://example.com/cat.jpg"}, event)

	require.NoError(t, eb.SendToUI(StateUpdateEvent{}))
	_, ok := (<-eb.CoreToUI()).(StateUpdateEvent)
	assert.True(t, ok)
}

func TestEventBus_FullChannelOpensCircuit(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	var reported []EventBusError
	eb.SetErrorCallback(func(err EventBusError) { reported = append(reported, err) })

	for i := 0; i < cap(eb.coreToUI); i++ {
		require.NoError(t, eb.SendToUI(StateUpdateEvent{}))
	}
	for i := 0; i < 5; i++ {
		require.Error(t, eb.SendToUI(StateUpdateEvent{}))
	}

	assert.Equal(t, CircuitOpen, eb.GetCircuitBreakerState())
	assert.ErrorIs(t, eb.SendToCore(ClassifyEvent{}), ErrCircuitOpen)
	assert.Len(t, reported, 6)
}

func TestEventBus_SendAfterClose(t *testing.T) {
	eb := NewEventBus()
	eb.Close()
	eb.Close()

	assert.ErrorIs(t, eb.SendToUI(StateUpdateEvent{}), ErrBusClosed)
	assert.ErrorIs(t, eb.SendToCore(DismissNoticeEvent{}), ErrBusClosed)
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	time.Sleep(20 * time.Millisecond)
	assert.False(t, cb.IsOpen())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}
