package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriLens/internal/eventbus"
	"github.com/Rorical/RoriLens/internal/models"
	"github.com/Rorical/RoriLens/internal/update"
)

func TestListenForCoreEvents(t *testing.T) {
	eb := eventbus.NewEventBus()
	defer eb.Close()
	ed := NewEventDispatcher(eb)

	require.NoError(t, eb.SendToUI(eventbus.StateUpdateEvent{
		Session: models.SessionSnapshot{Phase: models.PhaseReady},
	}))

	msg := ed.ListenForCoreEvents()()
	coreMsg, ok := msg.(update.CoreEventMsg)
	require.True(t, ok)
	state, ok := coreMsg.Event.(eventbus.StateUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, models.PhaseReady, state.Session.Phase)
}

func TestListenForCoreEvents_Stopped(t *testing.T) {
	eb := eventbus.NewEventBus()
	defer eb.Close()
	ed := NewEventDispatcher(eb)
	ed.Stop()

	assert.Nil(t, ed.ListenForCoreEvents()())
}

func TestListenForCoreEvents_BusClosed(t *testing.T) {
	eb := eventbus.NewEventBus()
	ed := NewEventDispatcher(eb)
	eb.Close()

	assert.Nil(t, ed.ListenForCoreEvents()())
}
