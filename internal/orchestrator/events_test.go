package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventBusDeliversToRegisteredHandler(t *testing.T) {
	bus := newEventBus()
	var got []Event
	bus.Register(EventClientConnected, func(e Event) { got = append(got, e) })

	bus.publish(Event{Type: EventClientConnected, ClientAddr: "127.0.0.1:1"})
	bus.publish(Event{Type: EventClientDisconnected, ClientAddr: "127.0.0.1:1"})

	require.Len(t, got, 1)
	require.Equal(t, "127.0.0.1:1", got[0].ClientAddr)
}

func TestEventBusSupportsMultipleHandlers(t *testing.T) {
	bus := newEventBus()
	var a, b int
	bus.Register(EventCommandExecuted, func(Event) { a++ })
	bus.Register(EventCommandExecuted, func(Event) { b++ })

	bus.publish(Event{Type: EventCommandExecuted})

	require.Equal(t, 1, a)
	require.Equal(t, 1, b)
}

func TestEventTypeString(t *testing.T) {
	require.Equal(t, "client_connected", EventClientConnected.String())
	require.Equal(t, "client_disconnected", EventClientDisconnected.String())
	require.Equal(t, "command_executed", EventCommandExecuted.String())
}
