package orchestrator

import "sync"

// EventType names a lifecycle event an Instance can publish. This only
// covers what the orchestrator itself knows about: connection lifecycle
// and command dispatch, since world/level state lives behind LevelService.
type EventType int

const (
	EventClientConnected EventType = iota
	EventClientDisconnected
	EventCommandExecuted
)

func (t EventType) String() string {
	switch t {
	case EventClientConnected:
		return "client_connected"
	case EventClientDisconnected:
		return "client_disconnected"
	case EventCommandExecuted:
		return "command_executed"
	default:
		return "unknown"
	}
}

// Event is one published occurrence. ClientAddr identifies the connection
// it concerns; Data carries event-specific detail (a disconnect reason, a
// command string) and is nil where there's nothing to add.
type Event struct {
	Type       EventType
	ClientAddr string
	Data       interface{}
}

// EventHandler observes published events. Handlers run synchronously on
// the publishing goroutine, so a slow handler slows whichever goroutine
// triggered the event — keep handlers cheap (log, increment a counter),
// not blocking I/O.
type EventHandler func(Event)

// EventBus is a small synchronous pub/sub table for connection-lifecycle
// and command-dispatch events.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

func newEventBus() *EventBus {
	return &EventBus{handlers: make(map[EventType][]EventHandler)}
}

// Register subscribes handler to every future event of the given type.
func (b *EventBus) Register(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *EventBus) publish(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}
