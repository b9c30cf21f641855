package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
	Close()
}

// queueDispatcher buffers events on a channel drained by a single worker
// goroutine. Publish never blocks the caller: when the queue is full the
// event is dropped and logged. Handler errors are logged and never reach
// the publisher, so a failed notification cannot fail the mutation that
// triggered it.
type queueDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	queue     chan Event
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

// NewQueueDispatcher creates a dispatcher with the given queue capacity
// and starts its worker.
func NewQueueDispatcher(capacity int, logger *zap.Logger) Dispatcher {
	if capacity <= 0 {
		capacity = 256
	}
	d := &queueDispatcher{
		listeners: make(map[EventType][]EventHandler),
		queue:     make(chan Event, capacity),
		done:      make(chan struct{}),
		logger:    logger,
	}
	go d.run()
	return d
}

// Publish enqueues the event without waiting for handlers.
func (d *queueDispatcher) Publish(ctx context.Context, event Event) error {
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("event queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *queueDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Close stops the worker after draining queued events.
func (d *queueDispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
		<-d.done
	})
}

func (d *queueDispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		d.mu.RLock()
		handlers := append([]EventHandler{}, d.listeners[event.Type]...)
		d.mu.RUnlock()

		for _, handler := range handlers {
			if err := handler(context.Background(), event); err != nil {
				d.logger.Error("event handler failed",
					zap.String("type", string(event.Type)),
					zap.String("ticket_id", event.TicketID),
					zap.Error(err))
			}
		}
	}
}
