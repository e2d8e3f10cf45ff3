package bus

import "time"

// Wildcard subscribes to every event type.
const Wildcard = "*"

// EventBus is an in-process pub/sub bus.
//
// Delivery is synchronous: Publish calls handlers in the caller goroutine, in subscription
// order, and joins their errors. Handlers subscribed to Wildcard run after the handlers of
// the exact type. All methods are safe for concurrent use.
type EventBus interface {
	Publish(event Event) error
	// PublishWithFilters drops the event without error when any filter rejects it.
	PublishWithFilters(event Event, filters ...EventFilter) error

	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. A nil sub is ignored.
	Unsubscribe(sub Subscription) error

	AddObserver(obs EventBusObserver)
	// GetMetrics is only populated while at least one observer is registered.
	GetMetrics() EventBusMetrics
}

// Event is an immutable message. Type is the routing key.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type (
	EventHandler func(event Event) error
	EventFilter  func(event Event) bool
)

type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Repeated calls are safe.
	Cancel() error
}

// EventBusObserver is notified around every delivery and should return quickly.
type EventBusObserver interface {
	OnPublish(event Event)
	OnDelivered(event Event, handlers int, err error, took time.Duration)
}

type EventBusMetrics struct {
	Published         uint64 `json:"published"`
	DeliveredHandlers uint64 `json:"delivered_handlers"`
	Errors            uint64 `json:"errors"`
	DroppedByFilters  uint64 `json:"dropped_by_filters"`
	SubscribersActive uint64 `json:"subscribers_active"`
}
