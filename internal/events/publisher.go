package events

import (
	"context"
	"log"
	"sync"

	"commerce-backend/internal/domain"
)

// Event is a domain fact that already happened. Handlers react to it after
// the owning transaction committed.
type Event interface {
	Name() string
}

// ClientCreated fires after a registration commits. It carries the plain
// verification token so a handler can build the emailed link; only the hash
// is ever stored.
type ClientCreated struct {
	Client            *domain.Client
	VerificationToken string
}

func (ClientCreated) Name() string { return "client.created" }

// OrderPlaced fires after checkout commits.
type OrderPlaced struct {
	Order *domain.Order
}

func (OrderPlaced) Name() string { return "order.placed" }

// Handler reacts to one event. Errors are logged, never propagated to the
// publishing use-case.
type Handler func(ctx context.Context, event Event)

// Publisher routes events to registered handlers. Handlers are registered at
// startup and invoked synchronously in registration order.
type Publisher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewPublisher creates an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{handlers: make(map[string][]Handler)}
}

// Register subscribes a handler to the named event.
func (p *Publisher) Register(eventName string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[eventName] = append(p.handlers[eventName], h)
}

// Publish delivers the event to every registered handler. A panicking
// handler is recovered and logged so one subscriber cannot take down the
// request.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	p.mu.RLock()
	handlers := p.handlers[event.Name()]
	p.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("ERROR: event handler for %q panicked: %v", event.Name(), r)
				}
			}()
			h(ctx, event)
		}()
	}
}
