// Package events decouples the transactional core from side effects.
// Services publish after commit; subscribers (delivery, cache invalidation)
// run best-effort and can never roll an invoice back.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Type string

const (
	InvoiceCreated Type = "invoice.created"
	InvoiceUpdated Type = "invoice.updated"
	InvoiceDeleted Type = "invoice.deleted"
	CouponRedeemed Type = "coupon.redeemed"
)

type Event struct {
	Type      Type
	InvoiceID uuid.UUID
	CouponID  uuid.UUID
}

type HandlerFunc func(ctx context.Context, evt Event)

// Publisher fans events out to registered subscribers. Subscribers run
// synchronously in registration order; a panicking subscriber is logged
// and does not stop the rest.
type Publisher struct {
	mu       sync.RWMutex
	handlers []HandlerFunc
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Subscribe(fn HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, fn)
}

func (p *Publisher) Publish(ctx context.Context, evt Event) {
	p.mu.RLock()
	handlers := make([]HandlerFunc, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.RUnlock()

	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("event", string(evt.Type)).Msg("event subscriber panicked")
				}
			}()
			fn(ctx, evt)
		}()
	}
}
