// Package listener consumes the fulfillment events other services publish
// about our orders and advances the order status accordingly.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/rasyaandrean/order-service/internal/kafka"
	"github.com/rasyaandrean/order-service/internal/orders"
)

// Dedup remembers event ids that were fully handled. An event is marked
// only after its transition is applied (or skipped for an unknown order),
// so a transient failure leaves it eligible for redelivery.
type Dedup interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type Listener struct {
	Service *orders.Service
	Dedup   Dedup
}

func (l *Listener) HandlePaymentCompleted(ctx context.Context, m kafkago.Message) error {
	env, ok, err := l.accept(ctx, m, orders.EventPaymentCompleted)
	if err != nil || !ok {
		return err
	}
	p, err := kafkax.UnwrapPayload[orders.PaymentCompletedEvent](env.Payload)
	if err != nil {
		return err
	}
	return l.advance(ctx, env, p.OrderNumber, orders.StatusConfirmed)
}

func (l *Listener) HandleInventoryReserved(ctx context.Context, m kafkago.Message) error {
	env, ok, err := l.accept(ctx, m, orders.EventInventoryReserved)
	if err != nil || !ok {
		return err
	}
	p, err := kafkax.UnwrapPayload[orders.InventoryReservedEvent](env.Payload)
	if err != nil {
		return err
	}
	return l.advance(ctx, env, p.OrderNumber, orders.StatusProcessing)
}

func (l *Listener) HandleShippingLabelCreated(ctx context.Context, m kafkago.Message) error {
	env, ok, err := l.accept(ctx, m, orders.EventShippingLabelCreated)
	if err != nil || !ok {
		return err
	}
	p, err := kafkax.UnwrapPayload[orders.ShippingLabelCreatedEvent](env.Payload)
	if err != nil {
		return err
	}
	return l.advance(ctx, env, p.OrderNumber, orders.StatusShipped)
}

// accept decodes the envelope, filters by event type, and skips event ids
// already marked as handled.
func (l *Listener) accept(ctx context.Context, m kafkago.Message, wantType string) (orders.Envelope, bool, error) {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return env, false, err
	}
	if env.EventType != wantType {
		return env, false, nil // ignore
	}
	if seen, err := l.Dedup.Seen(ctx, env.EventID); err == nil && seen {
		return env, false, nil
	}
	return env, true, nil
}

func (l *Listener) advance(ctx context.Context, env orders.Envelope, orderNumber string, target orders.Status) error {
	if _, err := l.Service.UpdateStatus(ctx, orderNumber, target, ""); err != nil {
		// An event for an order we never saw is skipped, not retried.
		if errors.Is(err, orders.ErrNotFound) {
			slog.Warn("event for unknown order", "event_type", env.EventType, "order_number", orderNumber)
			l.mark(ctx, env)
			return nil
		}
		return err
	}
	slog.Info("order advanced from event", "event_type", env.EventType, "order_number", orderNumber, "status", target)
	l.mark(ctx, env)
	return nil
}

func (l *Listener) mark(ctx context.Context, env orders.Envelope) {
	if err := l.Dedup.Mark(ctx, env.EventID); err != nil {
		slog.Warn("event dedup mark failed", "event_id", env.EventID, "err", err)
	}
}
