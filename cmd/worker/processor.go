package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/ibeanu/lesson-store/internal/aws"
	"github.com/ibeanu/lesson-store/internal/metrics"
	"github.com/ibeanu/lesson-store/internal/orders"
)

// Processor consumes order-placed messages and confirms the orders.
type Processor struct {
	orderStore *orders.Store
	emitter    *metrics.Emitter
}

// NewProcessor creates a worker processor with AWS clients injected.
func NewProcessor(clients *aws.AWSClients, ordersTable string) *Processor {
	return &Processor{
		orderStore: orders.NewStore(clients.DynamoDB, ordersTable),
		emitter:    metrics.NewEmitter(clients.CloudWatch, "LessonStore"),
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry, and exhausted messages go
			// to the DLQ.
			log.Printf("worker error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg orderMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	log.Printf("[worker] received order=%s corr=%s", msg.OrderID, msg.CorrelationID)

	order, err := p.orderStore.Get(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		// Should never happen since the placement transaction committed
		// before the message was sent. DLQ if it does.
		return fmt.Errorf("order not found: %s", msg.OrderID)
	}

	err = p.orderStore.UpdateStatus(ctx, msg.OrderID, orders.StatusPending, orders.StatusConfirmed)
	if err == orders.ErrStatusMismatch {
		// Duplicate delivery or competing worker. Confirmed is success;
		// failed is permanent.
		o2, getErr := p.orderStore.Get(ctx, msg.OrderID)
		if getErr != nil || o2 == nil {
			return fmt.Errorf("failed to re-fetch order %s: %v", msg.OrderID, getErr)
		}
		switch o2.Status {
		case orders.StatusConfirmed:
			log.Printf("[worker] already confirmed order=%s", msg.OrderID)
			return nil
		case orders.StatusFailed:
			return fmt.Errorf("order=%s is already FAILED", msg.OrderID)
		default:
			return fmt.Errorf("unexpected status for order=%s: %s", msg.OrderID, o2.Status)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to confirm order: %w", err)
	}

	p.emitter.Count(ctx, metrics.MetricConfirmedOrders)
	log.Printf("[worker] confirmed order=%s", msg.OrderID)
	return nil
}
