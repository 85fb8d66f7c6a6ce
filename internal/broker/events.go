package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gamestore-engine/internal/models"
	"gamestore-engine/internal/ports"

	"github.com/segmentio/kafka-go"
)

var _ ports.Events = (*EventPublisher)(nil)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderCancelled publishes OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderDelivered publishes OrderDelivered event
func (ep *EventPublisher) PublishOrderDelivered(ctx context.Context, event *models.OrderDeliveredEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderRefunded publishes OrderRefunded event
func (ep *EventPublisher) PublishOrderRefunded(ctx context.Context, event *models.OrderRefundedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishLoyaltyRedeemed publishes LoyaltyRedeemed event
func (ep *EventPublisher) PublishLoyaltyRedeemed(ctx context.Context, event *models.LoyaltyRedeemedEvent) error {
	key := fmt.Sprintf("customer-%d", event.CustomerID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnRequested publishes ReturnRequested event
func (ep *EventPublisher) PublishReturnRequested(ctx context.Context, event *models.ReturnRequestedEvent) error {
	key := fmt.Sprintf("return-%d", event.ReturnID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnApproved publishes ReturnApproved event
func (ep *EventPublisher) PublishReturnApproved(ctx context.Context, event *models.ReturnApprovedEvent) error {
	key := fmt.Sprintf("return-%d", event.ReturnID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnCompleted publishes ReturnCompleted event
func (ep *EventPublisher) PublishReturnCompleted(ctx context.Context, event *models.ReturnCompletedEvent) error {
	key := fmt.Sprintf("return-%d", event.ReturnID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPreOrderCreated publishes PreOrderCreated event
func (ep *EventPublisher) PublishPreOrderCreated(ctx context.Context, event *models.PreOrderCreatedEvent) error {
	key := fmt.Sprintf("preorder-%d", event.PreOrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPreOrderFulfilled publishes PreOrderFulfilled event
func (ep *EventPublisher) PublishPreOrderFulfilled(ctx context.Context, event *models.PreOrderFulfilledEvent) error {
	key := fmt.Sprintf("preorder-%d", event.PreOrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onReturnApproved    func(context.Context, *models.ReturnApprovedEvent) error
	onPreOrderFulfilled func(context.Context, *models.PreOrderFulfilledEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnReturnApproved registers a handler for ReturnApproved events
func (eh *EventHandler) OnReturnApproved(handler func(context.Context, *models.ReturnApprovedEvent) error) {
	eh.onReturnApproved = handler
}

// OnPreOrderFulfilled registers a handler for PreOrderFulfilled events
func (eh *EventHandler) OnPreOrderFulfilled(handler func(context.Context, *models.PreOrderFulfilledEvent) error) {
	eh.onPreOrderFulfilled = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeReturnApproved:
		if eh.onReturnApproved != nil {
			var event models.ReturnApprovedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReturnApproved event: %w", err)
			}
			return eh.onReturnApproved(ctx, &event)
		}

	case models.EventTypePreOrderFulfilled:
		if eh.onPreOrderFulfilled != nil {
			var event models.PreOrderFulfilledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PreOrderFulfilled event: %w", err)
			}
			return eh.onPreOrderFulfilled(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
