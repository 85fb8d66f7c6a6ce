package worker

import (
	"context"
	"log"
	"time"

	"gamestore-engine/internal/broker"
	"gamestore-engine/internal/models"
	"gamestore-engine/internal/service"
)

// ReturnWorker settles approved returns in the background. It consumes
// ReturnApproved events and moves each return to completed once the
// refund has been paid out.
type ReturnWorker struct {
	consumer      *broker.Consumer
	eventHandler  *broker.EventHandler
	returnService *service.ReturnService
}

// NewReturnWorker creates a new return worker
func NewReturnWorker(
	consumer *broker.Consumer,
	returnService *service.ReturnService,
) *ReturnWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnReturnApproved(func(ctx context.Context, event *models.ReturnApprovedEvent) error {
		log.Printf("Settling approved return: %d", event.ReturnID)
		return returnService.CompleteReturn(ctx, event.ReturnID)
	})

	return &ReturnWorker{
		consumer:      consumer,
		eventHandler:  eventHandler,
		returnService: returnService,
	}
}

// Start starts the worker
func (w *ReturnWorker) Start(ctx context.Context) error {
	log.Println("Starting return worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReturnWorker) Stop() error {
	log.Println("Stopping return worker...")
	return w.consumer.Close()
}

// PreOrderWorker polls for pre-orders whose release date has arrived
// and fulfills them.
type PreOrderWorker struct {
	preOrderService *service.PreOrderService
	interval        time.Duration
}

// NewPreOrderWorker creates a new pre-order worker
func NewPreOrderWorker(preOrderService *service.PreOrderService, interval time.Duration) *PreOrderWorker {
	return &PreOrderWorker{
		preOrderService: preOrderService,
		interval:        interval,
	}
}

// Start runs the fulfillment loop until the context is cancelled
func (w *PreOrderWorker) Start(ctx context.Context) error {
	log.Printf("Starting pre-order worker, polling every %s", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Pre-order worker context cancelled, stopping...")
			return ctx.Err()
		case <-ticker.C:
			fulfilled, err := w.preOrderService.FulfillDue(ctx, time.Now())
			if err != nil {
				log.Printf("Pre-order fulfillment pass failed: %v", err)
				continue
			}
			if fulfilled > 0 {
				log.Printf("Fulfilled %d pre-orders", fulfilled)
			}
		}
	}
}
