package service

import (
	"context"
	"time"

	"gamestore-engine/internal/models"
	"gamestore-engine/internal/ports"
	"gamestore-engine/internal/util"

	"go.uber.org/zap"
)

// ReturnService validates return eligibility and restores inventory on
// approval.
type ReturnService struct {
	store      ports.Store
	stockCache ports.StockCache
	events     ports.Events
	window     time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewReturnService creates a new return service with the given window
// in days.
func NewReturnService(store ports.Store, stockCache ports.StockCache, events ports.Events, windowDays int) *ReturnService {
	return &ReturnService{
		store:      store,
		stockCache: stockCache,
		events:     events,
		window:     time.Duration(windowDays) * 24 * time.Hour,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// RequestReturn opens a pending return for an order. The window is
// inclusive: a request at exactly order date plus the window is still
// accepted. The refund amount defaults to the order total.
func (s *ReturnService) RequestReturn(ctx context.Context, orderID, customerID int64, returnDate time.Time) (*models.Return, error) {
	ctx, span := util.StartSpan(ctx, "ReturnService.RequestReturn")
	defer span.End()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	if returnDate.Sub(order.CreatedAt) > s.window {
		util.ReturnsRejectedTotal.WithLabelValues("window_expired").Inc()
		return nil, &models.ReturnWindowExpiredError{
			OrderDate:  order.CreatedAt,
			ReturnDate: returnDate,
			Window:     s.window,
		}
	}

	ret := &models.Return{
		OrderID:      orderID,
		CustomerID:   customerID,
		ReturnDate:   returnDate,
		RefundAmount: order.Total,
		Status:       models.ReturnStatusPending,
		CreatedAt:    s.now(),
	}
	err = s.store.WithinTx(ctx, func(tx ports.Tx) error {
		return tx.InsertReturn(ctx, ret)
	})
	if err != nil {
		return nil, err
	}

	util.ReturnsRequestedTotal.Inc()
	s.logger.Info("Return requested",
		zap.Int64("return_id", ret.ID),
		zap.Int64("order_id", orderID))

	if s.events != nil {
		event := &models.ReturnRequestedEvent{
			BaseEvent: newBaseEvent(models.EventTypeReturnRequested),
			ReturnID:  ret.ID,
			OrderID:   orderID,
		}
		if err := s.events.PublishReturnRequested(ctx, event); err != nil {
			s.logger.Error("Failed to publish ReturnRequested event", zap.Error(err))
		}
	}
	return ret, nil
}

// ApproveReturn moves a pending return to approved and restores
// inventory for every item of the order, in-store orders only. The
// transition is one-shot: the prior-status guard makes a repeated call
// a no-op, so stock is never double-credited.
func (s *ReturnService) ApproveReturn(ctx context.Context, returnID int64) error {
	ctx, span := util.StartSpan(ctx, "ReturnService.ApproveReturn")
	defer span.End()

	var approved *models.Return
	var restored []models.OrderItem
	var storeID *int64
	err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
		ret, err := tx.GetReturnForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		switch ret.Status {
		case models.ReturnStatusApproved, models.ReturnStatusCompleted:
			return nil
		case models.ReturnStatusRejected:
			return &models.ReturnTransitionError{From: ret.Status, To: models.ReturnStatusApproved}
		}

		order, err := tx.GetOrderForUpdate(ctx, ret.OrderID)
		if err != nil {
			return err
		}
		if err := tx.UpdateReturnStatus(ctx, returnID, models.ReturnStatusApproved); err != nil {
			return err
		}
		if !order.InStore() {
			approved = ret
			return nil
		}

		items, err := tx.GetOrderItems(ctx, ret.OrderID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.RestoreStock(ctx, *order.StoreID, item.Item, item.Quantity); err != nil {
				return err
			}
		}
		approved = ret
		restored = items
		storeID = order.StoreID
		return nil
	})
	if err != nil {
		return err
	}
	if approved == nil {
		// Second approval call: nothing to do.
		return nil
	}

	util.ReturnsApprovedTotal.Inc()
	for _, item := range restored {
		util.InventoryRestoredTotal.Add(float64(item.Quantity))
	}
	s.logger.Info("Return approved",
		zap.Int64("return_id", returnID),
		zap.Int64("order_id", approved.OrderID),
		zap.Int("items_restored", len(restored)))

	s.syncCacheAfterRestore(ctx, storeID, restored)

	if s.events != nil {
		event := &models.ReturnApprovedEvent{
			BaseEvent: newBaseEvent(models.EventTypeReturnApproved),
			ReturnID:  returnID,
			OrderID:   approved.OrderID,
			Refund:    approved.RefundAmount,
		}
		if err := s.events.PublishReturnApproved(ctx, event); err != nil {
			s.logger.Error("Failed to publish ReturnApproved event", zap.Error(err))
		}
	}
	return nil
}

// RejectReturn moves a pending return to rejected.
func (s *ReturnService) RejectReturn(ctx context.Context, returnID int64) error {
	return s.store.WithinTx(ctx, func(tx ports.Tx) error {
		ret, err := tx.GetReturnForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		if ret.Status != models.ReturnStatusPending {
			return &models.ReturnTransitionError{From: ret.Status, To: models.ReturnStatusRejected}
		}
		return tx.UpdateReturnStatus(ctx, returnID, models.ReturnStatusRejected)
	})
}

// CompleteReturn settles an approved return.
func (s *ReturnService) CompleteReturn(ctx context.Context, returnID int64) error {
	ctx, span := util.StartSpan(ctx, "ReturnService.CompleteReturn")
	defer span.End()

	err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
		ret, err := tx.GetReturnForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		if ret.Status == models.ReturnStatusCompleted {
			return nil
		}
		if ret.Status != models.ReturnStatusApproved {
			return &models.ReturnTransitionError{From: ret.Status, To: models.ReturnStatusCompleted}
		}
		return tx.UpdateReturnStatus(ctx, returnID, models.ReturnStatusCompleted)
	})
	if err != nil {
		return err
	}

	if s.events != nil {
		event := &models.ReturnCompletedEvent{
			BaseEvent: newBaseEvent(models.EventTypeReturnCompleted),
			ReturnID:  returnID,
		}
		if err := s.events.PublishReturnCompleted(ctx, event); err != nil {
			s.logger.Error("Failed to publish ReturnCompleted event", zap.Error(err))
		}
	}
	return nil
}

// GetReturn retrieves a return by ID.
func (s *ReturnService) GetReturn(ctx context.Context, id int64) (*models.Return, error) {
	return s.store.GetReturn(ctx, id)
}

func (s *ReturnService) syncCacheAfterRestore(ctx context.Context, storeID *int64, items []models.OrderItem) {
	if s.stockCache == nil || storeID == nil {
		return
	}
	for _, item := range items {
		if err := s.stockCache.RestoreStock(ctx, *storeID, item.Item, item.Quantity); err != nil {
			s.logger.Warn("Failed to sync restore to stock cache",
				zap.Int64("store_id", *storeID),
				zap.String("item", item.Item.String()),
				zap.Error(err))
		}
	}
}
