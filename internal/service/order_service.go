package service

import (
	"context"
	"fmt"
	"time"

	"gamestore-engine/internal/models"
	"gamestore-engine/internal/ports"
	"gamestore-engine/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService orchestrates order placement and the order status
// lifecycle. It is the only writer of Order and OrderItem rows.
type OrderService struct {
	store      ports.Store
	stockCache ports.StockCache
	events     ports.Events
	loyalty    *LoyaltyService
	taxRate    decimal.Decimal
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrderService creates a new order service. stockCache and events
// may be nil; both are best-effort side channels.
func NewOrderService(store ports.Store, stockCache ports.StockCache, events ports.Events, loyalty *LoyaltyService, taxRate decimal.Decimal) *OrderService {
	return &OrderService{
		store:      store,
		stockCache: stockCache,
		events:     events,
		loyalty:    loyalty,
		taxRate:    taxRate,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// ItemRequest is one requested order line.
type ItemRequest struct {
	Item     models.ItemRef  `json:"item" binding:"required"`
	Quantity int             `json:"quantity" binding:"required,min=1"`
	Discount decimal.Decimal `json:"discount"`
}

// PlaceOrderRequest is the typed input of PlaceOrder. StoreID nil means
// an online order; inventory checks are skipped for those.
type PlaceOrderRequest struct {
	CustomerID     int64           `json:"customer_id" binding:"required"`
	StoreID        *int64          `json:"store_id"`
	PaymentMethod  string          `json:"payment_method" binding:"required"`
	Discount       decimal.Decimal `json:"discount"`
	Items          []ItemRequest   `json:"items" binding:"required,min=1"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// PlaceOrder validates every line against the inventory ledger and the
// age gate, computes totals, and commits order, items and inventory
// decrements in one atomic unit of work. Any rule violation aborts the
// whole order; nothing is persisted.
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	if req.IdempotencyKey != "" {
		existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("order_id", existing.ID))
			return existing, nil
		}
	}

	customer, err := s.store.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("customer_not_found").Inc()
		return nil, err
	}

	lines, err := s.buildLines(ctx, customer, req)
	if err != nil {
		return nil, err
	}

	if req.StoreID != nil {
		if err := s.checkAvailability(ctx, *req.StoreID, lines); err != nil {
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, err
		}
	}

	order := s.priceOrder(req, lines)

	start := time.Now()
	err = s.store.WithinTx(ctx, func(tx ports.Tx) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		for i := range lines {
			lines[i].OrderID = order.ID
		}
		if err := tx.InsertOrderItems(ctx, order.ID, lines); err != nil {
			return fmt.Errorf("failed to insert order items: %w", err)
		}
		if req.StoreID == nil {
			return nil
		}
		// Re-validated decrement: the loser of a concurrent race on the
		// last unit fails here and the whole order rolls back.
		for _, line := range lines {
			if err := tx.DecrementStock(ctx, *req.StoreID, line.Item, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	util.InventoryDecrementLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("commit_failed").Inc()
		return nil, err
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", order.CustomerID),
		zap.String("total", order.Total.String()))

	s.syncCacheAfterDecrement(ctx, req.StoreID, lines)
	s.publishOrderPlaced(ctx, order, lines)

	return order, nil
}

// buildLines resolves catalog prices, validates quantities, and runs
// the age gate over every game line.
func (s *OrderService) buildLines(ctx context.Context, customer *models.Customer, req *PlaceOrderRequest) ([]models.OrderItem, error) {
	if len(req.Items) == 0 {
		return nil, models.ErrNoItems
	}

	now := s.now()
	lines := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, models.ErrItemQuantityInvalid
		}

		var unitPrice decimal.Decimal
		switch item.Item.Kind {
		case models.ItemKindGame:
			game, err := s.store.GetGame(ctx, item.Item.ID)
			if err != nil {
				return nil, err
			}
			if err := EvaluateAgeGate(game.Rating, customer.DateOfBirth, customer.AgeVerified, now); err != nil {
				util.AgeGateDeniedTotal.WithLabelValues(denialReason(err)).Inc()
				util.OrdersFailedTotal.WithLabelValues("age_gate").Inc()
				s.logger.Info("Age gate denied order",
					zap.Int64("customer_id", customer.ID),
					zap.Int64("game_id", game.ID),
					zap.String("rating", string(game.Rating)),
					zap.Error(err))
				return nil, err
			}
			unitPrice = game.Price
		case models.ItemKindProduct:
			product, err := s.store.GetProduct(ctx, item.Item.ID)
			if err != nil {
				return nil, err
			}
			unitPrice = product.Price
		default:
			return nil, fmt.Errorf("unknown item kind %q", item.Item.Kind)
		}

		lines = append(lines, models.OrderItem{
			Item:      item.Item,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
			Discount:  item.Discount,
			LineTotal: lineTotal(unitPrice, item.Quantity, item.Discount),
		})
	}
	return lines, nil
}

// checkAvailability is the pre-commit read; the cache answers first,
// the store on a miss. The authoritative check still happens inside
// the transaction.
func (s *OrderService) checkAvailability(ctx context.Context, storeID int64, lines []models.OrderItem) error {
	for _, line := range lines {
		if s.stockCache != nil {
			enough, known, err := s.stockCache.CheckStock(ctx, storeID, line.Item, line.Quantity)
			if err == nil && known {
				if !enough {
					return s.insufficientStock(ctx, storeID, line)
				}
				continue
			}
			if err != nil {
				s.logger.Warn("Stock cache check failed, falling back to store",
					zap.Int64("store_id", storeID),
					zap.String("item", line.Item.String()),
					zap.Error(err))
			}
		}

		rec, err := s.store.GetInventory(ctx, storeID, line.Item)
		if err != nil {
			if err == models.ErrInventoryNotFound {
				return &models.InsufficientStockError{
					StoreID:   storeID,
					Item:      line.Item,
					Available: 0,
					Requested: line.Quantity,
				}
			}
			return err
		}
		if rec.Quantity < line.Quantity {
			return &models.InsufficientStockError{
				StoreID:   storeID,
				Item:      line.Item,
				Available: rec.Quantity,
				Requested: line.Quantity,
			}
		}
	}
	return nil
}

func (s *OrderService) insufficientStock(ctx context.Context, storeID int64, line models.OrderItem) error {
	available := 0
	if rec, err := s.store.GetInventory(ctx, storeID, line.Item); err == nil {
		available = rec.Quantity
	}
	return &models.InsufficientStockError{
		StoreID:   storeID,
		Item:      line.Item,
		Available: available,
		Requested: line.Quantity,
	}
}

// priceOrder computes subtotal, tax, and total, rounded to two decimal
// places with standard rounding.
func (s *OrderService) priceOrder(req *PlaceOrderRequest, lines []models.OrderItem) *models.Order {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal)
	}
	subtotal = subtotal.Round(2)

	discounted := subtotal.Sub(req.Discount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	tax := discounted.Mul(s.taxRate).Round(2)
	total := discounted.Add(tax).Round(2)

	now := s.now()
	return &models.Order{
		CustomerID:     req.CustomerID,
		StoreID:        req.StoreID,
		Status:         models.OrderStatusPending,
		Subtotal:       subtotal,
		Tax:            tax,
		Discount:       req.Discount,
		Total:          total,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// lineTotal is unit price times quantity minus the line discount,
// floored at zero.
func lineTotal(unitPrice decimal.Decimal, qty int, discount decimal.Decimal) decimal.Decimal {
	total := unitPrice.Mul(decimal.NewFromInt(int64(qty))).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero.Round(2)
	}
	return total.Round(2)
}

// MarkProcessing moves an order from pending to processing.
func (s *OrderService) MarkProcessing(ctx context.Context, orderID int64) error {
	return s.transition(ctx, orderID, models.OrderStatusProcessing)
}

// MarkShipped moves an order to shipped.
func (s *OrderService) MarkShipped(ctx context.Context, orderID int64) error {
	return s.transition(ctx, orderID, models.OrderStatusShipped)
}

// MarkDelivered moves an order to delivered and credits loyalty points.
// Idempotent: a second call on a delivered order is a no-op, and the
// transition guard makes the accrual fire exactly once per order.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkDelivered")
	defer span.End()

	var delivered *models.Order
	var points int64
	err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == models.OrderStatusDelivered {
			return nil
		}
		if !models.CanTransition(order.Status, models.OrderStatusDelivered) {
			return &models.TransitionError{From: order.Status, To: models.OrderStatusDelivered}
		}
		if err := tx.UpdateOrderStatus(ctx, orderID, models.OrderStatusDelivered); err != nil {
			return err
		}

		points, err = s.loyalty.AccrueInTx(ctx, tx, order.CustomerID, &order.ID, order.Total)
		if err != nil {
			return err
		}
		if err := tx.AddTotalSpent(ctx, order.CustomerID, order.Total); err != nil {
			return err
		}
		delivered = order
		return nil
	})
	if err != nil {
		return err
	}
	if delivered == nil {
		// Already delivered; accrual must not fire again.
		return nil
	}

	util.OrdersDeliveredTotal.Inc()
	s.logger.Info("Order delivered",
		zap.Int64("order_id", orderID),
		zap.Int64("points_earned", points))

	if s.events != nil {
		event := &models.OrderDeliveredEvent{
			BaseEvent:    newBaseEvent(models.EventTypeOrderDelivered),
			OrderID:      orderID,
			CustomerID:   delivered.CustomerID,
			PointsEarned: points,
		}
		if err := s.events.PublishOrderDelivered(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderDelivered event", zap.Error(err))
		}
	}
	return nil
}

// CancelOrder cancels a pending or processing order.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64, reason string) error {
	if err := s.transition(ctx, orderID, models.OrderStatusCancelled); err != nil {
		return err
	}

	util.OrdersCancelledTotal.Inc()
	if s.events != nil {
		event := &models.OrderCancelledEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderCancelled),
			OrderID:   orderID,
			Reason:    reason,
		}
		if err := s.events.PublishOrderCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
		}
	}
	return nil
}

// RefundOrder marks a delivered order refunded. Inventory restoration
// goes through the return flow, not here.
func (s *OrderService) RefundOrder(ctx context.Context, orderID int64) error {
	if err := s.transition(ctx, orderID, models.OrderStatusRefunded); err != nil {
		return err
	}

	if s.events != nil {
		event := &models.OrderRefundedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderRefunded),
			OrderID:   orderID,
		}
		if err := s.events.PublishOrderRefunded(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderRefunded event", zap.Error(err))
		}
	}
	return nil
}

// transition applies a guarded one-directional status change.
func (s *OrderService) transition(ctx context.Context, orderID int64, to models.OrderStatus) error {
	return s.store.WithinTx(ctx, func(tx ports.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !models.CanTransition(order.Status, to) {
			return &models.TransitionError{From: order.Status, To: to}
		}
		return tx.UpdateOrderStatus(ctx, orderID, to)
	})
}

// GetOrder retrieves an order and its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

func (s *OrderService) syncCacheAfterDecrement(ctx context.Context, storeID *int64, lines []models.OrderItem) {
	if s.stockCache == nil || storeID == nil {
		return
	}
	for _, line := range lines {
		if err := s.stockCache.DecrementStock(ctx, *storeID, line.Item, line.Quantity); err != nil {
			s.logger.Warn("Failed to sync decrement to stock cache",
				zap.Int64("store_id", *storeID),
				zap.String("item", line.Item.String()),
				zap.Error(err))
		}
	}
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *models.Order, lines []models.OrderItem) {
	if s.events == nil {
		return
	}
	items := make([]models.OrderItemData, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItemData{
			Item:      line.Item,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	event := &models.OrderPlacedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderPlaced),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		StoreID:    order.StoreID,
		Total:      order.Total,
		Items:      items,
	}
	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func denialReason(err error) string {
	switch err {
	case models.ErrMissingBirthDate:
		return "missing_birth_date"
	case models.ErrUnverifiedIdentity:
		return "unverified_identity"
	default:
		return "under_age"
	}
}
