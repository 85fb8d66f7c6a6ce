package service

import (
	"context"
	"time"

	"gamestore-engine/internal/models"
	"gamestore-engine/internal/ports"
	"gamestore-engine/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PreOrderService validates and records deposits for future-dated
// releases.
type PreOrderService struct {
	store         ports.Store
	events        ports.Events
	minDepositPct decimal.Decimal
	logger        *zap.Logger
	now           func() time.Time
}

// NewPreOrderService creates a new pre-order service.
func NewPreOrderService(store ports.Store, events ports.Events, minDepositPct decimal.Decimal) *PreOrderService {
	return &PreOrderService{
		store:         store,
		events:        events,
		minDepositPct: minDepositPct,
		logger:        util.GetLogger(),
		now:           time.Now,
	}
}

// CreatePreOrderRequest is the typed input of CreatePreOrder.
type CreatePreOrderRequest struct {
	CustomerID int64           `json:"customer_id" binding:"required"`
	GameID     int64           `json:"game_id" binding:"required"`
	StoreID    *int64          `json:"store_id"`
	Quantity   int             `json:"quantity" binding:"required,min=1"`
	Deposit    decimal.Decimal `json:"deposit" binding:"required"`
	TotalPrice decimal.Decimal `json:"total_price" binding:"required"`
}

// CreatePreOrder records a deposit against a future release. The
// game's own release date is authoritative; any caller-supplied
// expectation is ignored. Fails with ReleaseNotFutureError when the
// release date is not strictly in the future, and DepositTooLowError
// below the configured floor.
func (s *PreOrderService) CreatePreOrder(ctx context.Context, req *CreatePreOrderRequest) (*models.PreOrder, error) {
	ctx, span := util.StartSpan(ctx, "PreOrderService.CreatePreOrder")
	defer span.End()

	if req.Quantity <= 0 {
		return nil, models.ErrItemQuantityInvalid
	}

	if _, err := s.store.GetCustomer(ctx, req.CustomerID); err != nil {
		return nil, err
	}
	game, err := s.store.GetGame(ctx, req.GameID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !game.ReleaseDate.After(now) {
		return nil, &models.ReleaseNotFutureError{GameID: game.ID, ReleaseDate: game.ReleaseDate}
	}

	required := req.TotalPrice.Mul(s.minDepositPct)
	if req.Deposit.LessThan(required) {
		return nil, &models.DepositTooLowError{Required: required, Actual: req.Deposit}
	}

	po := &models.PreOrder{
		CustomerID:          req.CustomerID,
		GameID:              req.GameID,
		StoreID:             req.StoreID,
		Quantity:            req.Quantity,
		DepositAmount:       req.Deposit,
		TotalPrice:          req.TotalPrice,
		ExpectedReleaseDate: game.ReleaseDate,
		CreatedAt:           now,
	}
	err = s.store.WithinTx(ctx, func(tx ports.Tx) error {
		return tx.InsertPreOrder(ctx, po)
	})
	if err != nil {
		return nil, err
	}

	util.PreOrdersCreatedTotal.Inc()
	s.logger.Info("Pre-order created",
		zap.Int64("preorder_id", po.ID),
		zap.Int64("game_id", po.GameID),
		zap.String("deposit", po.DepositAmount.String()))

	if s.events != nil {
		event := &models.PreOrderCreatedEvent{
			BaseEvent:  newBaseEvent(models.EventTypePreOrderCreated),
			PreOrderID: po.ID,
			GameID:     po.GameID,
			Deposit:    po.DepositAmount,
		}
		if err := s.events.PublishPreOrderCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish PreOrderCreated event", zap.Error(err))
		}
	}
	return po, nil
}

// FulfillDue marks every unfulfilled pre-order whose release date has
// arrived as fulfilled. Returns the number fulfilled.
func (s *PreOrderService) FulfillDue(ctx context.Context, now time.Time) (int, error) {
	ctx, span := util.StartSpan(ctx, "PreOrderService.FulfillDue")
	defer span.End()

	due, err := s.store.ListDuePreOrders(ctx, now)
	if err != nil {
		return 0, err
	}

	fulfilled := 0
	for _, po := range due {
		po := po
		err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
			return tx.MarkPreOrderFulfilled(ctx, po.ID)
		})
		if err != nil {
			s.logger.Error("Failed to fulfill pre-order",
				zap.Int64("preorder_id", po.ID),
				zap.Error(err))
			continue
		}
		fulfilled++
		util.PreOrdersFulfilledTotal.Inc()

		if s.events != nil {
			event := &models.PreOrderFulfilledEvent{
				BaseEvent:  newBaseEvent(models.EventTypePreOrderFulfilled),
				PreOrderID: po.ID,
				GameID:     po.GameID,
			}
			if err := s.events.PublishPreOrderFulfilled(ctx, event); err != nil {
				s.logger.Error("Failed to publish PreOrderFulfilled event", zap.Error(err))
			}
		}
	}

	if fulfilled > 0 {
		s.logger.Info("Pre-orders fulfilled", zap.Int("count", fulfilled))
	}
	return fulfilled, nil
}

// GetPreOrder retrieves a pre-order by ID.
func (s *PreOrderService) GetPreOrder(ctx context.Context, id int64) (*models.PreOrder, error) {
	return s.store.GetPreOrder(ctx, id)
}
