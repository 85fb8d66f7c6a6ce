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

// LoyaltyService is the only writer of loyalty balances and the
// append-only transaction journal.
type LoyaltyService struct {
	store       ports.Store
	events      ports.Events
	earnDivisor int64
	redeemRate  int64
	logger      *zap.Logger
	now         func() time.Time
}

// NewLoyaltyService creates a new loyalty service. earnDivisor is the
// currency-per-point accrual rate; redeemRate is points per discount
// currency unit.
func NewLoyaltyService(store ports.Store, events ports.Events, earnDivisor, redeemRate int64) *LoyaltyService {
	return &LoyaltyService{
		store:       store,
		events:      events,
		earnDivisor: earnDivisor,
		redeemRate:  redeemRate,
		logger:      util.GetLogger(),
		now:         time.Now,
	}
}

// AccrueInTx credits floor(orderTotal / earnDivisor) points inside the
// caller's unit of work and appends the journal row. The caller is
// responsible for invoking it at most once per order (the delivered
// transition guard).
func (s *LoyaltyService) AccrueInTx(ctx context.Context, tx ports.Tx, customerID int64, orderID *int64, orderTotal decimal.Decimal) (int64, error) {
	points := orderTotal.Div(decimal.NewFromInt(s.earnDivisor)).Floor().IntPart()
	if points <= 0 {
		return 0, nil
	}

	if err := tx.AddLoyaltyPoints(ctx, customerID, points); err != nil {
		return 0, err
	}
	lt := &models.LoyaltyTransaction{
		CustomerID:   customerID,
		OrderID:      orderID,
		PointsEarned: points,
		CreatedAt:    s.now(),
	}
	if err := tx.InsertLoyaltyTransaction(ctx, lt); err != nil {
		return 0, err
	}

	util.LoyaltyPointsEarnedTotal.Add(float64(points))
	return points, nil
}

// Redeem converts points to a discount amount (redeemRate points per
// currency unit). Fails with InsufficientPointsError when the request
// exceeds the balance; the balance is never driven negative.
func (s *LoyaltyService) Redeem(ctx context.Context, customerID, points int64) (decimal.Decimal, error) {
	ctx, span := util.StartSpan(ctx, "LoyaltyService.Redeem")
	defer span.End()

	if points <= 0 {
		return decimal.Zero, &models.InsufficientPointsError{CustomerID: customerID, Requested: points}
	}

	err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
		customer, err := tx.GetCustomerForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if customer.LoyaltyPoints < points {
			return &models.InsufficientPointsError{
				CustomerID: customerID,
				Balance:    customer.LoyaltyPoints,
				Requested:  points,
			}
		}
		if err := tx.AddLoyaltyPoints(ctx, customerID, -points); err != nil {
			return err
		}
		return tx.InsertLoyaltyTransaction(ctx, &models.LoyaltyTransaction{
			CustomerID:     customerID,
			PointsRedeemed: points,
			CreatedAt:      s.now(),
		})
	})
	if err != nil {
		util.LoyaltyRedemptionsFailedTotal.Inc()
		return decimal.Zero, err
	}

	discount := decimal.NewFromInt(points).Div(decimal.NewFromInt(s.redeemRate)).Round(2)
	util.LoyaltyPointsRedeemedTotal.Add(float64(points))
	s.logger.Info("Loyalty points redeemed",
		zap.Int64("customer_id", customerID),
		zap.Int64("points", points),
		zap.String("discount", discount.String()))

	if s.events != nil {
		event := &models.LoyaltyRedeemedEvent{
			BaseEvent:  newBaseEvent(models.EventTypeLoyaltyRedeemed),
			CustomerID: customerID,
			Points:     points,
			Discount:   discount,
		}
		if err := s.events.PublishLoyaltyRedeemed(ctx, event); err != nil {
			s.logger.Error("Failed to publish LoyaltyRedeemed event", zap.Error(err))
		}
	}
	return discount, nil
}

// History returns the customer's journal, newest first.
func (s *LoyaltyService) History(ctx context.Context, customerID int64) ([]models.LoyaltyTransaction, error) {
	if _, err := s.store.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.store.ListLoyaltyTransactions(ctx, customerID)
}

// Balance returns the customer's current point balance.
func (s *LoyaltyService) Balance(ctx context.Context, customerID int64) (int64, error) {
	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return customer.LoyaltyPoints, nil
}
