package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected order placements",
	}, []string{"reason"})

	OrdersDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_delivered_total",
		Help: "Total number of orders delivered",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	AgeGateDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "age_gate_denied_total",
		Help: "Total number of age gate denials",
	}, []string{"reason"})

	InventoryDecrementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_decrement_latency_seconds",
		Help:    "Latency of atomic inventory decrements",
		Buckets: prometheus.DefBuckets,
	})

	InventoryRestoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_restored_total",
		Help: "Total units restored to inventory by returns",
	})

	LoyaltyPointsEarnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_earned_total",
		Help: "Total loyalty points credited",
	})

	LoyaltyPointsRedeemedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_redeemed_total",
		Help: "Total loyalty points redeemed",
	})

	LoyaltyRedemptionsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_redemptions_failed_total",
		Help: "Total redemptions rejected for insufficient points",
	})

	ReturnsRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "returns_requested_total",
		Help: "Total return requests accepted",
	})

	ReturnsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "returns_rejected_total",
		Help: "Total return requests rejected",
	}, []string{"reason"})

	ReturnsApprovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "returns_approved_total",
		Help: "Total returns approved",
	})

	PreOrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preorders_created_total",
		Help: "Total pre-orders created",
	})

	PreOrdersFulfilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preorders_fulfilled_total",
		Help: "Total pre-orders fulfilled",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
