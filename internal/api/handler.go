package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"gamestore-engine/internal/models"
	"gamestore-engine/internal/service"
	"gamestore-engine/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService     *service.OrderService
	loyaltyService   *service.LoyaltyService
	preOrderService  *service.PreOrderService
	returnService    *service.ReturnService
	inventoryService *service.InventoryService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orderService *service.OrderService,
	loyaltyService *service.LoyaltyService,
	preOrderService *service.PreOrderService,
	returnService *service.ReturnService,
	inventoryService *service.InventoryService,
) *Handler {
	return &Handler{
		orderService:     orderService,
		loyaltyService:   loyaltyService,
		preOrderService:  preOrderService,
		returnService:    returnService,
		inventoryService: inventoryService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.placeOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/process", h.markProcessing)
		v1.POST("/orders/:id/ship", h.markShipped)
		v1.POST("/orders/:id/deliver", h.markDelivered)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.POST("/orders/:id/refund", h.refundOrder)

		v1.GET("/customers/:id/loyalty", h.loyaltyBalance)
		v1.GET("/customers/:id/loyalty/history", h.loyaltyHistory)
		v1.POST("/customers/:id/loyalty/redeem", h.redeemPoints)

		v1.POST("/preorders", h.createPreOrder)
		v1.GET("/preorders/:id", h.getPreOrder)

		v1.POST("/returns", h.requestReturn)
		v1.GET("/returns/:id", h.getReturn)
		v1.POST("/returns/:id/approve", h.approveReturn)
		v1.POST("/returns/:id/reject", h.rejectReturn)
		v1.POST("/returns/:id/complete", h.completeReturn)

		v1.GET("/stores/:id/inventory", h.listInventory)
		v1.POST("/stores/:id/restock", h.restock)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// placeOrder handles order placement
func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	order, items, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

func (h *Handler) markProcessing(c *gin.Context) {
	h.orderTransition(c, h.orderService.MarkProcessing)
}

func (h *Handler) markShipped(c *gin.Context) {
	h.orderTransition(c, h.orderService.MarkShipped)
}

func (h *Handler) markDelivered(c *gin.Context) {
	h.orderTransition(c, h.orderService.MarkDelivered)
}

func (h *Handler) refundOrder(c *gin.Context) {
	h.orderTransition(c, h.orderService.RefundOrder)
}

// cancelOrder handles order cancellation with an optional reason
func (h *Handler) cancelOrder(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := h.orderService.CancelOrder(c.Request.Context(), orderID, body.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// loyaltyBalance handles loyalty balance lookup
func (h *Handler) loyaltyBalance(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}

	balance, err := h.loyaltyService.Balance(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"customer_id": customerID,
		"balance":     balance,
	})
}

// loyaltyHistory handles loyalty journal lookup
func (h *Handler) loyaltyHistory(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}

	history, err := h.loyaltyService.History(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": history})
}

// redeemPoints handles loyalty point redemption
func (h *Handler) redeemPoints(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		Points int64 `json:"points" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	discount, err := h.loyaltyService.Redeem(c.Request.Context(), customerID, body.Points)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"customer_id": customerID,
		"points":      body.Points,
		"discount":    discount,
	})
}

// createPreOrder handles pre-order creation
func (h *Handler) createPreOrder(c *gin.Context) {
	var req service.CreatePreOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	po, err := h.preOrderService.CreatePreOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, po)
}

// getPreOrder handles get pre-order by ID
func (h *Handler) getPreOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	po, err := h.preOrderService.GetPreOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

// requestReturn handles return requests
func (h *Handler) requestReturn(c *gin.Context) {
	var body struct {
		OrderID    int64 `json:"order_id" binding:"required"`
		CustomerID int64 `json:"customer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	ret, err := h.returnService.RequestReturn(c.Request.Context(), body.OrderID, body.CustomerID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ret)
}

// getReturn handles get return by ID
func (h *Handler) getReturn(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	ret, err := h.returnService.GetReturn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

func (h *Handler) approveReturn(c *gin.Context) {
	h.returnTransition(c, h.returnService.ApproveReturn, "approved")
}

func (h *Handler) rejectReturn(c *gin.Context) {
	h.returnTransition(c, h.returnService.RejectReturn, "rejected")
}

func (h *Handler) completeReturn(c *gin.Context) {
	h.returnTransition(c, h.returnService.CompleteReturn, "completed")
}

// listInventory handles per-store inventory listing
func (h *Handler) listInventory(c *gin.Context) {
	storeID, ok := pathID(c)
	if !ok {
		return
	}

	records, err := h.inventoryService.ListByStore(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": records})
}

// restock handles stock top-ups
func (h *Handler) restock(c *gin.Context) {
	storeID, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		Item         models.ItemRef `json:"item" binding:"required"`
		Quantity     int            `json:"quantity" binding:"required,min=1"`
		ReorderLevel int            `json:"reorder_level"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	err := h.inventoryService.Restock(c.Request.Context(), storeID, body.Item, body.Quantity, body.ReorderLevel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restocked"})
}

// orderTransition runs a guarded order status change and reports the
// resulting order.
func (h *Handler) orderTransition(c *gin.Context, fn func(ctx context.Context, orderID int64) error) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	if err := fn(c.Request.Context(), orderID); err != nil {
		respondError(c, err)
		return
	}

	order, _, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// returnTransition runs a guarded return status change.
func (h *Handler) returnTransition(c *gin.Context, fn func(ctx context.Context, returnID int64) error, status string) {
	returnID, ok := pathID(c)
	if !ok {
		return
	}

	if err := fn(c.Request.Context(), returnID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// pathID parses the :id path parameter.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors to HTTP statuses: not-found lookups
// to 404, lifecycle and stock conflicts to 409, business-rule denials
// to 422, everything else to 500.
func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrCustomerNotFound),
		errors.Is(err, models.ErrGameNotFound),
		errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrReturnNotFound),
		errors.Is(err, models.ErrPreOrderNotFound),
		errors.Is(err, models.ErrInventoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNoItems),
		errors.Is(err, models.ErrItemQuantityInvalid):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrMissingBirthDate),
		errors.Is(err, models.ErrUnverifiedIdentity):
		return http.StatusUnprocessableEntity
	}

	var stock *models.InsufficientStockError
	var transition *models.TransitionError
	var retTransition *models.ReturnTransitionError
	if errors.As(err, &stock) || errors.As(err, &transition) || errors.As(err, &retTransition) {
		return http.StatusConflict
	}

	var underAge *models.UnderAgeError
	var points *models.InsufficientPointsError
	var release *models.ReleaseNotFutureError
	var deposit *models.DepositTooLowError
	var window *models.ReturnWindowExpiredError
	if errors.As(err, &underAge) || errors.As(err, &points) ||
		errors.As(err, &release) || errors.As(err, &deposit) || errors.As(err, &window) {
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
