// Package memstore is an in-memory implementation of the engine's
// storage port. Transactions clone the state, mutate the clone, and
// swap it in on commit, so a failed unit of work leaves nothing behind.
// Used by the service tests; the postgres store is the production
// implementation.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"gamestore-engine/internal/models"
	"gamestore-engine/internal/ports"

	"github.com/shopspring/decimal"
)

type invKey struct {
	storeID int64
	item    models.ItemRef
}

type state struct {
	games      map[int64]models.Game
	products   map[int64]models.Product
	customers  map[int64]models.Customer
	orders     map[int64]models.Order
	orderItems map[int64][]models.OrderItem
	inventory  map[invKey]models.InventoryRecord
	preOrders  map[int64]models.PreOrder
	returns    map[int64]models.Return
	loyaltyTxs []models.LoyaltyTransaction

	nextOrderID     int64
	nextItemID      int64
	nextPreOrderID  int64
	nextReturnID    int64
	nextLoyaltyTxID int64
}

func newState() *state {
	return &state{
		games:      make(map[int64]models.Game),
		products:   make(map[int64]models.Product),
		customers:  make(map[int64]models.Customer),
		orders:     make(map[int64]models.Order),
		orderItems: make(map[int64][]models.OrderItem),
		inventory:  make(map[invKey]models.InventoryRecord),
		preOrders:  make(map[int64]models.PreOrder),
		returns:    make(map[int64]models.Return),
	}
}

func (s *state) clone() *state {
	c := &state{
		games:           make(map[int64]models.Game, len(s.games)),
		products:        make(map[int64]models.Product, len(s.products)),
		customers:       make(map[int64]models.Customer, len(s.customers)),
		orders:          make(map[int64]models.Order, len(s.orders)),
		orderItems:      make(map[int64][]models.OrderItem, len(s.orderItems)),
		inventory:       make(map[invKey]models.InventoryRecord, len(s.inventory)),
		preOrders:       make(map[int64]models.PreOrder, len(s.preOrders)),
		returns:         make(map[int64]models.Return, len(s.returns)),
		loyaltyTxs:      append([]models.LoyaltyTransaction(nil), s.loyaltyTxs...),
		nextOrderID:     s.nextOrderID,
		nextItemID:      s.nextItemID,
		nextPreOrderID:  s.nextPreOrderID,
		nextReturnID:    s.nextReturnID,
		nextLoyaltyTxID: s.nextLoyaltyTxID,
	}
	for k, v := range s.games {
		c.games[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]models.OrderItem(nil), v...)
	}
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	for k, v := range s.preOrders {
		c.preOrders[k] = v
	}
	for k, v := range s.returns {
		c.returns[k] = v
	}
	return c
}

// Store holds everything behind one mutex. Transactions serialize, which
// is exactly the isolation the postgres store gets from row locks.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{state: newState()}
}

// WithinTx runs fn against a clone of the state and swaps the clone in
// only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memTx{state: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Seed helpers, test setup only.

// AddGame inserts or replaces a catalog game.
func (s *Store) AddGame(game models.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.games[game.ID] = game
}

// AddProduct inserts or replaces a catalog product.
func (s *Store) AddProduct(product models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[product.ID] = product
}

// AddCustomer inserts or replaces a customer.
func (s *Store) AddCustomer(customer models.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.customers[customer.ID] = customer
}

// SetStock pins the (store, item) quantity exactly.
func (s *Store) SetStock(storeID int64, item models.ItemRef, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.inventory[invKey{storeID, item}] = models.InventoryRecord{
		StoreID:   storeID,
		Item:      item,
		Quantity:  qty,
		UpdatedAt: time.Now(),
	}
}

func (s *Store) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.state.games[id]
	if !ok {
		return nil, models.ErrGameNotFound
	}
	return &game, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.state.products[id]
	if !ok {
		return nil, models.ErrProductNotFound
	}
	return &product, nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.state.customers[id]
	if !ok {
		return nil, models.ErrCustomerNotFound
	}
	return &customer, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.state.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return &order, nil
}

func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OrderItem(nil), s.state.orderItems[orderID]...), nil
}

func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.state.orders {
		if order.IdempotencyKey == key {
			found := order
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) GetInventory(ctx context.Context, storeID int64, item models.ItemRef) (*models.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.inventory[invKey{storeID, item}]
	if !ok {
		return nil, models.ErrInventoryNotFound
	}
	return &rec, nil
}

func (s *Store) ListInventoryByStore(ctx context.Context, storeID int64) ([]models.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []models.InventoryRecord
	for key, rec := range s.state.inventory {
		if key.storeID == storeID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Item.Kind != records[j].Item.Kind {
			return records[i].Item.Kind < records[j].Item.Kind
		}
		return records[i].Item.ID < records[j].Item.ID
	})
	return records, nil
}

func (s *Store) GetReturn(ctx context.Context, id int64) (*models.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret, ok := s.state.returns[id]
	if !ok {
		return nil, models.ErrReturnNotFound
	}
	return &ret, nil
}

func (s *Store) GetPreOrder(ctx context.Context, id int64) (*models.PreOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.state.preOrders[id]
	if !ok {
		return nil, models.ErrPreOrderNotFound
	}
	return &po, nil
}

func (s *Store) ListDuePreOrders(ctx context.Context, now time.Time) ([]models.PreOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.PreOrder
	for _, po := range s.state.preOrders {
		if !po.IsFulfilled && !po.ExpectedReleaseDate.After(now) {
			due = append(due, po)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].ExpectedReleaseDate.Equal(due[j].ExpectedReleaseDate) {
			return due[i].ExpectedReleaseDate.Before(due[j].ExpectedReleaseDate)
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

func (s *Store) ListLoyaltyTransactions(ctx context.Context, customerID int64) ([]models.LoyaltyTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var txs []models.LoyaltyTransaction
	for _, lt := range s.state.loyaltyTxs {
		if lt.CustomerID == customerID {
			txs = append(txs, lt)
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return txs[i].ID > txs[j].ID
	})
	return txs, nil
}

func (s *Store) Restock(ctx context.Context, storeID int64, item models.ItemRef, qty, reorderLevel int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := invKey{storeID, item}
	rec, ok := s.state.inventory[key]
	if !ok {
		rec = models.InventoryRecord{StoreID: storeID, Item: item}
	}
	rec.Quantity += qty
	rec.ReorderLevel = reorderLevel
	rec.UpdatedAt = time.Now()
	s.state.inventory[key] = rec
	return nil
}

// memTx mutates a private clone; the caller swaps it in on commit.
type memTx struct {
	state *state
}

func (t *memTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	order, ok := t.state.orders[orderID]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return &order, nil
}

func (t *memTx) GetCustomerForUpdate(ctx context.Context, customerID int64) (*models.Customer, error) {
	customer, ok := t.state.customers[customerID]
	if !ok {
		return nil, models.ErrCustomerNotFound
	}
	return &customer, nil
}

func (t *memTx) GetReturnForUpdate(ctx context.Context, returnID int64) (*models.Return, error) {
	ret, ok := t.state.returns[returnID]
	if !ok {
		return nil, models.ErrReturnNotFound
	}
	return &ret, nil
}

func (t *memTx) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return append([]models.OrderItem(nil), t.state.orderItems[orderID]...), nil
}

func (t *memTx) DecrementStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error {
	key := invKey{storeID, item}
	rec, ok := t.state.inventory[key]
	if !ok || rec.Quantity < qty {
		return &models.InsufficientStockError{
			StoreID:   storeID,
			Item:      item,
			Available: rec.Quantity,
			Requested: qty,
		}
	}
	rec.Quantity -= qty
	rec.UpdatedAt = time.Now()
	t.state.inventory[key] = rec
	return nil
}

func (t *memTx) RestoreStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error {
	key := invKey{storeID, item}
	rec, ok := t.state.inventory[key]
	if !ok {
		rec = models.InventoryRecord{StoreID: storeID, Item: item}
	}
	rec.Quantity += qty
	rec.UpdatedAt = time.Now()
	t.state.inventory[key] = rec
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, order *models.Order) error {
	t.state.nextOrderID++
	order.ID = t.state.nextOrderID
	order.UpdatedAt = order.CreatedAt
	t.state.orders[order.ID] = *order
	return nil
}

func (t *memTx) InsertOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) error {
	for i := range items {
		t.state.nextItemID++
		items[i].ID = t.state.nextItemID
		items[i].OrderID = orderID
	}
	t.state.orderItems[orderID] = append(t.state.orderItems[orderID], items...)
	return nil
}

func (t *memTx) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	order, ok := t.state.orders[orderID]
	if !ok {
		return models.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	t.state.orders[orderID] = order
	return nil
}

func (t *memTx) AddLoyaltyPoints(ctx context.Context, customerID int64, delta int64) error {
	customer, ok := t.state.customers[customerID]
	if !ok {
		return models.ErrCustomerNotFound
	}
	if customer.LoyaltyPoints+delta < 0 {
		return &models.InsufficientPointsError{
			CustomerID: customerID,
			Balance:    customer.LoyaltyPoints,
			Requested:  -delta,
		}
	}
	customer.LoyaltyPoints += delta
	t.state.customers[customerID] = customer
	return nil
}

func (t *memTx) AddTotalSpent(ctx context.Context, customerID int64, amount decimal.Decimal) error {
	customer, ok := t.state.customers[customerID]
	if !ok {
		return models.ErrCustomerNotFound
	}
	customer.TotalSpent = customer.TotalSpent.Add(amount)
	t.state.customers[customerID] = customer
	return nil
}

func (t *memTx) InsertLoyaltyTransaction(ctx context.Context, lt *models.LoyaltyTransaction) error {
	t.state.nextLoyaltyTxID++
	lt.ID = t.state.nextLoyaltyTxID
	t.state.loyaltyTxs = append(t.state.loyaltyTxs, *lt)
	return nil
}

func (t *memTx) InsertPreOrder(ctx context.Context, po *models.PreOrder) error {
	t.state.nextPreOrderID++
	po.ID = t.state.nextPreOrderID
	t.state.preOrders[po.ID] = *po
	return nil
}

func (t *memTx) MarkPreOrderFulfilled(ctx context.Context, preOrderID int64) error {
	po, ok := t.state.preOrders[preOrderID]
	if !ok {
		return models.ErrPreOrderNotFound
	}
	po.IsFulfilled = true
	t.state.preOrders[preOrderID] = po
	return nil
}

func (t *memTx) InsertReturn(ctx context.Context, ret *models.Return) error {
	t.state.nextReturnID++
	ret.ID = t.state.nextReturnID
	t.state.returns[ret.ID] = *ret
	return nil
}

func (t *memTx) UpdateReturnStatus(ctx context.Context, returnID int64, status models.ReturnStatus) error {
	ret, ok := t.state.returns[returnID]
	if !ok {
		return models.ErrReturnNotFound
	}
	ret.Status = status
	t.state.returns[returnID] = ret
	return nil
}

var _ ports.Store = (*Store)(nil)
var _ ports.Tx = (*memTx)(nil)
