package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/menuboard/api/internal/database"
	"github.com/menuboard/api/internal/enum"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxTxAttempts = 3

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pool is a connection pool: it runs plain queries and starts transactions.
// Satisfied by *pgxpool.Pool.
type Pool interface {
	TxBeginner
	database.DBTX
}

// OrderStore defines the DB methods the order engine needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	GetActiveOrderByTable(ctx context.Context, arg database.GetActiveOrderByTableParams) (database.Order, error)
	ListActiveOrders(ctx context.Context, tenantID uuid.UUID) ([]database.Order, error)
	ListActiveOrdersByStation(ctx context.Context, arg database.ListActiveOrdersByStationParams) ([]database.Order, error)
	UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	TouchOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	CompleteOrder(ctx context.Context, id uuid.UUID) (database.Order, error)

	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemsByOrders(ctx context.Context, orderIds []uuid.UUID) ([]database.OrderItem, error)
	GetOrderItemForUpdate(ctx context.Context, arg database.GetOrderItemForUpdateParams) (database.OrderItem, error)
	UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
	SumOrderItems(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)

	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
	SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (database.SumPaymentsByOrderRow, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// Change describes a committed mutation. Terminals treat it as a hint to
// re-fetch, never as a diff.
type Change struct {
	TenantID uuid.UUID
	OrderID  uuid.UUID
	Revision int32
	Kind     string
}

// Notifier receives committed changes. Implementations must not block and
// own their delivery failures.
type Notifier interface {
	OrderChanged(ctx context.Context, c Change)
}

// Actor is the tenant-scoped credential a command runs under.
type Actor struct {
	TenantID uuid.UUID
	Terminal string
	Role     string
}

// CreateOrderRequest is the input for opening a tab on a table.
type CreateOrderRequest struct {
	TableLabel   string
	CustomerNote string
	Items        []ItemInput
}

// ItemInput is a single line item. With a ProductID, an empty Name or Price
// is taken from the catalog; without one both must be given.
type ItemInput struct {
	ProductID string
	Name      string
	Price     string
	Quantity  int32
	Options   map[string]string
}

// OrderResult is an order with its items in ticket order.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService owns every write to orders, items and payments.
type OrderService struct {
	pool     Pool
	newStore NewOrderStore
	router   *ItemRouter
	notifier Notifier
	log      logrus.FieldLogger
}

// NewOrderService creates a new OrderService. notifier may be nil.
func NewOrderService(pool Pool, newStore NewOrderStore, router *ItemRouter, notifier Notifier, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		pool:     pool,
		newStore: newStore,
		router:   router,
		notifier: notifier,
		log:      log.WithField("component", "order_service"),
	}
}

// preparedItem is a validated line item ready to insert.
type preparedItem struct {
	params database.CreateOrderItemParams
	line   decimal.Decimal
}

// CreateOrder opens an order for a table that has no active order.
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (*OrderResult, error) {
	table := strings.TrimSpace(req.TableLabel)
	if table == "" {
		return nil, ErrEmptyTable
	}
	items, err := s.prepareItems(ctx, actor.TenantID, req.Items)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, pi := range items {
		total = total.Add(pi.line)
	}

	note := pgtype.Text{}
	if n := strings.TrimSpace(req.CustomerNote); n != "" {
		note = pgtype.Text{String: n, Valid: true}
	}

	var result *OrderResult
	err = s.withTx(ctx, func(store OrderStore) error {
		_, err := store.GetActiveOrderByTable(ctx, database.GetActiveOrderByTableParams{
			TenantID:   actor.TenantID,
			TableLabel: table,
		})
		if err == nil {
			return ErrConflictingActiveOrder
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("check active order: %w", err)
		}

		order, err := store.CreateOrder(ctx, database.CreateOrderParams{
			TenantID:     actor.TenantID,
			TableLabel:   table,
			CustomerNote: note,
			TotalAmount:  decimalToNumeric(total),
		})
		if err != nil {
			if isActiveTableConflict(err) {
				return ErrConflictingActiveOrder
			}
			return fmt.Errorf("create order: %w", err)
		}

		created, err := insertItems(ctx, store, order.ID, items)
		if err != nil {
			return err
		}

		order, err = s.reconcileTotal(ctx, store, order, total)
		if err != nil {
			return err
		}
		result = &OrderResult{Order: order, Items: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id": actor.TenantID,
		"order_id":  result.Order.ID,
		"table":     table,
		"terminal":  actor.Terminal,
	}).Info("order created")
	s.notify(ctx, result.Order, enum.ChangeCreated)
	return result, nil
}

// AppendItems adds line items to an active order. The new total is the locked
// current total plus the new lines, checked against a full re-sum.
func (s *OrderService) AppendItems(ctx context.Context, actor Actor, orderID uuid.UUID, inputs []ItemInput) (*OrderResult, error) {
	items, err := s.prepareItems(ctx, actor.TenantID, inputs)
	if err != nil {
		return nil, err
	}

	var result *OrderResult
	err = s.withTx(ctx, func(store OrderStore) error {
		order, err := lockActiveOrder(ctx, store, actor.TenantID, orderID)
		if err != nil {
			return err
		}

		total := numericToDecimal(order.TotalAmount)
		for _, pi := range items {
			total = total.Add(pi.line)
		}

		if _, err := insertItems(ctx, store, order.ID, items); err != nil {
			return err
		}

		order, err = s.reconcileTotal(ctx, store, order, total)
		if err != nil {
			return err
		}

		all, err := store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		result = &OrderResult{Order: order, Items: all}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, result.Order, enum.ChangeItemsAppended)
	return result, nil
}

// SetItemStatus moves one line item through pending/prepared/served.
// Re-requesting the current status changes nothing and signals nothing.
func (s *OrderService) SetItemStatus(ctx context.Context, actor Actor, orderID, itemID uuid.UUID, status string) (*OrderResult, error) {
	target := database.OrderItemStatus(status)
	if !target.Valid() {
		return nil, ErrInvalidStatus
	}
	if target == database.OrderItemStatusServed && actor.Role == enum.RoleStation {
		return nil, ErrServedByStation
	}

	var result *OrderResult
	changed := false
	err := s.withTx(ctx, func(store OrderStore) error {
		changed = false
		order, err := lockActiveOrder(ctx, store, actor.TenantID, orderID)
		if err != nil {
			return err
		}

		item, err := store.GetOrderItemForUpdate(ctx, database.GetOrderItemForUpdateParams{
			ID:      itemID,
			OrderID: order.ID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrItemNotFound
			}
			return fmt.Errorf("get order item: %w", err)
		}

		if item.Status != target {
			if err := validateItemTransition(item.Status, target); err != nil {
				return err
			}
			if _, err := store.UpdateOrderItemStatus(ctx, database.UpdateOrderItemStatusParams{
				ID:     item.ID,
				Status: target,
			}); err != nil {
				return fmt.Errorf("update item status: %w", err)
			}
			order, err = store.TouchOrder(ctx, order.ID)
			if err != nil {
				return fmt.Errorf("touch order: %w", err)
			}
			changed = true
		}

		items, err := store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		result = &OrderResult{Order: order, Items: items}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.notify(ctx, result.Order, enum.ChangeItemStatus)
	}
	return result, nil
}

// SetOrderStatus applies a terminal-requested order status change.
func (s *OrderService) SetOrderStatus(ctx context.Context, actor Actor, orderID uuid.UUID, status string) (*OrderResult, error) {
	target := database.OrderStatus(status)
	if !target.Valid() {
		return nil, ErrInvalidStatus
	}
	if target == database.OrderStatusCompleted {
		return nil, ErrCompleteViaPay
	}

	var result *OrderResult
	changed := false
	err := s.withTx(ctx, func(store OrderStore) error {
		changed = false
		order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{
			ID:       orderID,
			TenantID: actor.TenantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		if order.Status != target {
			if err := validateStatusTransition(order.Status, target); err != nil {
				return err
			}
			order, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
				ID:     order.ID,
				Status: target,
			})
			if err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
			changed = true
		}

		items, err := store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		result = &OrderResult{Order: order, Items: items}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.WithFields(logrus.Fields{
			"tenant_id": actor.TenantID,
			"order_id":  orderID,
			"status":    target,
			"terminal":  actor.Terminal,
		}).Info("order status changed")
		s.notify(ctx, result.Order, enum.ChangeOrderStatus)
	}
	return result, nil
}

// GetOrder returns any order of the tenant, active or not.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderResult, error) {
	store := s.newStore(s.pool)
	order, err := store.GetOrder(ctx, database.GetOrderParams{ID: orderID, TenantID: actor.TenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &OrderResult{Order: order, Items: items}, nil
}

// GetActiveOrderForTable returns the open tab of a table.
func (s *OrderService) GetActiveOrderForTable(ctx context.Context, actor Actor, table string) (*OrderResult, error) {
	store := s.newStore(s.pool)
	order, err := store.GetActiveOrderByTable(ctx, database.GetActiveOrderByTableParams{
		TenantID:   actor.TenantID,
		TableLabel: strings.TrimSpace(table),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveOrder
		}
		return nil, fmt.Errorf("get active order: %w", err)
	}
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &OrderResult{Order: order, Items: items}, nil
}

// ListActiveOrders returns the tenant's open orders, oldest first. With a
// station, only orders that have an item routed there are listed, each
// carrying only those items.
func (s *OrderService) ListActiveOrders(ctx context.Context, actor Actor, station string) ([]OrderResult, error) {
	store := s.newStore(s.pool)
	station = strings.TrimSpace(station)

	var orders []database.Order
	var err error
	if station == "" {
		orders, err = store.ListActiveOrders(ctx, actor.TenantID)
	} else {
		orders, err = store.ListActiveOrdersByStation(ctx, database.ListActiveOrdersByStationParams{
			TenantID: actor.TenantID,
			Station:  station,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	if len(orders) == 0 {
		return []OrderResult{}, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := store.ListOrderItemsByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	byOrder := make(map[uuid.UUID][]database.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}

	results := make([]OrderResult, 0, len(orders))
	for _, o := range orders {
		its := byOrder[o.ID]
		if station != "" {
			its = FilterByStation(its, station)
		}
		if its == nil {
			its = []database.OrderItem{}
		}
		results = append(results, OrderResult{Order: o, Items: its})
	}
	return results, nil
}

// --- Transaction plumbing ---

// withTx runs fn in a transaction, retrying serialization failures and
// deadlocks. fn must be safe to run more than once.
func (s *OrderService) withTx(ctx context.Context, fn func(store OrderStore) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
		s.log.WithError(err).WithField("attempt", attempt+1).Warn("retrying transaction")
	}
	return lastErr
}

func (s *OrderService) runTx(ctx context.Context, fn func(store OrderStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isRetryable reports serialization_failure and deadlock_detected.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// isActiveTableConflict checks for a unique violation on the one-active-order-
// per-table index (pgconn error code 23505).
func isActiveTableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_active_table_key"
	}
	return false
}

// lockActiveOrder takes the order row lock and rejects closed orders.
func lockActiveOrder(ctx context.Context, store OrderStore, tenantID, orderID uuid.UUID) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{
		ID:       orderID,
		TenantID: tenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("lock order: %w", err)
	}
	if !isActive(order.Status) {
		return database.Order{}, ErrOrderNotActive
	}
	return order, nil
}

// reconcileTotal writes the total derived from the store's item rows. A
// difference from the incrementally computed value is logged as drift.
func (s *OrderService) reconcileTotal(ctx context.Context, store OrderStore, order database.Order, incremental decimal.Decimal) (database.Order, error) {
	summed, err := store.SumOrderItems(ctx, order.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("sum order items: %w", err)
	}
	total := numericToDecimal(summed)
	if !total.Equal(incremental.Round(2)) {
		s.log.WithFields(logrus.Fields{
			"order_id":    order.ID,
			"incremental": incremental.StringFixed(2),
			"summed":      total.StringFixed(2),
		}).Warn("order total drift")
	}

	updated, err := store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{
		ID:          order.ID,
		TotalAmount: decimalToNumeric(total),
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update order total: %w", err)
	}
	return updated, nil
}

func insertItems(ctx context.Context, store OrderStore, orderID uuid.UUID, items []preparedItem) ([]database.OrderItem, error) {
	created := make([]database.OrderItem, 0, len(items))
	for _, pi := range items {
		pi.params.OrderID = orderID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, item)
	}
	return created, nil
}

// prepareItems validates inputs and snapshots name, price and station. It
// runs before the transaction so catalog reads never hold the order lock.
func (s *OrderService) prepareItems(ctx context.Context, tenantID uuid.UUID, inputs []ItemInput) ([]preparedItem, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyItems
	}

	items := make([]preparedItem, 0, len(inputs))
	for i, in := range inputs {
		if in.Quantity < 1 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		name := strings.TrimSpace(in.Name)
		station := s.router.DefaultStation()
		productID := pgtype.UUID{}
		var price decimal.Decimal
		havePrice := false

		if in.Price != "" {
			p, err := decimal.NewFromString(in.Price)
			if err != nil || p.IsNegative() {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidPrice)
			}
			price = p.Round(2)
			havePrice = true
		}

		if in.ProductID != "" {
			pid, err := uuid.Parse(in.ProductID)
			if err != nil {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
			}
			info := s.router.Lookup(ctx, tenantID, pid)
			station = info.Station
			if info.Found {
				productID = pgtype.UUID{Bytes: pid, Valid: true}
				if name == "" {
					name = info.Name
				}
				if !havePrice {
					price = info.Price
					havePrice = true
				}
			}
		}

		if name == "" {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMissingItemName)
		}
		if !havePrice {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidPrice)
		}

		options := in.Options
		if options == nil {
			options = map[string]string{}
		}
		optJSON, err := json.Marshal(options)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: encode options: %w", i, err)
		}

		items = append(items, preparedItem{
			params: database.CreateOrderItemParams{
				ProductID: productID,
				Name:      name,
				Price:     decimalToNumeric(price),
				Quantity:  in.Quantity,
				Options:   optJSON,
				Station:   station,
			},
			line: price.Mul(decimal.NewFromInt32(in.Quantity)),
		})
	}
	return items, nil
}

func (s *OrderService) notify(ctx context.Context, order database.Order, kind string) {
	if s.notifier == nil {
		return
	}
	s.notifier.OrderChanged(ctx, Change{
		TenantID: order.TenantID,
		OrderID:  order.ID,
		Revision: order.Revision,
		Kind:     kind,
	})
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// NumericToDecimal is exported for handlers that render money fields.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal { return numericToDecimal(n) }
