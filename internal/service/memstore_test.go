package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/menuboard/api/internal/database"
	"github.com/shopspring/decimal"
)

// memDB is an in-memory stand-in for Postgres. Transactions are serialized
// (as the order row lock serializes writers of one order) and a rollback
// restores the snapshot taken at Begin, so failure injection can observe
// atomicity.
type memDB struct {
	txMu sync.Mutex

	mu      sync.Mutex
	state   memState
	clock   time.Time
	failOn  map[string]error
	commits []error
	begins  int
}

type memState struct {
	orders   map[uuid.UUID]database.Order
	items    []database.OrderItem
	payments []database.Payment
}

func newMemDB() *memDB {
	return &memDB{
		state:  memState{orders: map[uuid.UUID]database.Order{}},
		clock:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		failOn: map[string]error{},
	}
}

func (s memState) clone() memState {
	c := memState{orders: make(map[uuid.UUID]database.Order, len(s.orders))}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	c.items = append([]database.OrderItem(nil), s.items...)
	c.payments = append([]database.Payment(nil), s.payments...)
	return c
}

// fail makes the next call of the named store method return err.
func (m *memDB) fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[method] = err
}

// failCommits queues errors for the next commits, in order.
func (m *memDB) failCommits(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits = append(m.commits, errs...)
}

// check must be called with mu held.
func (m *memDB) check(method string) error {
	if err, ok := m.failOn[method]; ok {
		delete(m.failOn, method)
		return err
	}
	return nil
}

func (m *memDB) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memDB) Begin(ctx context.Context) (pgx.Tx, error) {
	m.txMu.Lock()
	m.mu.Lock()
	m.begins++
	snap := m.state.clone()
	m.mu.Unlock()
	return &memTx{db: m, snapshot: snap}, nil
}

// memDB and memTx satisfy database.DBTX only so they can be passed to the
// store factory; the engine never issues raw SQL.
func (m *memDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *memDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *memDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	panic("not implemented")
}

// memTx implements pgx.Tx. The unused methods panic so we catch accidental calls.
type memTx struct {
	db       *memDB
	snapshot memState
	done     bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.db.mu.Lock()
	var err error
	if len(t.db.commits) > 0 {
		err = t.db.commits[0]
		t.db.commits = t.db.commits[1:]
	}
	if err != nil {
		t.db.state = t.snapshot
	}
	t.db.mu.Unlock()
	t.done = true
	t.db.txMu.Unlock()
	return err
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.db.mu.Lock()
	t.db.state = t.snapshot
	t.db.mu.Unlock()
	t.done = true
	t.db.txMu.Unlock()
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (t *memTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (t *memTx) Conn() *pgx.Conn { panic("not implemented") }

// memStore implements OrderStore over memDB.
type memStore struct {
	db *memDB
}

func (m *memDB) newStore(db database.DBTX) OrderStore { return &memStore{db: m} }

func activeStatus(s database.OrderStatus) bool {
	return s == database.OrderStatusPending || s == database.OrderStatusPreparing || s == database.OrderStatusReady
}

func (s *memStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("CreateOrder"); err != nil {
		return database.Order{}, err
	}
	for _, o := range s.db.state.orders {
		if o.TenantID == arg.TenantID && o.TableLabel == arg.TableLabel && activeStatus(o.Status) {
			return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_active_table_key"}
		}
	}
	now := s.db.tick()
	o := database.Order{
		ID:           uuid.New(),
		TenantID:     arg.TenantID,
		TableLabel:   arg.TableLabel,
		Status:       database.OrderStatusPending,
		TotalAmount:  arg.TotalAmount,
		CustomerNote: arg.CustomerNote,
		Revision:     1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.db.state.orders[o.ID] = o
	return o, nil
}

func (s *memStore) getOrder(method string, id, tenantID uuid.UUID) (database.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check(method); err != nil {
		return database.Order{}, err
	}
	o, ok := s.db.state.orders[id]
	if !ok || o.TenantID != tenantID {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (s *memStore) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return s.getOrder("GetOrder", arg.ID, arg.TenantID)
}

func (s *memStore) GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
	return s.getOrder("GetOrderForUpdate", arg.ID, arg.TenantID)
}

func (s *memStore) GetActiveOrderByTable(ctx context.Context, arg database.GetActiveOrderByTableParams) (database.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("GetActiveOrderByTable"); err != nil {
		return database.Order{}, err
	}
	for _, o := range s.db.state.orders {
		if o.TenantID == arg.TenantID && o.TableLabel == arg.TableLabel && activeStatus(o.Status) {
			return o, nil
		}
	}
	return database.Order{}, pgx.ErrNoRows
}

func (s *memStore) activeOrders(tenantID uuid.UUID, keep func(database.Order) bool) []database.Order {
	var out []database.Order
	for _, o := range s.db.state.orders {
		if o.TenantID == tenantID && activeStatus(o.Status) && keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memStore) ListActiveOrders(ctx context.Context, tenantID uuid.UUID) ([]database.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("ListActiveOrders"); err != nil {
		return nil, err
	}
	return s.activeOrders(tenantID, func(database.Order) bool { return true }), nil
}

func (s *memStore) ListActiveOrdersByStation(ctx context.Context, arg database.ListActiveOrdersByStationParams) ([]database.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("ListActiveOrdersByStation"); err != nil {
		return nil, err
	}
	return s.activeOrders(arg.TenantID, func(o database.Order) bool {
		for _, it := range s.db.state.items {
			if it.OrderID == o.ID && it.Station == arg.Station {
				return true
			}
		}
		return false
	}), nil
}

func (s *memStore) mutateOrder(method string, id uuid.UUID, onlyActive bool, fn func(o *database.Order)) (database.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check(method); err != nil {
		return database.Order{}, err
	}
	o, ok := s.db.state.orders[id]
	if !ok || (onlyActive && !activeStatus(o.Status)) {
		return database.Order{}, pgx.ErrNoRows
	}
	fn(&o)
	o.Revision++
	o.UpdatedAt = s.db.tick()
	s.db.state.orders[id] = o
	return o, nil
}

func (s *memStore) UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error) {
	return s.mutateOrder("UpdateOrderTotal", arg.ID, false, func(o *database.Order) { o.TotalAmount = arg.TotalAmount })
}

func (s *memStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return s.mutateOrder("UpdateOrderStatus", arg.ID, true, func(o *database.Order) { o.Status = arg.Status })
}

func (s *memStore) TouchOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return s.mutateOrder("TouchOrder", id, false, func(o *database.Order) {})
}

func (s *memStore) CompleteOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return s.mutateOrder("CompleteOrder", id, true, func(o *database.Order) {
		o.Status = database.OrderStatusCompleted
		o.IsPaid = true
		o.CompletedAt = pgtype.Timestamptz{Time: s.db.clock, Valid: true}
	})
}

func (s *memStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("CreateOrderItem"); err != nil {
		return database.OrderItem{}, err
	}
	var pos int32
	for _, it := range s.db.state.items {
		if it.OrderID == arg.OrderID && it.Position > pos {
			pos = it.Position
		}
	}
	now := s.db.tick()
	item := database.OrderItem{
		ID:        uuid.New(),
		OrderID:   arg.OrderID,
		ProductID: arg.ProductID,
		Name:      arg.Name,
		Price:     arg.Price,
		Quantity:  arg.Quantity,
		Options:   arg.Options,
		Status:    database.OrderItemStatusPending,
		Station:   arg.Station,
		Position:  pos + 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.db.state.items = append(s.db.state.items, item)
	return item, nil
}

func (s *memStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return s.ListOrderItemsByOrders(ctx, []uuid.UUID{orderID})
}

func (s *memStore) ListOrderItemsByOrders(ctx context.Context, orderIds []uuid.UUID) ([]database.OrderItem, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("ListOrderItems"); err != nil {
		return nil, err
	}
	want := map[uuid.UUID]bool{}
	for _, id := range orderIds {
		want[id] = true
	}
	var out []database.OrderItem
	for _, it := range s.db.state.items {
		if want[it.OrderID] {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderID != out[j].OrderID {
			return out[i].OrderID.String() < out[j].OrderID.String()
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (s *memStore) GetOrderItemForUpdate(ctx context.Context, arg database.GetOrderItemForUpdateParams) (database.OrderItem, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("GetOrderItemForUpdate"); err != nil {
		return database.OrderItem{}, err
	}
	for _, it := range s.db.state.items {
		if it.ID == arg.ID && it.OrderID == arg.OrderID {
			return it, nil
		}
	}
	return database.OrderItem{}, pgx.ErrNoRows
}

func (s *memStore) UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("UpdateOrderItemStatus"); err != nil {
		return database.OrderItem{}, err
	}
	for i, it := range s.db.state.items {
		if it.ID == arg.ID {
			it.Status = arg.Status
			it.UpdatedAt = s.db.tick()
			s.db.state.items[i] = it
			return it, nil
		}
	}
	return database.OrderItem{}, pgx.ErrNoRows
}

func (s *memStore) SumOrderItems(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("SumOrderItems"); err != nil {
		return pgtype.Numeric{}, err
	}
	total := decimal.Zero
	for _, it := range s.db.state.items {
		if it.OrderID == orderID {
			total = total.Add(numericToDecimal(it.Price).Mul(decimal.NewFromInt32(it.Quantity)))
		}
	}
	return decimalToNumeric(total), nil
}

func (s *memStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("CreatePayment"); err != nil {
		return database.Payment{}, err
	}
	p := database.Payment{
		ID:             uuid.New(),
		OrderID:        arg.OrderID,
		Amount:         arg.Amount,
		PaymentMethod:  arg.PaymentMethod,
		DiscountAmount: arg.DiscountAmount,
		AmountReceived: arg.AmountReceived,
		ChangeAmount:   arg.ChangeAmount,
		IsFinal:        arg.IsFinal,
		Terminal:       arg.Terminal,
		CreatedAt:      s.db.tick(),
	}
	s.db.state.payments = append(s.db.state.payments, p)
	return p, nil
}

func (s *memStore) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []database.Payment
	for _, p := range s.db.state.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (database.SumPaymentsByOrderRow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("SumPaymentsByOrder"); err != nil {
		return database.SumPaymentsByOrderRow{}, err
	}
	amount, discount := decimal.Zero, decimal.Zero
	for _, p := range s.db.state.payments {
		if p.OrderID == orderID {
			amount = amount.Add(numericToDecimal(p.Amount))
			discount = discount.Add(numericToDecimal(p.DiscountAmount))
		}
	}
	return database.SumPaymentsByOrderRow{
		TotalAmount:   decimalToNumeric(amount),
		TotalDiscount: decimalToNumeric(discount),
	}, nil
}

// --- Read helpers for assertions (bypass the engine) ---

func (m *memDB) order(id uuid.UUID) database.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.orders[id]
}

func (m *memDB) itemsOf(id uuid.UUID) []database.OrderItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.OrderItem
	for _, it := range m.state.items {
		if it.OrderID == id {
			out = append(out, it)
		}
	}
	return out
}

func (m *memDB) paymentsOf(id uuid.UUID) []database.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Payment
	for _, p := range m.state.payments {
		if p.OrderID == id {
			out = append(out, p)
		}
	}
	return out
}

// activeCount counts active orders of a table.
func (m *memDB) activeCount(tenantID uuid.UUID, table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.state.orders {
		if o.TenantID == tenantID && o.TableLabel == table && activeStatus(o.Status) {
			n++
		}
	}
	return n
}

// sneakItem inserts an item without going through the engine, to model a
// write the incremental total does not know about.
func (m *memDB) sneakItem(orderID uuid.UUID, price string, qty int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.items = append(m.state.items, database.OrderItem{
		ID:       uuid.New(),
		OrderID:  orderID,
		Name:     "sneaked",
		Price:    makeNumeric(price),
		Quantity: qty,
		Status:   database.OrderItemStatusPending,
		Station:  "Mutfak",
		Position: 999,
	})
}

// --- Catalog fake ---

type memCatalog struct {
	products   map[uuid.UUID]database.GetProductForOrderRow
	categories map[uuid.UUID]pgtype.Text
	err        error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		products:   map[uuid.UUID]database.GetProductForOrderRow{},
		categories: map[uuid.UUID]pgtype.Text{},
	}
}

// addCategory registers a category; an empty station leaves it unset.
func (c *memCatalog) addCategory(station string) uuid.UUID {
	id := uuid.New()
	c.categories[id] = pgtype.Text{String: station, Valid: station != ""}
	return id
}

func (c *memCatalog) addProduct(tenantID uuid.UUID, name, price string, categoryID *uuid.UUID) uuid.UUID {
	id := uuid.New()
	row := database.GetProductForOrderRow{ID: id, TenantID: tenantID, Name: name, Price: makeNumeric(price)}
	if categoryID != nil {
		row.CategoryID = pgtype.UUID{Bytes: *categoryID, Valid: true}
	}
	c.products[id] = row
	return id
}

func (c *memCatalog) GetProductForOrder(ctx context.Context, arg database.GetProductForOrderParams) (database.GetProductForOrderRow, error) {
	if c.err != nil {
		return database.GetProductForOrderRow{}, c.err
	}
	p, ok := c.products[arg.ID]
	if !ok || p.TenantID != arg.TenantID {
		return database.GetProductForOrderRow{}, pgx.ErrNoRows
	}
	return p, nil
}

func (c *memCatalog) GetCategoryStation(ctx context.Context, arg database.GetCategoryStationParams) (pgtype.Text, error) {
	st, ok := c.categories[arg.ID]
	if !ok {
		return pgtype.Text{}, pgx.ErrNoRows
	}
	return st, nil
}

// --- Notifier fake ---

type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
}

func (n *recordingNotifier) OrderChanged(ctx context.Context, c Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.changes))
	for i, c := range n.changes {
		out[i] = c.Kind
	}
	return out
}

var errBoom = errors.New("boom")
