package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/menuboard/api/internal/database"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type testEnv struct {
	db       *memDB
	catalog  *memCatalog
	notifier *recordingNotifier
	svc      *OrderService
	tenant   uuid.UUID
	pos      Actor
	station  Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newMemDB()
	catalog := newMemCatalog()
	notifier := &recordingNotifier{}
	log := quietLogger()
	router := NewItemRouter(catalog, "Mutfak", log)
	tenant := uuid.New()
	return &testEnv{
		db:       db,
		catalog:  catalog,
		notifier: notifier,
		svc:      NewOrderService(db, db.newStore, router, notifier, log),
		tenant:   tenant,
		pos:      Actor{TenantID: tenant, Terminal: "pos-1", Role: "POS"},
		station:  Actor{TenantID: tenant, Terminal: "bar-tablet", Role: "STATION"},
	}
}

func adHoc(name, price string, qty int32) ItemInput {
	return ItemInput{Name: name, Price: price, Quantity: qty}
}

// itemSum re-sums price*quantity straight from the store.
func itemSum(items []database.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(numericToDecimal(it.Price).Mul(decimal.NewFromInt32(it.Quantity)))
	}
	return sum
}

func (e *testEnv) open(t *testing.T, table string, items ...ItemInput) *OrderResult {
	t.Helper()
	res, err := e.svc.CreateOrder(context.Background(), e.pos, CreateOrderRequest{TableLabel: table, Items: items})
	require.NoError(t, err)
	return res
}

// =====================
// CreateOrder
// =====================

func TestCreateOrder_Validation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		req  CreateOrderRequest
		want error
	}{
		{"empty table", CreateOrderRequest{TableLabel: "  ", Items: []ItemInput{adHoc("Kola", "20", 1)}}, ErrEmptyTable},
		{"no items", CreateOrderRequest{TableLabel: "5"}, ErrEmptyItems},
		{"zero quantity", CreateOrderRequest{TableLabel: "5", Items: []ItemInput{adHoc("Kola", "20", 0)}}, ErrInvalidQuantity},
		{"negative price", CreateOrderRequest{TableLabel: "5", Items: []ItemInput{adHoc("Kola", "-1", 1)}}, ErrInvalidPrice},
		{"garbage price", CreateOrderRequest{TableLabel: "5", Items: []ItemInput{adHoc("Kola", "abc", 1)}}, ErrInvalidPrice},
		{"missing name", CreateOrderRequest{TableLabel: "5", Items: []ItemInput{adHoc("", "20", 1)}}, ErrMissingItemName},
		{"bad product id", CreateOrderRequest{TableLabel: "5", Items: []ItemInput{{ProductID: "nope", Quantity: 1}}}, ErrInvalidProductID},
		{"unknown product without name", CreateOrderRequest{TableLabel: "5", Items: []ItemInput{{ProductID: uuid.NewString(), Quantity: 1}}}, ErrMissingItemName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateOrder(context.Background(), env.pos, tt.req)
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, env.db.begins, "validation must fail before any transaction")
}

func TestCreateOrder_TotalFromItems(t *testing.T) {
	env := newTestEnv(t)
	res := env.open(t, "5", adHoc("Kola", "20", 2))

	assert.True(t, numericEquals(res.Order.TotalAmount, "40"), "total: got %s", numericToDecimal(res.Order.TotalAmount))
	assert.Equal(t, database.OrderStatusPending, res.Order.Status)
	assert.False(t, res.Order.IsPaid)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Mutfak", res.Items[0].Station)
	assert.False(t, res.Items[0].ProductID.Valid)
	assert.JSONEq(t, `{}`, string(res.Items[0].Options))
	assert.Equal(t, []string{"created"}, env.notifier.kinds())
}

func TestCreateOrder_CatalogSnapshot(t *testing.T) {
	env := newTestEnv(t)
	bar := env.catalog.addCategory("Bar")
	raki := env.catalog.addProduct(env.tenant, "Rakı", "120.00", &bar)

	res := env.open(t, "7", ItemInput{
		ProductID: raki.String(),
		Quantity:  2,
		Options:   map[string]string{"Buz": "Ayrı"},
	})

	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.Equal(t, "Rakı", item.Name)
	assert.True(t, numericEquals(item.Price, "120"))
	assert.Equal(t, "Bar", item.Station)
	assert.True(t, item.ProductID.Valid)
	assert.Equal(t, raki, uuid.UUID(item.ProductID.Bytes))
	assert.JSONEq(t, `{"Buz":"Ayrı"}`, string(item.Options))
	assert.True(t, numericEquals(res.Order.TotalAmount, "240"))
}

func TestCreateOrder_SuppliedPriceWinsOverCatalog(t *testing.T) {
	env := newTestEnv(t)
	p := env.catalog.addProduct(env.tenant, "Çay", "15.00", nil)

	res := env.open(t, "7", ItemInput{ProductID: p.String(), Name: "Çay (büyük)", Price: "25", Quantity: 1})

	assert.Equal(t, "Çay (büyük)", res.Items[0].Name)
	assert.True(t, numericEquals(res.Items[0].Price, "25"))
	assert.Equal(t, "Mutfak", res.Items[0].Station, "product without category routes to the default station")
}

func TestCreateOrder_UnknownProductFallsBackToDefaultStation(t *testing.T) {
	env := newTestEnv(t)
	res := env.open(t, "7", ItemInput{ProductID: uuid.NewString(), Name: "Eski ürün", Price: "30", Quantity: 1})

	assert.Equal(t, "Mutfak", res.Items[0].Station)
	assert.False(t, res.Items[0].ProductID.Valid, "dangling product reference is not stored")
}

func TestCreateOrder_CatalogErrorStillRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.err = errBoom

	res := env.open(t, "7", ItemInput{ProductID: uuid.NewString(), Name: "Su", Price: "10", Quantity: 1})
	assert.Equal(t, "Mutfak", res.Items[0].Station)
}

func TestCreateOrder_ConflictingActiveOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.open(t, "5", adHoc("Kola", "20", 1))

	_, err := env.svc.CreateOrder(ctx, env.pos, CreateOrderRequest{TableLabel: "5", Items: []ItemInput{adHoc("Su", "10", 1)}})
	require.ErrorIs(t, err, ErrConflictingActiveOrder)

	// another table and another tenant are unaffected
	env.open(t, "6", adHoc("Su", "10", 1))
	other := Actor{TenantID: uuid.New(), Terminal: "pos-x", Role: "POS"}
	_, err = env.svc.CreateOrder(ctx, other, CreateOrderRequest{TableLabel: "5", Items: []ItemInput{adHoc("Su", "10", 1)}})
	require.NoError(t, err)

	// once the tab is closed the table can be reopened
	_, err = env.svc.SetOrderStatus(ctx, env.pos, first.Order.ID, "cancelled")
	require.NoError(t, err)
	env.open(t, "5", adHoc("Su", "10", 1))
	assert.Equal(t, 1, env.db.activeCount(env.tenant, "5"))
}

func TestCreateOrder_UniqueIndexBackstop(t *testing.T) {
	env := newTestEnv(t)
	env.open(t, "5", adHoc("Kola", "20", 1))

	// the pre-check misses the existing order; the index must still catch it
	env.db.fail("GetActiveOrderByTable", pgx.ErrNoRows)
	_, err := env.svc.CreateOrder(context.Background(), env.pos, CreateOrderRequest{TableLabel: "5", Items: []ItemInput{adHoc("Su", "10", 1)}})

	require.ErrorIs(t, err, ErrConflictingActiveOrder)
	assert.Equal(t, 1, env.db.activeCount(env.tenant, "5"))
}

func TestCreateOrder_ConcurrentSameTable(t *testing.T) {
	env := newTestEnv(t)
	const workers = 8

	var g errgroup.Group
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			_, err := env.svc.CreateOrder(context.Background(), env.pos, CreateOrderRequest{
				TableLabel: "12",
				Items:      []ItemInput{adHoc("Kola", "20", 1)},
			})
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrConflictingActiveOrder)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, env.db.activeCount(env.tenant, "12"))
}

func TestCreateOrder_RollsBackOnItemFailure(t *testing.T) {
	env := newTestEnv(t)
	env.db.fail("CreateOrderItem", errBoom)

	_, err := env.svc.CreateOrder(context.Background(), env.pos, CreateOrderRequest{TableLabel: "5", Items: []ItemInput{adHoc("Kola", "20", 1)}})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, env.db.activeCount(env.tenant, "5"))
	assert.Empty(t, env.notifier.kinds())
}

// =====================
// AppendItems
// =====================

func TestAppendItems_TotalMatchesResum(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.open(t, "5", adHoc("Kola", "20", 2))

	res, err := env.svc.AppendItems(ctx, env.pos, res.Order.ID, []ItemInput{adHoc("Su", "10", 1)})
	require.NoError(t, err)
	assert.True(t, numericEquals(res.Order.TotalAmount, "50"))

	res, err = env.svc.AppendItems(ctx, env.pos, res.Order.ID, []ItemInput{adHoc("Lahmacun", "45.50", 3), adHoc("Ayran", "12.25", 2)})
	require.NoError(t, err)

	stored := env.db.itemsOf(res.Order.ID)
	require.Len(t, stored, 4)
	assert.True(t, itemSum(stored).Equal(numericToDecimal(res.Order.TotalAmount)),
		"total %s != re-sum %s", numericToDecimal(res.Order.TotalAmount), itemSum(stored))
	assert.True(t, numericEquals(res.Order.TotalAmount, "211"))

	// ticket order is insertion order
	for i, it := range res.Items {
		assert.Equal(t, int32(i+1), it.Position)
	}
	assert.Equal(t, []string{"created", "items_appended", "items_appended"}, env.notifier.kinds())
}

func TestAppendItems_ResumWinsOnDrift(t *testing.T) {
	env := newTestEnv(t)
	res := env.open(t, "5", adHoc("Kola", "20", 2))
	env.db.sneakItem(res.Order.ID, "5", 1)

	res, err := env.svc.AppendItems(context.Background(), env.pos, res.Order.ID, []ItemInput{adHoc("Su", "10", 1)})
	require.NoError(t, err)
	assert.True(t, numericEquals(res.Order.TotalAmount, "55"), "got %s", numericToDecimal(res.Order.TotalAmount))
}

func TestAppendItems_ClosedOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.open(t, "5", adHoc("Kola", "20", 1))
	_, err := env.svc.SetOrderStatus(ctx, env.pos, res.Order.ID, "cancelled")
	require.NoError(t, err)

	_, err = env.svc.AppendItems(ctx, env.pos, res.Order.ID, []ItemInput{adHoc("Su", "10", 1)})
	require.ErrorIs(t, err, ErrOrderNotActive)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, env.db.itemsOf(res.Order.ID), 1)
}

func TestAppendItems_OtherTenantNotFound(t *testing.T) {
	env := newTestEnv(t)
	res := env.open(t, "5", adHoc("Kola", "20", 1))
	other := Actor{TenantID: uuid.New(), Role: "POS"}

	_, err := env.svc.AppendItems(context.Background(), other, res.Order.ID, []ItemInput{adHoc("Su", "10", 1)})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAppendItems_RollsBackWhenTotalWriteFails(t *testing.T) {
	env := newTestEnv(t)
	res := env.open(t, "5", adHoc("Kola", "20", 2))
	env.db.fail("UpdateOrderTotal", errBoom)

	_, err := env.svc.AppendItems(context.Background(), env.pos, res.Order.ID, []ItemInput{adHoc("Su", "10", 1)})
	require.Error(t, err)

	assert.Len(t, env.db.itemsOf(res.Order.ID), 1, "item insert must not survive a failed total write")
	assert.True(t, numericEquals(env.db.order(res.Order.ID).TotalAmount, "40"))
}

func TestAppendItems_ConcurrentNoLostUpdate(t *testing.T) {
	env := newTestEnv(t)
	res := env.open(t, "5", adHoc("Kola", "20", 2))
	const workers = 10

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			_, err := env.svc.AppendItems(context.Background(), env.pos, res.Order.ID, []ItemInput{
				adHoc(fmt.Sprintf("Su %d", i), "10", 1),
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	items := env.db.itemsOf(res.Order.ID)
	require.Len(t, items, workers+1)
	order := env.db.order(res.Order.ID)
	assert.True(t, numericEquals(order.TotalAmount, "140"), "got %s", numericToDecimal(order.TotalAmount))
	assert.True(t, itemSum(items).Equal(numericToDecimal(order.TotalAmount)))

	positions := map[int32]bool{}
	for _, it := range items {
		assert.False(t, positions[it.Position], "duplicate position %d", it.Position)
		positions[it.Position] = true
	}
}

func TestAppendItems_ConcurrentWithItemStatus(t *testing.T) {
	env := newTestEnv(t)
	res := env.open(t, "5", adHoc("Kola", "20", 2), adHoc("Su", "10", 1))
	itemID := res.Items[0].ID

	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			_, err := env.svc.AppendItems(context.Background(), env.pos, res.Order.ID, []ItemInput{adHoc("Çay", "15", 1)})
			return err
		})
		g.Go(func() error {
			_, err := env.svc.SetItemStatus(context.Background(), env.station, res.Order.ID, itemID, "prepared")
			return err
		})
	}
	require.NoError(t, g.Wait())

	order := env.db.order(res.Order.ID)
	assert.True(t, numericEquals(order.TotalAmount, "125"), "got %s", numericToDecimal(order.TotalAmount))
	assert.True(t, itemSum(env.db.itemsOf(res.Order.ID)).Equal(numericToDecimal(order.TotalAmount)))
}

// =====================
// SetItemStatus
// =====================

func TestSetItemStatus_Toggle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.open(t, "5", adHoc("Kola", "20", 1))
	itemID := res.Items[0].ID
	rev := res.Order.Revision

	res, err := env.svc.SetItemStatus(ctx, env.station, res.Order.ID, itemID, "prepared")
	require.NoError(t, err)
	assert.Equal(t, database.OrderItemStatusPrepared, res.Items[0].Status)
	assert.Greater(t, res.Order.Revision, rev)

	// mis-tap correction
	res, err = env.svc.SetItemStatus(ctx, env.station, res.Order.ID, itemID, "pending")
	require.NoError(t, err)
	assert.Equal(t, database.OrderItemStatusPending, res.Items[0].Status)
}

func TestSetItemStatus_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.open(t, "5", adHoc("Kola", "20", 1))
	itemID := res.Items[0].ID

	first, err := env.svc.SetItemStatus(ctx, env.station, res.Order.ID, itemID, "prepared")
	require.NoError(t, err)
	second, err := env.svc.SetItemStatus(ctx, env.station, res.Order.ID, itemID, "prepared")
	require.NoError(t, err)

	assert.Equal(t, database.OrderItemStatusPrepared, second.Items[0].Status)
	assert.Equal(t, first.Order.Revision, second.Order.Revision, "repeat must not bump revision")
	assert.Equal(t, []string{"created", "item_status"}, env.notifier.kinds(), "repeat must not signal")
}

func TestSetItemStatus_ServedRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.open(t, "5", adHoc("Kola", "20", 1))
	orderID, itemID := res.Order.ID, res.Items[0].ID

	_, err := env.svc.SetItemStatus(ctx, env.pos, orderID, itemID, "served")
	require.ErrorIs(t, err, ErrInvalidTransition, "served only from prepared")

	_, err = env.svc.SetItemStatus(ctx, env.station, orderID, itemID, "prepared")
	require.NoError(t, err)

	_, err = env.svc.SetItemStatus(ctx, env.station, orderID, itemID, "served")
	require.ErrorIs(t, err, ErrServedByStation)

	res, err = env.svc.SetItemStatus(ctx, env.pos, orderID, itemID, "served")
	require.NoError(t, err)
	assert.Equal(t, database.OrderItemStatusServed, res.Items[0].Status)

	for _, back := range []string{"prepared", "pending"} {
		_, err = env.svc.SetItemStatus(ctx, env.pos, orderID, itemID, back)
		assert.ErrorIs(t, err, ErrInvalidTransition, "served -> %s", back)
	}
}

func TestSetItemStatus_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.open(t, "5", adHoc("Kola", "20", 1))

	_, err := env.svc.SetItemStatus(ctx, env.pos, res.Order.ID, uuid.New(), "prepared")
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = env.svc.SetItemStatus(ctx, env.pos, res.Order.ID, res.Items[0].ID, "cooked")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = env.svc.SetOrderStatus(ctx, env.pos, res.Order.ID, "cancelled")
	require.NoError(t, err)
	_, err = env.svc.SetItemStatus(ctx, env.pos, res.Order.ID, res.Items[0].ID, "prepared")
	assert.ErrorIs(t, err, ErrOrderNotActive)
}

// =====================
// SetOrderStatus
// =====================

func TestSetOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []string
		wantErr error
	}{
		{"forward", []string{"preparing", "ready"}, nil},
		{"cancel from pending", []string{"cancelled"}, nil},
		{"cancel from ready", []string{"preparing", "ready", "cancelled"}, nil},
		{"skip preparing", []string{"ready"}, ErrInvalidTransition},
		{"backwards", []string{"preparing", "pending"}, ErrInvalidTransition},
		{"out of cancelled", []string{"cancelled", "pending"}, ErrInvalidTransition},
		{"direct complete", []string{"completed"}, ErrCompleteViaPay},
		{"unknown", []string{"paid"}, ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			res := env.open(t, "5", adHoc("Kola", "20", 1))

			var err error
			for _, st := range tt.path {
				_, err = env.svc.SetOrderStatus(context.Background(), env.pos, res.Order.ID, st)
				if err != nil {
					break
				}
			}
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, database.OrderStatus(tt.path[len(tt.path)-1]), env.db.order(res.Order.ID).Status)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSetOrderStatus_SameStatusIsNoop(t *testing.T) {
	env := newTestEnv(t)
	res := env.open(t, "5", adHoc("Kola", "20", 1))

	again, err := env.svc.SetOrderStatus(context.Background(), env.pos, res.Order.ID, "pending")
	require.NoError(t, err)
	assert.Equal(t, res.Order.Revision, again.Order.Revision)
	assert.Equal(t, []string{"created"}, env.notifier.kinds())
}

func TestSetOrderStatus_CompletedIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.open(t, "5", adHoc("Kola", "20", 1))
	_, err := env.svc.RecordPayment(ctx, env.pos, res.Order.ID, PaymentRequest{Amount: "20", PaymentMethod: "cash"})
	require.NoError(t, err)

	_, err = env.svc.SetOrderStatus(ctx, env.pos, res.Order.ID, "cancelled")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetOrderStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.SetOrderStatus(context.Background(), env.pos, uuid.New(), "preparing")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

// =====================
// Reads & routing
// =====================

func TestGetActiveOrderForTable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.GetActiveOrderForTable(ctx, env.pos, "5")
	require.ErrorIs(t, err, ErrNoActiveOrder)

	res := env.open(t, "5", adHoc("Kola", "20", 1))
	got, err := env.svc.GetActiveOrderForTable(ctx, env.pos, " 5 ")
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, got.Order.ID)
	assert.Len(t, got.Items, 1)
}

func TestListActiveOrders_StationProjection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bar := env.catalog.addCategory("Bar")
	mains := env.catalog.addCategory("")
	kola := env.catalog.addProduct(env.tenant, "Kola", "20", &bar)
	kebap := env.catalog.addProduct(env.tenant, "Adana", "180", &mains)

	mixed := env.open(t, "5", ItemInput{ProductID: kola.String(), Quantity: 1}, ItemInput{ProductID: kebap.String(), Quantity: 1})
	kitchenOnly := env.open(t, "6", ItemInput{ProductID: kebap.String(), Quantity: 2})
	cancelled := env.open(t, "7", ItemInput{ProductID: kola.String(), Quantity: 1})
	_, err := env.svc.SetOrderStatus(ctx, env.pos, cancelled.Order.ID, "cancelled")
	require.NoError(t, err)

	all, err := env.svc.ListActiveOrders(ctx, env.pos, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, mixed.Order.ID, all[0].Order.ID, "oldest first")
	assert.Len(t, all[0].Items, 2)

	kitchen, err := env.svc.ListActiveOrders(ctx, env.pos, "Mutfak")
	require.NoError(t, err)
	require.Len(t, kitchen, 2)
	for _, o := range kitchen {
		for _, it := range o.Items {
			assert.Equal(t, "Mutfak", it.Station, "kitchen board must not see bar items")
		}
	}
	assert.Equal(t, kitchenOnly.Order.ID, kitchen[1].Order.ID)

	barBoard, err := env.svc.ListActiveOrders(ctx, env.station, "Bar")
	require.NoError(t, err)
	require.Len(t, barBoard, 1)
	require.Len(t, barBoard[0].Items, 1)
	assert.Equal(t, "Kola", barBoard[0].Items[0].Name)

	// all-ready is a per-station projection
	assert.False(t, AllReady(all[0].Items, "Bar"))
	_, err = env.svc.SetItemStatus(ctx, env.station, mixed.Order.ID, barBoard[0].Items[0].ID, "prepared")
	require.NoError(t, err)
	refreshed, err := env.svc.GetOrder(ctx, env.pos, mixed.Order.ID)
	require.NoError(t, err)
	assert.True(t, AllReady(refreshed.Items, "Bar"))
	assert.False(t, AllReady(refreshed.Items, "Mutfak"))
	assert.False(t, AllReady(refreshed.Items, "Tatlı"), "station with no items is never all-ready")
}

func TestListActiveOrders_Empty(t *testing.T) {
	env := newTestEnv(t)
	list, err := env.svc.ListActiveOrders(context.Background(), env.pos, "Bar")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

// =====================
// Transaction retry
// =====================

func TestWithTx_RetriesSerializationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.db.failCommits(&pgconn.PgError{Code: "40001"})

	res := env.open(t, "5", adHoc("Kola", "20", 1))

	assert.Equal(t, 2, env.db.begins)
	assert.Equal(t, 1, env.db.activeCount(env.tenant, "5"))
	assert.Len(t, env.db.itemsOf(res.Order.ID), 1)
}

func TestWithTx_GivesUpAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	deadlock := &pgconn.PgError{Code: "40P01"}
	env.db.failCommits(deadlock, deadlock, deadlock)

	_, err := env.svc.CreateOrder(context.Background(), env.pos, CreateOrderRequest{TableLabel: "5", Items: []ItemInput{adHoc("Kola", "20", 1)}})
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, maxTxAttempts, env.db.begins)
	assert.Equal(t, 0, env.db.activeCount(env.tenant, "5"))
}
