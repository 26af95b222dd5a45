package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/menuboard/api/internal/database"
	"github.com/menuboard/api/internal/enum"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// settleEpsilon absorbs currency rounding when deciding finality and when
// checking the ledger.
var settleEpsilon = decimal.New(1, -2)

// PaymentRequest is one collection at the till. Amounts are decimal strings.
type PaymentRequest struct {
	Amount         string
	PaymentMethod  string
	DiscountType   string // fixed or percent; empty means fixed
	DiscountValue  string
	AmountReceived string // cash tendered; empty means exactly Amount
}

// Bill is the settlement position of an order.
type Bill struct {
	Total       decimal.Decimal
	Collected   decimal.Decimal
	Discounted  decimal.Decimal
	Outstanding decimal.Decimal
}

// PaymentResult is the recorded payment and the order after it.
type PaymentResult struct {
	Order   database.Order
	Payment database.Payment
	Bill    Bill
	Final   bool
}

type paymentInput struct {
	amount        decimal.Decimal
	method        database.PaymentMethod
	discountType  string
	discountValue decimal.Decimal
	received      decimal.Decimal
	hasReceived   bool
}

func parsePayment(req PaymentRequest) (paymentInput, error) {
	var in paymentInput

	amount, err := parseMoney(req.Amount, true)
	if err != nil {
		return in, ErrInvalidAmount
	}
	in.amount = amount

	in.method = database.PaymentMethod(req.PaymentMethod)
	if !in.method.Valid() {
		return in, ErrInvalidMethod
	}

	in.discountType = strings.ToLower(strings.TrimSpace(req.DiscountType))
	switch in.discountType {
	case "":
		in.discountType = enum.DiscountTypeFixed
	case enum.DiscountTypeFixed, enum.DiscountTypePercent:
	default:
		return in, ErrInvalidDiscount
	}

	dv, err := parseMoney(req.DiscountValue, false)
	if err != nil {
		return in, ErrDiscountRange
	}
	if in.discountType == enum.DiscountTypePercent && dv.GreaterThan(decimal.NewFromInt(100)) {
		return in, ErrDiscountRange
	}
	in.discountValue = dv

	if req.AmountReceived != "" {
		rcv, err := parseMoney(req.AmountReceived, true)
		if err != nil {
			return in, ErrInvalidReceived
		}
		in.received = rcv
		in.hasReceived = true
	}
	return in, nil
}

// parseMoney parses a non-negative amount rounded to cents, the precision
// the ledger stores. An empty string is zero unless required.
func parseMoney(s string, required bool) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return decimal.Zero, errors.New("empty amount")
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("negative amount")
	}
	return d.Round(2), nil
}

// computeDiscount turns the operator's discount entry into a currency amount
// clamped to what is still outstanding. A fixed discount larger than the
// order total is rejected rather than clamped.
func computeDiscount(total, outstanding decimal.Decimal, discountType string, value decimal.Decimal) (decimal.Decimal, error) {
	var d decimal.Decimal
	if discountType == enum.DiscountTypePercent {
		d = total.Mul(value).Div(decimal.NewFromInt(100))
	} else {
		if value.GreaterThan(total) {
			return decimal.Zero, ErrDiscountRange
		}
		d = value
	}
	d = d.Round(2)
	if d.GreaterThan(outstanding) {
		d = outstanding
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d, nil
}

func billFrom(order database.Order, sums database.SumPaymentsByOrderRow) Bill {
	b := Bill{
		Total:      numericToDecimal(order.TotalAmount),
		Collected:  numericToDecimal(sums.TotalAmount),
		Discounted: numericToDecimal(sums.TotalDiscount),
	}
	b.Outstanding = b.Total.Sub(b.Collected).Sub(b.Discounted)
	if b.Outstanding.IsNegative() {
		b.Outstanding = decimal.Zero
	}
	return b
}

// RecordPayment appends a payment to an active order. A payment that covers
// the remaining due (within one cent) is final: the payment row, the ledger
// check and the order completion commit together or not at all.
func (s *OrderService) RecordPayment(ctx context.Context, actor Actor, orderID uuid.UUID, req PaymentRequest) (*PaymentResult, error) {
	in, err := parsePayment(req)
	if err != nil {
		return nil, err
	}

	terminal := pgtype.Text{}
	if actor.Terminal != "" {
		terminal = pgtype.Text{String: actor.Terminal, Valid: true}
	}

	var result *PaymentResult
	final, settling := false, false
	err = s.withTx(ctx, func(store OrderStore) error {
		final, settling = false, false
		order, err := lockActiveOrder(ctx, store, actor.TenantID, orderID)
		if err != nil {
			return err
		}

		sums, err := store.SumPaymentsByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}
		bill := billFrom(order, sums)

		discount, err := computeDiscount(bill.Total, bill.Outstanding, in.discountType, in.discountValue)
		if err != nil {
			return err
		}
		remaining := bill.Outstanding.Sub(discount)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		final = in.amount.GreaterThanOrEqual(remaining.Sub(settleEpsilon))
		if !final && in.amount.IsZero() && discount.IsZero() {
			return ErrEmptyPayment
		}

		applied := in.amount
		if final && applied.GreaterThan(remaining) {
			applied = remaining
		}
		received := in.amount
		if in.hasReceived {
			received = in.received
		}
		if received.LessThan(applied) {
			return ErrInvalidReceived
		}
		change := received.Sub(applied)

		settling = final
		payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID:        order.ID,
			Amount:         decimalToNumeric(applied),
			PaymentMethod:  in.method,
			DiscountAmount: decimalToNumeric(discount),
			AmountReceived: decimalToNumeric(received),
			ChangeAmount:   decimalToNumeric(change),
			IsFinal:        final,
			Terminal:       terminal,
		})
		if err != nil {
			if settling {
				return fmt.Errorf("%w: record payment: %w", ErrSettlementFailure, err)
			}
			return fmt.Errorf("record payment: %w", err)
		}

		if final {
			order, err = settle(ctx, store, order)
			if err != nil {
				return err
			}
		} else {
			order, err = store.TouchOrder(ctx, order.ID)
			if err != nil {
				return fmt.Errorf("touch order: %w", err)
			}
		}

		bill.Total = numericToDecimal(order.TotalAmount)
		bill.Collected = bill.Collected.Add(applied)
		bill.Discounted = bill.Discounted.Add(discount)
		bill.Outstanding = bill.Total.Sub(bill.Collected).Sub(bill.Discounted)
		if final || bill.Outstanding.IsNegative() {
			bill.Outstanding = decimal.Zero
		}

		result = &PaymentResult{Order: order, Payment: payment, Bill: bill, Final: final}
		return nil
	})
	if err != nil {
		if settling && !errors.Is(err, ErrSettlementFailure) {
			err = fmt.Errorf("%w: %w", ErrSettlementFailure, err)
		}
		if settling {
			s.log.WithError(err).WithField("order_id", orderID).Error("settlement rolled back")
		}
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"tenant_id": actor.TenantID,
		"order_id":  orderID,
		"amount":    numericToDecimal(result.Payment.Amount).StringFixed(2),
		"method":    in.method,
		"final":     final,
		"terminal":  actor.Terminal,
	})
	if final {
		entry.Info("order settled")
		s.notify(ctx, result.Order, enum.ChangeSettled)
	} else {
		entry.Info("partial payment recorded")
		s.notify(ctx, result.Order, enum.ChangePayment)
	}
	return result, nil
}

// settle validates the ledger as stored and completes the order. Any failure
// is a settlement failure; the caller's transaction rolls back the payment.
func settle(ctx context.Context, store OrderStore, order database.Order) (database.Order, error) {
	sums, err := store.SumPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("%w: sum payments: %w", ErrSettlementFailure, err)
	}
	ledger := numericToDecimal(sums.TotalAmount).Add(numericToDecimal(sums.TotalDiscount))
	total := numericToDecimal(order.TotalAmount)
	if ledger.Sub(total).Abs().GreaterThan(settleEpsilon) {
		return database.Order{}, fmt.Errorf("%w (ledger %s, total %s)", ErrLedgerMismatch, ledger.StringFixed(2), total.StringFixed(2))
	}

	completed, err := store.CompleteOrder(ctx, order.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("%w: complete order: %w", ErrSettlementFailure, err)
	}
	return completed, nil
}

// PreviewBill reports the settlement position without writing anything.
func (s *OrderService) PreviewBill(ctx context.Context, actor Actor, orderID uuid.UUID) (*Bill, error) {
	store := s.newStore(s.pool)
	order, err := store.GetOrder(ctx, database.GetOrderParams{ID: orderID, TenantID: actor.TenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	sums, err := store.SumPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	bill := billFrom(order, sums)
	if order.IsPaid {
		bill.Outstanding = decimal.Zero
	}
	return &bill, nil
}

// ListPayments returns the ledger of one order of the tenant.
func (s *OrderService) ListPayments(ctx context.Context, actor Actor, orderID uuid.UUID) ([]database.Payment, error) {
	store := s.newStore(s.pool)
	if _, err := store.GetOrder(ctx, database.GetOrderParams{ID: orderID, TenantID: actor.TenantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	payments, err := store.ListPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if payments == nil {
		payments = []database.Payment{}
	}
	return payments, nil
}
