package terminal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/menuboard/api/internal/enum"
	"github.com/menuboard/api/internal/ws"
	"github.com/sirupsen/logrus"
)

// BoardAPI is the part of the command surface a board uses.
// Satisfied by *Client.
type BoardAPI interface {
	ListOrders(ctx context.Context, station string) ([]Order, error)
	SetItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status string) (*Order, error)
}

// ErrUnknownItem is returned when toggling an item the board does not show.
var ErrUnknownItem = errors.New("item not on board")

// patch is an optimistic item change awaiting confirmation. An item can have
// several in flight when toggled quickly.
type patch struct {
	orderID uuid.UUID
	itemID  uuid.UUID
	prev    string
}

// Board is a terminal's local copy of the tenant's active orders. The server
// is the source of truth: a signal always leads to a full refresh, and local
// edits are provisional until the command that made them returns.
type Board struct {
	api     BoardAPI
	station string
	log     logrus.FieldLogger

	mu      sync.Mutex
	orders  []Order
	seq     uint64
	pending map[uint64]patch

	// onChange is called after every change to the view, outside the lock.
	onChange func([]Order)
}

// NewBoard creates a board. An empty station shows every active order.
func NewBoard(api BoardAPI, station string, log logrus.FieldLogger) *Board {
	return &Board{
		api:     api,
		station: station,
		log:     log.WithField("component", "board"),
		pending: make(map[uint64]patch),
	}
}

// OnChange registers fn to receive a snapshot after each view change.
func (b *Board) OnChange(fn func([]Order)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *Board) Station() string { return b.station }

// Orders returns a snapshot of the view.
func (b *Board) Orders() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Refresh replaces the view with the server's. Items with an unconfirmed
// local edit keep their local status until the edit resolves.
func (b *Board) Refresh(ctx context.Context) error {
	orders, err := b.api.ListOrders(ctx, b.station)
	if err != nil {
		return fmt.Errorf("refresh board: %w", err)
	}

	b.mu.Lock()
	prev := b.indexLocked()
	for i := range orders {
		for j := range orders[i].Items {
			it := &orders[i].Items[j]
			if !b.hasPendingLocked(it.ID) {
				continue
			}
			if local, ok := prev[it.ID]; ok {
				it.Status = local.Status
				it.Pending = true
			}
		}
	}
	b.orders = orders
	b.mu.Unlock()

	b.changed()
	return nil
}

// HandleSignal reacts to a change signal. Signals are hints, so every one
// for this tenant triggers a refresh.
func (b *Board) HandleSignal(ctx context.Context, sig ws.Signal) error {
	switch sig.Type {
	case enum.SignalOrdersChanged, enum.SignalOrdersResync:
		return b.Refresh(ctx)
	default:
		b.log.WithField("type", sig.Type).Debug("ignoring unknown signal")
		return nil
	}
}

// ToggleItem flips an item between pending and prepared. The board shows the
// new status at once; it is confirmed by the server's answer or rolled back
// (and the board refreshed) if the command fails.
func (b *Board) ToggleItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	b.mu.Lock()
	item := b.findLocked(orderID, itemID)
	if item == nil {
		b.mu.Unlock()
		return ErrUnknownItem
	}
	prev := item.Status
	next := nextStatus(prev)
	if next == "" {
		b.mu.Unlock()
		return fmt.Errorf("%w: item is %s", ErrInvalidTransition, prev)
	}
	item.Status = next
	item.Pending = true
	b.seq++
	seq := b.seq
	b.pending[seq] = patch{orderID: orderID, itemID: itemID, prev: prev}
	b.mu.Unlock()
	b.changed()

	order, err := b.api.SetItemStatus(ctx, orderID, itemID, next)

	b.mu.Lock()
	delete(b.pending, seq)
	if err != nil {
		// A later toggle of the same item still in flight owns the display.
		if it := b.findLocked(orderID, itemID); it != nil && it.Pending && !b.hasPendingLocked(itemID) {
			it.Status = prev
			it.Pending = false
		}
		b.mu.Unlock()
		b.changed()

		b.log.WithError(err).WithFields(logrus.Fields{"order_id": orderID, "item_id": itemID}).Warn("item toggle rejected, rolled back")
		if rerr := b.Refresh(ctx); rerr != nil {
			b.log.WithError(rerr).Warn("refresh after rollback failed")
		}
		return err
	}
	b.confirmLocked(*order)
	b.mu.Unlock()
	b.changed()
	return nil
}

// AllReady reports whether every item of the order shown on this board is
// past pending. False for orders not on the board or with no items.
func (b *Board) AllReady(orderID uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.orders {
		if o.ID != orderID {
			continue
		}
		if len(o.Items) == 0 {
			return false
		}
		for _, it := range o.Items {
			if it.Status == "pending" {
				return false
			}
		}
		return true
	}
	return false
}

// confirmLocked replaces an order with the server's version unless the view
// already holds a newer revision.
func (b *Board) confirmLocked(order Order) {
	for i := range b.orders {
		if b.orders[i].ID != order.ID {
			continue
		}
		if order.Revision < b.orders[i].Revision {
			// The view is already newer; only drop markers whose edits are
			// all resolved.
			items := b.orders[i].Items
			for j := range items {
				if items[j].Pending && !b.hasPendingLocked(items[j].ID) {
					items[j].Pending = false
				}
			}
			return
		}
		if b.station != "" {
			order.Items = filterStation(order.Items, b.station)
		}
		for j := range order.Items {
			if b.hasPendingLocked(order.Items[j].ID) {
				if local := findItem(b.orders[i].Items, order.Items[j].ID); local != nil {
					order.Items[j].Status = local.Status
					order.Items[j].Pending = true
				}
			}
		}
		b.orders[i] = order
		return
	}
}

func (b *Board) hasPendingLocked(itemID uuid.UUID) bool {
	for _, p := range b.pending {
		if p.itemID == itemID {
			return true
		}
	}
	return false
}

func (b *Board) findLocked(orderID, itemID uuid.UUID) *Item {
	for i := range b.orders {
		if b.orders[i].ID == orderID {
			return findItem(b.orders[i].Items, itemID)
		}
	}
	return nil
}

func (b *Board) indexLocked() map[uuid.UUID]Item {
	idx := make(map[uuid.UUID]Item)
	for _, o := range b.orders {
		for _, it := range o.Items {
			idx[it.ID] = it
		}
	}
	return idx
}

func (b *Board) snapshotLocked() []Order {
	out := make([]Order, len(b.orders))
	for i, o := range b.orders {
		o.Items = append([]Item(nil), o.Items...)
		out[i] = o
	}
	return out
}

func (b *Board) changed() {
	b.mu.Lock()
	fn := b.onChange
	var snap []Order
	if fn != nil {
		snap = b.snapshotLocked()
	}
	b.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func findItem(items []Item, id uuid.UUID) *Item {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

func filterStation(items []Item, station string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Station == station {
			out = append(out, it)
		}
	}
	return out
}

// nextStatus is the station toggle: pending and prepared swap, served stays.
func nextStatus(status string) string {
	switch status {
	case "pending":
		return "prepared"
	case "prepared":
		return "pending"
	}
	return ""
}
