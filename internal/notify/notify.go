// Package notify delivers committed order changes to terminals: the local
// websocket hub, other API instances over Redis and, optionally, a Kafka
// change stream.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/menuboard/api/internal/enum"
	"github.com/menuboard/api/internal/service"
	"github.com/menuboard/api/internal/ws"
	"github.com/sirupsen/logrus"
)

const (
	publishTimeout = 2 * time.Second
	publishQueue   = 256
)

// Broadcaster fans a signal out to the terminals connected to this instance.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToTenant(tenantID uuid.UUID, sig ws.Signal)
}

// Publisher ships a signal beyond this instance.
type Publisher interface {
	Publish(ctx context.Context, sig ws.Signal) error
}

// Fanout implements service.Notifier. Local terminals are signalled inline;
// publishers are fed from a queue drained by Run.
type Fanout struct {
	local      Broadcaster
	publishers []Publisher
	queue      chan ws.Signal
	log        logrus.FieldLogger
}

func NewFanout(local Broadcaster, log logrus.FieldLogger, publishers ...Publisher) *Fanout {
	return &Fanout{
		local:      local,
		publishers: publishers,
		queue:      make(chan ws.Signal, publishQueue),
		log:        log.WithField("component", "notifier"),
	}
}

// SignalFrom converts a committed change into its wire form.
func SignalFrom(c service.Change) ws.Signal {
	return ws.Signal{
		Type:     enum.SignalOrdersChanged,
		TenantID: c.TenantID,
		OrderID:  c.OrderID,
		Revision: c.Revision,
		Kind:     c.Kind,
	}
}

// OrderChanged never fails or blocks the caller: the change is already
// committed and terminals recover from a missed signal on their next refresh.
func (f *Fanout) OrderChanged(_ context.Context, c service.Change) {
	sig := SignalFrom(c)
	f.local.BroadcastToTenant(c.TenantID, sig)

	if len(f.publishers) == 0 {
		return
	}
	select {
	case f.queue <- sig:
	default:
		f.log.WithFields(logrus.Fields{
			"tenant_id": c.TenantID,
			"order_id":  c.OrderID,
			"kind":      c.Kind,
		}).Warn("publish queue full, dropping order change")
	}
}

// Run hands queued signals to the publishers in commit order until ctx is
// done.
func (f *Fanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-f.queue:
			f.publish(ctx, sig)
		}
	}
}

func (f *Fanout) publish(ctx context.Context, sig ws.Signal) {
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	for _, p := range f.publishers {
		if err := p.Publish(pctx, sig); err != nil {
			f.log.WithError(err).WithFields(logrus.Fields{
				"tenant_id": sig.TenantID,
				"order_id":  sig.OrderID,
				"kind":      sig.Kind,
			}).Warn("publish order change")
		}
	}
}
