package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/menuboard/api/internal/ws"
	"github.com/sirupsen/logrus"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 15 * time.Second

	// The server pings well inside this window; silence past it means the
	// path is dead.
	readWait  = 60 * time.Second
	writeWait = 10 * time.Second
)

// Watcher keeps a websocket subscription to a tenant's change signals open,
// reconnecting with backoff until its context ends.
type Watcher struct {
	url      string
	dialer   *websocket.Dialer
	readWait time.Duration
	log      logrus.FieldLogger
}

func NewWatcher(url string, log logrus.FieldLogger) *Watcher {
	return &Watcher{
		url:      url,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		readWait: readWait,
		log:      log.WithField("component", "watcher"),
	}
}

// Run delivers every signal to handle. The server opens each connection with
// a resync signal, so handle sees one after every reconnect. Authentication
// failures are not retried.
func (w *Watcher) Run(ctx context.Context, handle func(ws.Signal)) error {
	backoff := minBackoff
	for {
		connected, err := w.session(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			var hs *handshakeError
			if errors.As(err, &hs) && (hs.status == http.StatusUnauthorized || hs.status == http.StatusForbidden) {
				return err
			}
			w.log.WithError(err).Warn("change stream disconnected")
		}
		if connected {
			backoff = minBackoff
		}

		wait := backoff + time.Duration(rand.Int63n(int64(backoff/2)+1))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// session runs one connection. connected reports whether the handshake
// succeeded.
func (w *Watcher) session(ctx context.Context, handle func(ws.Signal)) (bool, error) {
	conn, resp, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		if resp != nil {
			return false, &handshakeError{status: resp.StatusCode, err: err}
		}
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	w.log.Info("change stream connected")

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(w.readWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(w.readWait))
		// A failed pong shows up as a read error soon enough.
		_ = conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(w.readWait))
		var sig ws.Signal
		if err := json.Unmarshal(data, &sig); err != nil {
			w.log.WithError(err).Warn("discarding malformed signal")
			continue
		}
		handle(sig)
	}
}

type handshakeError struct {
	status int
	err    error
}

func (e *handshakeError) Error() string {
	return fmt.Sprintf("handshake failed with status %d: %v", e.status, e.err)
}

func (e *handshakeError) Unwrap() error { return e.err }
