// Package transport owns the single persistent WebSocket connection to the
// remote broker: it writes scheduled frames to the wire, reads acknowledgement
// and application frames off it, and exposes the edges (Connected,
// backpressure, message-received) that internal/wiring binds together. Per
// §4.3 of this repository's specification, it never auto-reconnects — that
// policy belongs to the caller.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// ackFrame is the control-frame wire shape sent by the broker to report its
// receive high-water mark: a text WebSocket frame carrying this JSON body.
type ackFrame struct {
	LastAckedIndex uint64 `json:"last_acked_index"`
}

// BackpressureFunc is invoked on every control frame with the broker's
// reported last_acked_index. The caller is expected to pair this with its
// own next_index bookkeeping and forward both into Scheduler.BackpressureUpdate.
type BackpressureFunc func(lastAckedIndex uint64)

// MessageFunc is invoked on every application (binary) frame received from
// the broker, with the frame's raw bytes.
type MessageFunc func(data []byte)

// Conn dials, owns, and pumps one WebSocket connection. Send serializes
// concurrent callers on an internal mutex, which also guards next_index.
type Conn struct {
	ws *websocket.Conn

	mu        sync.Mutex
	nextIndex uint64

	onBackpressure BackpressureFunc
	onMessage      MessageFunc
	onConnected    func()

	log *log.Entry
}

// New constructs a Conn with its edge callbacks bound. Any of onBackpressure,
// onMessage, onConnected may be nil to ignore that edge.
func New(onBackpressure BackpressureFunc, onMessage MessageFunc, onConnected func()) *Conn {
	return &Conn{
		onBackpressure: onBackpressure,
		onMessage:      onMessage,
		onConnected:    onConnected,
		log:            log.WithField("component", "transport"),
	}
}

// Dial opens the WebSocket connection to hostURL and fires the Connected
// edge on success. It does not start the read pump — call ReadPump
// separately so the caller controls its goroutine's lifetime.
func (c *Conn) Dial(ctx context.Context, hostURL string) error {
	var dialer = websocket.Dialer{}
	var ws, _, err = dialer.DialContext(ctx, hostURL, nil)
	if err != nil {
		return errors.Wrapf(err, "dialing %s", hostURL)
	}
	c.ws = ws
	c.log.WithField("host_url", hostURL).Info("transport connected")

	if c.onConnected != nil {
		c.onConnected()
	}
	return nil
}

// Send writes one already-framed message as a binary WebSocket frame and
// advances next_index. It is the sole place next_index changes, per §4.3.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return errors.Wrap(err, "transport: writing frame")
	}
	c.nextIndex++
	return nil
}

// NextIndex reports the sender-side high-water mark maintained by Send.
func (c *Conn) NextIndex() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextIndex
}

// ReadPump blocks, dispatching inbound frames to the Backpressure and
// Message edges, until the connection closes or ctx is cancelled. ctx is
// checked between frames only; a read already blocked waiting for a frame
// returns when the connection is closed. It is meant to run in its own
// goroutine, owned by internal/wiring.
func (c *Conn) ReadPump(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var kind, data, err = c.ws.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "transport: read pump")
		}

		switch kind {
		case websocket.TextMessage:
			var ack ackFrame
			if err := json.Unmarshal(data, &ack); err != nil {
				c.log.WithError(err).Warn("dropping malformed control frame")
				continue
			}
			if c.onBackpressure != nil {
				c.onBackpressure(ack.LastAckedIndex)
			}
		case websocket.BinaryMessage:
			if c.onMessage != nil {
				c.onMessage(data)
			}
		default:
			c.log.WithField("frame_type", kind).Warn("ignoring unrecognized frame type")
		}
	}
}

// OnConnected replaces the Connected edge callback. It must be called
// before Dial; wiring.Client uses this to break the construction cycle
// between a Client and the Producer Adapter its onConnected closure needs.
func (c *Conn) OnConnected(fn func()) { c.onConnected = fn }

// Close closes the underlying connection. Safe to call more than once.
func (c *Conn) Close() error {
	if c.ws == nil {
		return nil
	}
	if err := c.ws.Close(); err != nil {
		return fmt.Errorf("transport: closing connection: %w", err)
	}
	return nil
}
