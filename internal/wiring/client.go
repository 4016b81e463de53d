// Package wiring binds the Scheduler Core, Producer Adapter, and Transport
// Adapter into one running Client, closing the event graph the way the
// distilled specification's §9 design note describes: no global registry,
// just components constructed and handed each other's edges. It owns the
// single mutex that serializes the producer's (application-triggered)
// enqueues against the transport's read-pump (backpressure) updates, and
// runs a construct-then-block Run(ctx) loop: dial, spawn the read pump,
// block until shutdown, with a stoppingCh closed on the way out.
package wiring

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ut-amrl/robofleet-base-client/internal/scheduler"
	"github.com/ut-amrl/robofleet-base-client/internal/transport"
)

// Client owns one Scheduler and one transport.Conn and keeps them
// synchronized: every scheduler call — from Enqueue through Schedule —
// passes through mu, whether it originated on the application goroutine or
// the transport's read pump.
type Client struct {
	mu    sync.Mutex
	sched *scheduler.Scheduler
	conn  *transport.Conn

	hostURL string

	stoppingCh chan struct{}
	log        *log.Entry
}

// New constructs a Client bound to opts, dialing hostURL when Run starts.
// onMessage, if non-nil, receives application frames read off the wire.
// Bind the Connected edge afterward with OnConnected — the application
// glue package's callback needs a Producer Adapter that is in turn
// constructed from this Client, so the edge cannot be supplied at
// construction time without a cycle.
func New(opts scheduler.Options, hostURL string, onMessage transport.MessageFunc) *Client {
	var c = &Client{
		hostURL:    hostURL,
		stoppingCh: make(chan struct{}),
		log:        log.WithField("component", "wiring"),
	}
	c.sched = scheduler.New(opts, c.send)
	c.conn = transport.New(c.onBackpressure, onMessage, nil)
	return c
}

// OnConnected binds the transport's Connected edge. Must be called before
// Run.
func (c *Client) OnConnected(fn func()) { c.conn.OnConnected(fn) }

// Enqueue forwards to the scheduler under the shared mutex, then
// immediately re-drives Schedule so newly enqueued no-drop or best-effort
// messages are released as far as current credit allows without waiting
// for the next backpressure update.
func (c *Client) Enqueue(topic string, data []byte, priority float64, rateLimit time.Duration, noDrop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sched.Enqueue(topic, data, priority, rateLimit, noDrop)
	c.sched.Schedule()
}

// onBackpressure is wired as the transport's BackpressureFunc: it reports
// the observed next_index (owned by the transport, counting every frame
// written including no-drop ones) alongside the broker's last_acked_index
// into the scheduler, then re-drives Schedule so newly granted credit is
// used immediately. This never double-counts against the scheduler's own
// release-side bookkeeping: the scheduler only self-advances next_index for
// best-effort releases, and BackpressureUpdate's monotonic clamp means this
// call can only ever move next_index forward to the transport's true count,
// never add to it.
func (c *Client) onBackpressure(lastAckedIndex uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sched.BackpressureUpdate(c.conn.NextIndex(), lastAckedIndex)
	c.sched.Schedule()
}

// send is the scheduler's release callback: it writes the released frame
// to the wire. A send failure is logged and otherwise swallowed — per
// §4.3/§7, the transport may drop messages when the connection is down,
// and no-drop messages simply remain to be retried by whatever re-enqueues
// them, not by this layer.
func (c *Client) send(data []byte) {
	if err := c.conn.Send(context.Background(), data); err != nil {
		c.log.WithError(err).Warn("dropping message: transport send failed")
	}
}

// Run dials the transport, starts its read pump, and blocks until ctx is
// cancelled or the read pump exits, at which point it closes stoppingCh,
// closes the connection, and returns.
func (c *Client) Run(ctx context.Context) error {
	if err := c.conn.Dial(ctx, c.hostURL); err != nil {
		return err
	}
	defer c.conn.Close()

	var readErrCh = make(chan error, 1)
	go func() { readErrCh <- c.conn.ReadPump(ctx) }()

	select {
	case <-ctx.Done():
		close(c.stoppingCh)
		c.conn.Close()
		<-readErrCh
		return ctx.Err()
	case err := <-readErrCh:
		close(c.stoppingCh)
		c.log.WithError(err).Warn("read pump exited")
		return err
	}
}

// Stopping returns a channel closed once Run begins shutting down, for
// components that need to cut over to graceful cleanup.
func (c *Client) Stopping() <-chan struct{} { return c.stoppingCh }

// Scheduler exposes the bound Scheduler so the Producer Adapter can be
// constructed against it.
func (c *Client) Scheduler() *scheduler.Scheduler { return c.sched }
