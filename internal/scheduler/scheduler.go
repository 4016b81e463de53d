// Package scheduler implements the priority-aware, no-drop-preserving
// message scheduler described by this repository's specification: a strict
// FIFO class of undroppable messages, a best-effort class where only the
// latest message per topic survives, a priority-weighted round-robin across
// the best-effort class, a per-topic minimum release interval, and a global
// in-flight window derived from peer acknowledgements.
//
// Scheduler is intentionally single-threaded: all of its methods assume a
// single execution context, exactly as the package doc for a cooperative
// event loop would. A host that needs to call it from multiple goroutines
// must serialize calls externally — see internal/wiring, which wraps one
// Scheduler in a single sync.Mutex rather than push locking into the core.
package scheduler

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/trace"
)

// Callback receives one released message's bytes, in release order. It is
// invoked synchronously from within Schedule(); a callback that blocks
// indefinitely does so on the scheduler's own call stack. A callback that
// panics is recovered and logged, and a callback that fails to deliver has
// no way to report it: either way the message is, from the scheduler's
// perspective, still "released" — the transport owns reliability above
// this layer (see §4.1 / §7 of the specification).
type Callback func(data []byte)

// Options configures a Scheduler. A zero MaxInFlight is coerced to 1 by New.
type Options struct {
	// MaxInFlight is the configured in-flight window, >= 1.
	MaxInFlight uint64
	// NoDropCap bounds the no-drop FIFO; 0 means unbounded (the default,
	// matching the specification's implied behavior while disconnected).
	NoDropCap int
	// Verbosity selects diagnostic detail: 0 silent, 1 lifecycle, 2
	// per-message tracing via golang.org/x/net/trace.
	Verbosity int
	// Registerer receives Prometheus metrics; nil uses a private registry.
	Registerer prometheus.Registerer
}

// Scheduler is the core described above. Use New to construct one.
type Scheduler struct {
	opts Options
	log  *log.Entry

	noDrop *noDropFIFO
	topics map[string]*topicEntry

	nextIndex      uint64
	lastAckedIndex uint64

	onScheduled Callback

	metrics *metrics
	events  trace.EventLog // non-nil only when opts.Verbosity >= 2
}

// New constructs a Scheduler that invokes onScheduled for every released
// message. onScheduled must not be nil.
func New(opts Options, onScheduled Callback) *Scheduler {
	if opts.MaxInFlight == 0 {
		opts.MaxInFlight = 1
	}
	var s = &Scheduler{
		opts:        opts,
		log:         log.WithField("component", "scheduler"),
		noDrop:      newNoDropFIFO(opts.NoDropCap),
		topics:      make(map[string]*topicEntry),
		onScheduled: onScheduled,
		metrics:     newMetrics(opts.Registerer),
	}
	if opts.Verbosity >= 2 {
		s.events = trace.NewEventLog("scheduler", "robofleet-client")
	}
	return s
}

// Close releases the scheduler's diagnostic event log, if any. It does not
// affect queued or pending messages.
func (s *Scheduler) Close() {
	if s.events != nil {
		s.events.Finish()
		s.events = nil
	}
}

// Enqueue never blocks and never fails. If noDrop is true, (topic, data)
// joins the global FIFO unconditionally; otherwise data replaces whatever
// was previously pending for topic, silently discarding it. priority and
// rateLimit update the topic's registry entry regardless of class, since a
// topic may carry both no-drop and best-effort traffic over its lifetime.
func (s *Scheduler) Enqueue(topic string, data []byte, priority float64, rateLimit time.Duration, noDrop bool) {
	var entry = s.entry(topic)
	entry.setPolicy(priority, rateLimit)

	if noDrop {
		if dropped := s.noDrop.push(noDropItem{topic: topic, data: data}); dropped != nil {
			s.log.WithField("topic", dropped.topic).Warn("no-drop queue exceeded its cap; evicted oldest message")
		}
		s.trace("enqueue no_drop topic=%s bytes=%d queue_depth=%d", topic, len(data), s.noDrop.len())
	} else {
		if entry.state == statePending {
			s.metrics.bestEffortDropped.WithLabelValues(topic).Inc()
		}
		entry.onEnqueue(data)
		s.trace("enqueue best_effort topic=%s bytes=%d priority=%.3f", topic, len(data), priority)
	}
	s.reportGauges()
}

// BackpressureUpdate records the transport's high-water marks. An update
// that would decrease either counter is ignored (clamped): backpressure
// counters are monotonic by construction, and a stale or reordered update
// must never unwind credit already granted.
func (s *Scheduler) BackpressureUpdate(nextIndex, lastAckedIndex uint64) {
	if nextIndex < s.nextIndex || lastAckedIndex < s.lastAckedIndex {
		s.log.WithFields(log.Fields{
			"nextIndex": nextIndex, "lastAckedIndex": lastAckedIndex,
			"haveNextIndex": s.nextIndex, "haveLastAckedIndex": s.lastAckedIndex,
		}).Warn("ignoring non-monotonic backpressure update")
		return
	}
	s.nextIndex = nextIndex
	s.lastAckedIndex = lastAckedIndex
	s.trace("backpressure_update next=%d acked=%d credit=%d", nextIndex, lastAckedIndex, s.credit())
	s.reportGauges()
}

// credit is max_in_flight - (next_index - last_acked_index).
func (s *Scheduler) credit() int64 {
	return int64(s.opts.MaxInFlight) - int64(s.nextIndex-s.lastAckedIndex)
}

// Schedule is idempotent and releases zero or more messages by invoking
// onScheduled, stopping when no releasable message exists, or when credit
// is exhausted and the no-drop FIFO is empty.
func (s *Scheduler) Schedule() {
	for {
		if item, ok := s.noDrop.pop(); ok {
			s.release(item.topic, item.data, "no_drop")
			continue
		}
		if s.credit() <= 0 {
			return
		}

		var now = time.Now()
		var winner = s.pickBestEffort(now)
		if winner == nil {
			return
		}
		var data = winner.release(now)
		s.release(winner.topic, data, "best_effort")
	}
}

// pickBestEffort implements the priority-weighted round-robin: every
// eligible topic's deficit grows by its priority, the topic with the
// largest resulting deficit wins (ties broken lexicographically by topic
// name for determinism), and the winner's deficit is drained by the sum of
// all eligible topics' priorities this round — the same "smooth weighted
// round-robin" credit rule used by, e.g., nginx's upstream load balancer.
// Draining by the round's total weight rather than a flat unit is what
// makes the long-run release ratio converge to the priority ratio: with a
// flat unit drain, the topic with the single largest priority would win
// every round forever (its post-increment deficit is always ahead by a
// fixed margin), never giving lower-priority topics a turn. Deficits of
// topics that lose this round carry over unchanged, which is what gives
// the algorithm its resistance to starvation under repeated skips.
//
// A topic whose priority is zero or negative never grows a deficit on its
// own (its increment this round is <= 0), so it only ever wins once some
// earlier round left it with a positive deficit to spend; a lone priority
// <= 0 candidate with a zero-or-negative deficit is passed over entirely
// rather than released by default.
func (s *Scheduler) pickBestEffort(now time.Time) *topicEntry {
	var totalPriority float64
	for topic, e := range s.topics {
		if !e.eligible(now) {
			if e.state == statePending {
				s.metrics.rateLimitedSkips.WithLabelValues(topic).Inc()
			}
			continue
		}
		e.deficit += e.priority
		totalPriority += e.priority
	}

	var winner *topicEntry
	var winnerDeficit = math.Inf(-1)
	for topic, e := range s.topics {
		if !e.eligible(now) || e.deficit <= 0 {
			continue
		}
		if e.deficit > winnerDeficit || (e.deficit == winnerDeficit && (winner == nil || topic < winner.topic)) {
			winner = e
			winnerDeficit = e.deficit
		}
	}
	if winner == nil {
		return nil
	}
	winner.deficit -= totalPriority
	return winner
}

func (s *Scheduler) release(topic string, data []byte, class string) {
	if class == "best_effort" {
		// No-drop releases bypass credit entirely (§4.1 step 1) and never
		// consume it; the transport's own next_index catches up to them on
		// the next backpressure update. A best-effort release, by contrast,
		// was gated on credit > 0 to reach here, so it must count against
		// that same credit immediately — otherwise a single Schedule() pass
		// could release more best-effort messages than the in-flight window
		// allows, since BackpressureUpdate only arrives asynchronously on
		// the next acknowledgement.
		s.nextIndex++
	}
	s.metrics.released.WithLabelValues(class).Inc()
	s.trace("release class=%s topic=%s bytes=%d", class, topic, len(data))
	s.reportGauges()

	// A callback failure is, from the scheduler's point of view, still a
	// released message: the scheduler never re-enqueues and the transport
	// owns reliability above this layer.
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(log.Fields{"topic": topic, "panic": r}).Error("scheduled callback panicked; message considered released")
		}
	}()
	s.onScheduled(data)
}

func (s *Scheduler) entry(topic string) *topicEntry {
	var e, ok = s.topics[topic]
	if !ok {
		e = newTopicEntry(topic)
		s.topics[topic] = e
	}
	return e
}

func (s *Scheduler) reportGauges() {
	var pending int
	for _, e := range s.topics {
		if e.state == statePending {
			pending++
		}
	}
	s.metrics.pendingTopics.Set(float64(pending))
	s.metrics.noDropQueueDepth.Set(float64(s.noDrop.len()))
	s.metrics.sendCredit.Set(float64(s.credit()))
}

func (s *Scheduler) trace(format string, args ...interface{}) {
	if s.events != nil {
		s.events.Printf(format, args...)
	}
}
