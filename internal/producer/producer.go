// Package producer is the application-facing entry point into the message
// scheduler: it accepts an already-typed, self-encoding payload, looks up
// that payload's topic policy, and hands the framed bytes to the scheduler
// core. It performs no queuing of its own — any rate limiting expressed
// here would be advisory only, since the authoritative limiter lives in
// internal/scheduler (see §4.1 / §9 of this repository's specification).
package producer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ut-amrl/robofleet-base-client/internal/config"
	"github.com/ut-amrl/robofleet-base-client/internal/envelope"
)

// Scheduler is the subset of *scheduler.Scheduler the Producer Adapter
// depends on. Both *scheduler.Scheduler and *wiring.Client (which wraps
// Enqueue with its shared mutex and an immediate re-drive of Schedule)
// satisfy it, so the same Adapter works whether wired directly in tests or
// through the full event graph in production.
type Scheduler interface {
	Enqueue(topic string, data []byte, priority float64, rateLimit time.Duration, noDrop bool)
}

// Encode serializes msg through f into a complete, length-delimited wire
// frame carrying msgType and topic in its header. It mirrors the source's
// templated encode_msg<T> member function, generalized here as a Go
// generic function over any envelope.Encodable: the scheduler never sees
// the concrete type T, only the resulting bytes.
func Encode[T envelope.Encodable](f envelope.Framing, msg T, msgType, topic string) ([]byte, error) {
	var payload, err = msg.Encode()
	if err != nil {
		return nil, fmt.Errorf("producer: encoding %s payload: %w", msgType, err)
	}

	var buf bytes.Buffer
	if err := f.Marshal(&buf, msgType, topic, payload); err != nil {
		return nil, fmt.Errorf("producer: framing %s payload: %w", msgType, err)
	}
	return buf.Bytes(), nil
}

// Adapter binds a Framing and a topic policy Registry to a scheduler,
// giving the application a single Produce call per outbound message.
type Adapter struct {
	framing  envelope.Framing
	policies *config.Registry
	sched    Scheduler
}

// New constructs a Producer Adapter. framing selects the wire header
// codec (envelope.BinaryFraming in production, envelope.JSONFraming for
// tooling/tests); policies supplies per-topic priority/rate-limit/no-drop
// attributes, falling back to the unknown-topic rule when a topic was
// never loaded or registered.
func New(framing envelope.Framing, policies *config.Registry, sched Scheduler) *Adapter {
	return &Adapter{framing: framing, policies: policies, sched: sched}
}

// Produce encodes msg and enqueues it on the scheduler under topic's
// current policy. It never blocks and never returns an error for
// scheduling reasons — only envelope encoding can fail.
func Produce[T envelope.Encodable](a *Adapter, msg T, msgType, topic string) error {
	var data, err = Encode(a.framing, msg, msgType, topic)
	if err != nil {
		return err
	}
	var policy = a.policies.Lookup(topic)
	a.sched.Enqueue(topic, data, policy.Priority, policy.RateLimit, policy.NoDrop)
	return nil
}
