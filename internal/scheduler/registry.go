package scheduler

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// topicState models the lifecycle of a topic's best-effort pending slot.
// Transitions mirror the state-machine style used elsewhere in this
// codebase (named states, an assertion helper that panics on a transition
// that should be unreachable by construction) rather than ad-hoc booleans.
type topicState string

const (
	stateEmpty   topicState = "empty"   // No pending best-effort message.
	statePending topicState = "pending" // A best-effort message awaits release.
)

// topicEntry is the registry's per-topic record: policy attributes, the
// best-effort pending slot, the rate-limiter clock, and the deficit
// round-robin accumulator. One entry is created per distinct topic name
// the first time it's seen by Enqueue, and it persists for the process
// lifetime (topic cardinality is assumed bounded by configuration).
type topicEntry struct {
	topic       string
	priority    float64
	rateLimit   time.Duration
	lastRelease time.Time
	pending     []byte
	state       topicState
	deficit     float64
}

func newTopicEntry(topic string) *topicEntry {
	return &topicEntry{topic: topic, state: stateEmpty}
}

// setPolicy updates the topic's priority and rate limit. Replacing a
// pending slot (or updating policy) never resets deficit: fairness must
// carry forward across drops.
func (e *topicEntry) setPolicy(priority float64, rateLimit time.Duration) {
	e.priority = priority
	e.rateLimit = rateLimit
}

// onEnqueue replaces the pending slot with data, silently discarding
// whatever was previously pending. Valid from either Empty or Pending.
func (e *topicEntry) onEnqueue(data []byte) {
	switch e.state {
	case stateEmpty, statePending:
		e.pending = data
		e.state = statePending
	default:
		e.mustState(stateEmpty) // unreachable; panics with a useful message
	}
}

// eligible reports whether the topic may be considered for release this
// schedule() pass: it must have a pending message and its rate limit must
// have elapsed since the last release.
func (e *topicEntry) eligible(now time.Time) bool {
	return e.state == statePending && now.Sub(e.lastRelease) >= e.rateLimit
}

// release clears the pending slot, advances the rate-limit clock, and
// returns the released payload. Only valid from Pending.
func (e *topicEntry) release(now time.Time) []byte {
	e.mustState(statePending)

	var data = e.pending
	e.pending = nil
	e.lastRelease = now
	e.state = stateEmpty
	return data
}

func (e *topicEntry) mustState(want topicState) {
	if e.state != want {
		log.WithFields(log.Fields{
			"topic":  e.topic,
			"expect": want,
			"actual": e.state,
		}).Panic("unexpected topic registry state")
	}
}
