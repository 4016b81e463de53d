package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TopicPolicy is one entry of a loaded policy file: the release-policy
// attributes a topic carries for the lifetime of the process, per §3.2 of
// the specification.
type TopicPolicy struct {
	Topic     string        `json:"topic"`
	Priority  float64       `json:"priority"`
	RateLimit time.Duration `json:"-"`
	NoDrop    bool          `json:"no_drop"`

	// RateLimitSeconds is the wire representation of RateLimit; JSON has no
	// native duration type, and the specification's policy file expresses
	// rate limits in fractional seconds.
	RateLimitSeconds float64 `json:"rate_limit_sec"`
}

// Registry is the process's topic policy table, keyed by topic name. It is
// populated once at startup from an optional JSON file and consulted by the
// Producer Adapter on every Produce call.
type Registry struct {
	policies map[string]TopicPolicy
}

// NewRegistry builds an empty registry; topics not subsequently loaded or
// registered fall back to the "unknown topic" rule (§7): priority 0,
// rate_limit 0, no_drop false.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]TopicPolicy)}
}

// LoadPolicyFile reads a JSON array of TopicPolicy entries from path and
// merges them into the registry, overwriting any existing entry for the
// same topic. An empty path is a no-op, matching the optional --topics flag.
func (r *Registry) LoadPolicyFile(path string) error {
	if path == "" {
		return nil
	}
	var raw, err = os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading topic policy file %q: %w", path, err)
	}

	var entries []TopicPolicy
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("config: parsing topic policy file %q: %w", path, err)
	}
	for _, e := range entries {
		e.RateLimit = time.Duration(e.RateLimitSeconds * float64(time.Second))
		r.policies[e.Topic] = e
	}
	return nil
}

// Register installs a single topic policy directly, bypassing the JSON
// file. Used by application glue that wants to pin a policy in code (see
// internal/app's subscription topic).
func (r *Registry) Register(p TopicPolicy) {
	r.policies[p.Topic] = p
}

// Lookup returns the policy for topic, or the unknown-topic fallback
// (priority 0, rate_limit 0, no_drop false) per §7 of the specification if
// none was loaded or registered.
func (r *Registry) Lookup(topic string) TopicPolicy {
	if p, ok := r.policies[topic]; ok {
		return p
	}
	return TopicPolicy{Topic: topic}
}
