// Package app is the minimal onboarding application glue described by §2's
// "Application glue" row and exercised by S6: on the transport's Connected
// edge, it emits a RobofleetSubscription as a no-drop enqueue so the remote
// broker starts forwarding matching topics to this client.
package app

import (
	"encoding/json"

	"github.com/ut-amrl/robofleet-base-client/internal/config"
	"github.com/ut-amrl/robofleet-base-client/internal/producer"
)

// SubscriptionTopic is the well-known topic the broker watches for
// subscription requests, mirroring the original source's ClientNode::connected.
const SubscriptionTopic = "subscriptions"

// Subscribe and Unsubscribe mirror the source's integer action codes.
const (
	Unsubscribe = 0
	Subscribe   = 1
)

// RobofleetSubscription requests that the broker start or stop forwarding
// messages whose topic matches TopicRegex to this client.
type RobofleetSubscription struct {
	TopicRegex string `json:"topic_regex"`
	Action     int    `json:"action"`
}

// Encode implements envelope.Encodable. The subscription message's own
// wire shape is JSON here; only the outer envelope header (§3.1) is
// flatbuffers-encoded.
func (s RobofleetSubscription) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// OnConnected returns a callback suitable for wiring.New's onConnected
// parameter: it enqueues a no-drop RobofleetSubscription for topicRegex,
// exactly mirroring the source's hard-coded "kavan/status" subscription.
// The subscriptions topic is registered no-drop, priority-irrelevant
// (no-drop bypasses priority selection entirely), so it is pinned in the
// registry once, ahead of any JSON policy file.
func OnConnected(policies *config.Registry, adapter *producer.Adapter, topicRegex string) func() {
	policies.Register(config.TopicPolicy{
		Topic:     SubscriptionTopic,
		Priority:  0,
		RateLimit: 0,
		NoDrop:    true,
	})
	return func() {
		var sub = RobofleetSubscription{TopicRegex: topicRegex, Action: Subscribe}
		if err := producer.Produce(adapter, sub, "RobofleetSubscription", SubscriptionTopic); err != nil {
			// Encoding a static, always-well-formed struct cannot fail in
			// practice; if it ever does, there is nothing this callback can
			// usefully do about it since Connected has no error return.
			panic(err)
		}
	}
}
