package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ut-amrl/robofleet-base-client/internal/config"
	"github.com/ut-amrl/robofleet-base-client/internal/envelope"
	"github.com/ut-amrl/robofleet-base-client/internal/producer"
	"github.com/ut-amrl/robofleet-base-client/internal/scheduler"
)

func TestOnConnectedEnqueuesNoDropSubscription(t *testing.T) {
	var released [][]byte
	var sched = scheduler.New(scheduler.Options{MaxInFlight: 1}, func(data []byte) {
		released = append(released, data)
	})

	var policies = config.NewRegistry()
	var adapter = producer.New(envelope.JSONFraming, policies, sched)

	var onConnected = OnConnected(policies, adapter, "kavan/status")
	onConnected()

	sched.Schedule()
	require.Len(t, released, 1)
	assert.Contains(t, string(released[0]), "kavan/status")
	assert.Contains(t, string(released[0]), "RobofleetSubscription")
}

func TestRobofleetSubscriptionEncodesToJSON(t *testing.T) {
	var sub = RobofleetSubscription{TopicRegex: "kavan/status", Action: Subscribe}
	var data, err = sub.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"topic_regex":"kavan/status","action":1}`, string(data))
}
