package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer accepts one WebSocket connection, echoes every binary frame it
// receives back as a binary frame prefixed with "echo:", and sends one
// control-style text frame on connect.
func echoServer(t *testing.T) *httptest.Server {
	var upgrader websocket.Upgrader
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var conn, err = upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"last_acked_index":7}`)))

		for {
			var kind, data, err = conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.BinaryMessage {
				_ = conn.WriteMessage(websocket.BinaryMessage, append([]byte("echo:"), data...))
			}
		}
	}))
}

func wsURL(t *testing.T, server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDialFiresConnectedAndSendAdvancesNextIndex(t *testing.T) {
	var server = echoServer(t)
	defer server.Close()

	var connected bool
	var received = make(chan []byte, 1)
	var conn = New(nil, func(data []byte) { received <- data }, func() { connected = true })

	var ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Dial(ctx, wsURL(t, server)))
	defer conn.Close()

	assert.True(t, connected)
	assert.EqualValues(t, 0, conn.NextIndex())

	go conn.ReadPump(ctx)

	require.NoError(t, conn.Send(ctx, []byte("hello")))
	assert.EqualValues(t, 1, conn.NextIndex())

	select {
	case data := <-received:
		assert.Equal(t, "echo:hello", string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed application frame")
	}
}

func TestReadPumpDispatchesBackpressureControlFrame(t *testing.T) {
	var server = echoServer(t)
	defer server.Close()

	var backpressure = make(chan uint64, 1)
	var conn = New(func(lastAcked uint64) { backpressure <- lastAcked }, nil, nil)

	var ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Dial(ctx, wsURL(t, server)))
	defer conn.Close()

	go conn.ReadPump(ctx)

	select {
	case lastAcked := <-backpressure:
		assert.EqualValues(t, 7, lastAcked)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for control frame")
	}
}
