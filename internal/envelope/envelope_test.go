package envelope

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinaryFramingRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, BinaryFraming.Marshal(&buf, "RobofleetSubscription", "subscriptions", []byte("payload-bytes")))

	msgType, topic, payload, err := BinaryFraming.Unpack(bufio.NewReader(&buf))
	assert.NoError(t, err)
	assert.Equal(t, "RobofleetSubscription", msgType)
	assert.Equal(t, "subscriptions", topic)
	assert.Equal(t, []byte("payload-bytes"), payload)
}

func TestBinaryFramingEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, BinaryFraming.Marshal(&buf, "Heartbeat", "kavan/status", nil))

	msgType, topic, payload, err := BinaryFraming.Unpack(bufio.NewReader(&buf))
	assert.NoError(t, err)
	assert.Equal(t, "Heartbeat", msgType)
	assert.Equal(t, "kavan/status", topic)
	assert.Empty(t, payload)
}

func TestBinaryFramingMultipleFramesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, BinaryFraming.Marshal(&buf, "A", "t1", []byte("one")))
	assert.NoError(t, BinaryFraming.Marshal(&buf, "B", "t2", []byte("two")))

	var r = bufio.NewReader(&buf)

	msgType, topic, payload, err := BinaryFraming.Unpack(r)
	assert.NoError(t, err)
	assert.Equal(t, "A", msgType)
	assert.Equal(t, "t1", topic)
	assert.Equal(t, []byte("one"), payload)

	msgType, topic, payload, err = BinaryFraming.Unpack(r)
	assert.NoError(t, err)
	assert.Equal(t, "B", msgType)
	assert.Equal(t, "t2", topic)
	assert.Equal(t, []byte("two"), payload)
}

func TestJSONFramingRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, JSONFraming.Marshal(&buf, "RobofleetSubscription", "subscriptions", []byte("{}")))

	msgType, topic, payload, err := JSONFraming.Unpack(bufio.NewReader(&buf))
	assert.NoError(t, err)
	assert.Equal(t, "RobofleetSubscription", msgType)
	assert.Equal(t, "subscriptions", topic)
	assert.Equal(t, []byte("{}"), payload)
}

func TestUnpackOnEmptyReaderReturnsEOF(t *testing.T) {
	_, _, _, err := BinaryFraming.Unpack(bufio.NewReader(bytes.NewReader(nil)))
	assert.Equal(t, io.EOF, err)
}
