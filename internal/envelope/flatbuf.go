package envelope

import (
	"bufio"
	"io"

	flatbuffers "github.com/google/flatbuffers/go"
)

// BinaryFraming is the default Framing. It encodes the (msg_type, topic)
// header as a small flatbuffers table:
//
//	table Header {
//	  msg_type: string;  // field 0, vtable slot 4
//	  topic:    string;  // field 1, vtable slot 6
//	}
//
// This is a minimal, hand-built equivalent of a flatc-generated accessor:
// the schema is fixed and small enough that generated code would add no
// safety the manual vtable offsets below don't already provide.
var BinaryFraming Framing = new(binaryFraming)

type binaryFraming struct{}

func (*binaryFraming) ContentType() string { return "application/x-robofleet-envelope" }

const (
	headerFieldMsgType = 0 // vtable slot 4
	headerFieldTopic   = 1 // vtable slot 6
)

func (*binaryFraming) Marshal(w io.Writer, msgType, topic string, payload []byte) error {
	var b = flatbuffers.NewBuilder(64 + len(msgType) + len(topic))

	// Strings (and any other offset data) must be fully built before the
	// object that references them is started.
	var topicOff = b.CreateString(topic)
	var msgTypeOff = b.CreateString(msgType)

	b.StartObject(2)
	b.PrependUOffsetTSlot(headerFieldMsgType, msgTypeOff, 0)
	b.PrependUOffsetTSlot(headerFieldTopic, topicOff, 0)
	var headerOff = b.EndObject()
	b.Finish(headerOff)

	return writeLengthDelimited(w, b.FinishedBytes(), payload)
}

func (*binaryFraming) Unpack(r *bufio.Reader) (msgType, topic string, payload []byte, err error) {
	var header []byte
	if header, payload, err = readLengthDelimited(r); err != nil {
		return "", "", nil, err
	}

	var root = flatbuffers.GetUOffsetT(header)
	var tab flatbuffers.Table
	tab.Bytes = header
	tab.Pos = root

	msgType = string(fieldString(&tab, headerFieldMsgType))
	topic = string(fieldString(&tab, headerFieldTopic))
	return msgType, topic, payload, nil
}

// fieldString reads a string-typed field at the given table field index,
// following the same vtable-offset convention flatc-generated Go code uses:
// field i lives at vtable slot 4+2*i, and is absent (zero value) when the
// vtable entry is 0.
func fieldString(tab *flatbuffers.Table, field int) []byte {
	var slot = flatbuffers.VOffsetT(4 + 2*field)
	var o = flatbuffers.UOffsetT(tab.Offset(slot))
	if o == 0 {
		return nil
	}
	return tab.ByteVector(o + tab.Pos)
}
