package envelope

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONFraming is a Framing implementation which encodes the header as a
// JSON object, carried in the same length-delimited frame layout as
// BinaryFraming ([u32 total_length][u16 header_length][header][payload]),
// with no trailing newline. It exists for
// local tooling and tests that want human-readable frames; production
// traffic uses BinaryFraming.
var JSONFraming Framing = new(jsonFraming)

type jsonFraming struct{}

func (*jsonFraming) ContentType() string { return "application/x-robofleet-envelope+json" }

type jsonHeader struct {
	MsgType string `json:"msg_type"`
	Topic   string `json:"topic"`
}

func (*jsonFraming) Marshal(w io.Writer, msgType, topic string, payload []byte) error {
	header, err := json.Marshal(jsonHeader{MsgType: msgType, Topic: topic})
	if err != nil {
		return err
	}
	return writeLengthDelimited(w, header, payload)
}

func (*jsonFraming) Unpack(r *bufio.Reader) (msgType, topic string, payload []byte, err error) {
	var header []byte
	if header, payload, err = readLengthDelimited(r); err != nil {
		return "", "", nil, err
	}
	var h jsonHeader
	if err = json.Unmarshal(header, &h); err != nil {
		return "", "", nil, err
	}
	return h.MsgType, h.Topic, payload, nil
}
