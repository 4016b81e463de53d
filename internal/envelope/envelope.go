// Package envelope implements the client-only wire format used to carry
// application messages to the remote broker: a length-delimited binary
// frame wrapping a small metadata header (msg_type, topic) around an opaque
// payload. The scheduler never inspects frame contents; it treats the
// produced bytes as an atomic blob (see internal/scheduler).
package envelope

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Encodable is implemented by application payload types that know how to
// serialize themselves. The scheduler and transport never see the
// underlying type; only Encode, defined in the producer package, calls
// this method before handing bytes to a Framing.
type Encodable interface {
	Encode() ([]byte, error)
}

// Framing specifies the serialization used to wrap a payload with its
// msg_type/topic metadata. Two implementations are provided: BinaryFraming
// (the default, flatbuffers-encoded header) and JSONFraming (JSON-encoded
// header, useful for tooling and tests that want human-readable frames).
type Framing interface {
	// ContentType identifies the framing for diagnostic purposes.
	ContentType() string
	// Marshal writes a complete frame for (msgType, topic, payload) to w.
	Marshal(w io.Writer, msgType, topic string, payload []byte) error
	// Unpack reads one complete frame from r, returning its msg_type, topic
	// and opaque payload. Unpack returns io.EOF if r is exhausted before any
	// frame bytes are read.
	Unpack(r *bufio.Reader) (msgType, topic string, payload []byte, err error)
}

// maxHeaderLength bounds the encoded header size; it exists to reject
// obviously corrupt frames early rather than attempting an enormous
// allocation.
const maxHeaderLength = 1 << 16

// maxFrameLength bounds the total frame size accepted by Unpack.
const maxFrameLength = 64 << 20

var bufferPool = sync.Pool{
	New: func() interface{} { return make([]byte, 0, 4096) },
}

// writeLengthDelimited emits [u32 total_length][u16 header_length][header][payload].
// total_length counts everything after the leading 4 bytes.
func writeLengthDelimited(w io.Writer, header, payload []byte) error {
	if len(header) > maxHeaderLength {
		return fmt.Errorf("envelope: header too large (%d bytes)", len(header))
	}
	var totalLength = 2 + len(header) + len(payload)

	var buf = bufferPool.Get().([]byte)[:0]
	defer func() { bufferPool.Put(buf) }() //nolint:staticcheck // buf is copied out before return

	buf = append(buf, make([]byte, 6)...)
	binary.BigEndian.PutUint32(buf[0:4], uint32(totalLength))
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(header)))
	buf = append(buf, header...)
	buf = append(buf, payload...)

	var _, err = w.Write(buf)
	return err
}

// readLengthDelimited reads back a frame written by writeLengthDelimited.
func readLengthDelimited(r *bufio.Reader) (header, payload []byte, err error) {
	var lenBuf [4]byte
	if _, err = io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, nil, err
	}
	var totalLength = binary.BigEndian.Uint32(lenBuf[:])
	if totalLength < 2 || int64(totalLength) > maxFrameLength {
		return nil, nil, fmt.Errorf("envelope: invalid frame length %d", totalLength)
	}

	var body = make([]byte, totalLength)
	if _, err = io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}
	var headerLength = binary.BigEndian.Uint16(body[0:2])
	if int(headerLength) > len(body)-2 {
		return nil, nil, fmt.Errorf("envelope: header length %d exceeds frame body", headerLength)
	}
	header = body[2 : 2+headerLength]
	payload = body[2+headerLength:]
	return header, payload, nil
}
