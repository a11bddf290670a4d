package parser

import (
	"encoding/binary"
	"errors"
)

const (
	// maxIMEILength bounds the declared length of a login handshake.
	maxIMEILength = 50
	// minFrameBytes is the smallest span worth inspecting: preamble,
	// data length, codec id, record count, trailing count and CRC.
	minFrameBytes = 12
	// maxDataLength rejects absurd declared frame sizes so garbage
	// never makes the buffer wait forever for bytes that won't come.
	maxDataLength = 1 << 16
)

var ErrBadHandshake = errors.New("malformed login handshake")

type SegmentKind uint8

const (
	SegmentHandshake SegmentKind = iota + 1
	SegmentFrame
)

// Segment is one unit extracted from the stream: either a login
// handshake carrying an IMEI or a complete raw AVL frame.
type Segment struct {
	Kind  SegmentKind
	IMEI  string
	Frame []byte
}

// FrameBuffer accumulates raw bytes from one connection and cuts them
// into handshakes and complete AVL frames. Devices flush partial
// writes and occasionally re-send their login mid-stream, so the
// buffer resynchronizes one byte at a time when the head of the
// stream matches no known frame shape.
type FrameBuffer struct {
	buf        []byte
	identified bool
	skipped    int
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

func (fb *FrameBuffer) Append(chunk []byte) {
	fb.buf = append(fb.buf, chunk...)
}

// SkippedBytes reports how many bytes have been dropped while
// resynchronizing over the lifetime of the connection.
func (fb *FrameBuffer) SkippedBytes() int {
	return fb.skipped
}

// Next extracts the next complete segment, or returns nil when the
// buffer holds only a partial frame and more bytes are needed.
func (fb *FrameBuffer) Next() (*Segment, error) {
	if !fb.identified {
		return fb.nextLogin()
	}
	for len(fb.buf) >= minFrameBytes {
		preamble := binary.BigEndian.Uint32(fb.buf[:4])
		if preamble == 0 {
			dataLength := binary.BigEndian.Uint32(fb.buf[4:8])
			if dataLength == 0 || dataLength > maxDataLength {
				fb.skip()
				continue
			}
			total := int(dataLength) + minFrameBytes
			if len(fb.buf) < total {
				return nil, nil
			}
			frame := make([]byte, total)
			copy(frame, fb.buf[:total])
			fb.consume(total)
			return &Segment{Kind: SegmentFrame, Frame: frame}, nil
		}
		if seg, ok := fb.takeHandshake(); ok {
			return seg, nil
		}
		fb.skip()
	}
	return nil, nil
}

// nextLogin handles the start of a connection, where the stream always
// opens with a handshake and no AVL parsing happens before it.
func (fb *FrameBuffer) nextLogin() (*Segment, error) {
	if len(fb.buf) < 2 {
		return nil, nil
	}
	declared := int(binary.BigEndian.Uint16(fb.buf[:2]))
	if declared == 0 || declared > maxIMEILength {
		return nil, ErrBadHandshake
	}
	if len(fb.buf) < 2+declared {
		return nil, nil
	}
	imei := fb.buf[2 : 2+declared]
	if !allDigits(imei) {
		return nil, ErrBadHandshake
	}
	seg := &Segment{Kind: SegmentHandshake, IMEI: string(imei)}
	fb.consume(2 + declared)
	fb.identified = true
	return seg, nil
}

// takeHandshake applies the mid-stream re-login heuristic: a 2-byte
// length in (0, maxIMEILength] followed by a fully buffered all-digit
// payload. Anything else at the head of the buffer is noise. It is
// unconfirmed whether production firmware ever re-sends its IMEI
// mid-stream or whether this only ever fires as a resync safety net;
// keep the heuristic in one place and do not loosen it.
func (fb *FrameBuffer) takeHandshake() (*Segment, bool) {
	declared := int(binary.BigEndian.Uint16(fb.buf[:2]))
	if declared == 0 || declared > maxIMEILength {
		return nil, false
	}
	if len(fb.buf) < 2+declared {
		return nil, false
	}
	imei := fb.buf[2 : 2+declared]
	if !allDigits(imei) {
		return nil, false
	}
	seg := &Segment{Kind: SegmentHandshake, IMEI: string(imei)}
	fb.consume(2 + declared)
	return seg, true
}

func (fb *FrameBuffer) skip() {
	fb.consume(1)
	fb.skipped++
}

func (fb *FrameBuffer) consume(n int) {
	rest := len(fb.buf) - n
	copy(fb.buf, fb.buf[n:])
	fb.buf = fb.buf[:rest]
}
