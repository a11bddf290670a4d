package parser

import (
	"encoding/binary"
	"errors"
)

// ErrShortRead reports a field that would run past the end of the frame.
var ErrShortRead = errors.New("read past frame end")

// byteReader is a bounds-checked cursor over one frame. Every read fails
// with ErrShortRead instead of slicing past the frame, so a corrupt
// length field can never panic the decoder.
type byteReader struct {
	buf []byte
	off int
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

func (r *byteReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, ErrShortRead
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *byteReader) readUint8() (uint8, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) readUint16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *byteReader) readUint32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) readUint64() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *byteReader) readInt16() (int16, error) {
	v, err := r.readUint16()
	return int16(v), err
}

func (r *byteReader) readInt32() (int32, error) {
	v, err := r.readUint32()
	return int32(v), err
}
