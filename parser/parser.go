package parser

import (
	"errors"
	"fmt"
	"time"
)

type CodecID uint8

const (
	Codec8  CodecID = 0x08
	Codec8E CodecID = 0x8E
	Codec12 CodecID = 0x0C
	Codec13 CodecID = 0x0D
	Codec15 CodecID = 0x0F
)

const precision = 10000000.0

// Records with a timestamp outside this calendar window are treated as
// corrupt: a garbled timestamp means the record boundary has drifted
// and everything after it would be misparsed.
const (
	minSaneYear = 2020
	maxSaneYear = 2100
)

var (
	ErrInvalidPreamble     = errors.New("invalid preamble")
	ErrInvalidNumberOfData = errors.New("invalid number of data")
	ErrUnsupportedCodec    = errors.New("codec not supported")
	ErrTimestampOutOfRange = errors.New("record timestamp outside sane window")
)

// Record is one decoded AVL record.
type Record struct {
	TimestampMs uint64
	Priority    uint8
	Longitude   float64
	Latitude    float64
	Altitude    int16
	Angle       uint16
	Satellites  uint8
	Speed       uint16
	IOValues    map[uint16]int64
}

func (r *Record) Timestamp() time.Time {
	return time.UnixMilli(int64(r.TimestampMs)).UTC()
}

// Command is the body of a codec 12/13/15 frame.
type Command struct {
	Type    uint8
	Payload []byte
}

// Command message types.
const (
	CommandTypeRequest  uint8 = 0x05
	CommandTypeResponse uint8 = 0x06
)

func (c *Command) Text() string {
	return string(c.Payload)
}

// Frame is one parsed AVL frame: either a batch of records or a
// command message, depending on the codec.
type Frame struct {
	CodecID     CodecID
	RecordCount uint8
	Records     []*Record
	Command     *Command
}

// ParseFrame decodes a complete raw frame as cut by FrameBuffer.
//
// Decoding is as forgiving as the wire format allows: a record that
// reads past the frame end or carries an insane timestamp aborts the
// rest of the frame but keeps every record decoded before it, and the
// partial Frame is returned alongside the error so the caller can
// still process the good records and ACK the device.
func ParseFrame(raw []byte) (*Frame, error) {
	r := newByteReader(raw)
	preamble, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if preamble != 0 {
		return nil, ErrInvalidPreamble
	}
	if _, err := r.readUint32(); err != nil { // data length, already framed
		return nil, err
	}
	codecByte, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	count, err := r.readUint8()
	if err != nil {
		return nil, err
	}

	frame := &Frame{CodecID: CodecID(codecByte), RecordCount: count}
	switch frame.CodecID {
	case Codec8, Codec8E:
		err = parseRecords(r, frame)
	case Codec12, Codec13, Codec15:
		frame.Command, err = parseCommand(r)
	default:
		err = fmt.Errorf("%w: 0x%02X", ErrUnsupportedCodec, codecByte)
	}
	return frame, err
}

func parseRecords(r *byteReader, frame *Frame) error {
	for i := uint8(0); i < frame.RecordCount; i++ {
		record, err := parseRecord(r, frame.CodecID)
		if err != nil {
			return fmt.Errorf("record %d of %d: %w", i+1, frame.RecordCount, err)
		}
		frame.Records = append(frame.Records, record)
	}
	trailing, err := r.readUint8()
	if err != nil {
		return err
	}
	if trailing != frame.RecordCount {
		return ErrInvalidNumberOfData
	}
	// CRC is read but not enforced: framing has already validated the
	// structure and some fielded firmware ships broken CRCs.
	_, err = r.readUint32()
	return err
}

func parseRecord(r *byteReader, codec CodecID) (*Record, error) {
	timestampMs, err := r.readUint64()
	if err != nil {
		return nil, err
	}
	year := time.UnixMilli(int64(timestampMs)).UTC().Year()
	if year < minSaneYear || year > maxSaneYear {
		return nil, fmt.Errorf("%w: %d", ErrTimestampOutOfRange, timestampMs)
	}
	priority, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	longitude, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	latitude, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	altitude, err := r.readInt16()
	if err != nil {
		return nil, err
	}
	angle, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	satellites, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	speed, err := r.readUint16()
	if err != nil {
		return nil, err
	}

	record := &Record{
		TimestampMs: timestampMs,
		Priority:    priority,
		Longitude:   float64(longitude) / precision,
		Latitude:    float64(latitude) / precision,
		Altitude:    altitude,
		Angle:       angle,
		Satellites:  satellites,
		Speed:       speed,
		IOValues:    make(map[uint16]int64),
	}
	if err := parseIOElements(r, codec, record.IOValues); err != nil {
		return nil, err
	}
	return record, nil
}

// parseIOElements reads the event-io header and the four fixed-width
// groups, plus the variable-length group on Codec 8 Extended. Id and
// count fields are 1 byte wide on Codec 8 and 2 bytes on 8 Extended.
func parseIOElements(r *byteReader, codec CodecID, values map[uint16]int64) error {
	// Event IO id and total count are framing metadata, not values.
	if _, err := readID(r, codec); err != nil {
		return err
	}
	if _, err := readID(r, codec); err != nil {
		return err
	}
	for width := 1; width <= 8; width *= 2 {
		if err := parseFixedGroup(r, codec, width, values); err != nil {
			return err
		}
	}
	if codec == Codec8E {
		return parseVariableGroup(r, values)
	}
	return nil
}

func parseFixedGroup(r *byteReader, codec CodecID, width int, values map[uint16]int64) error {
	count, err := readID(r, codec)
	if err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		id, err := readID(r, codec)
		if err != nil {
			return err
		}
		raw, err := r.readBytes(width)
		if err != nil {
			return err
		}
		values[id] = signExtend(raw)
	}
	return nil
}

// parseVariableGroup reads the 8E-only group of (id, length, bytes)
// elements. DSM cameras put free-text event descriptions here, so the
// text is scanned for fatigue keywords and the matching numeric id is
// synthesized into the value map.
func parseVariableGroup(r *byteReader, values map[uint16]int64) error {
	count, err := r.readUint16()
	if err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		if _, err := r.readUint16(); err != nil { // element id
			return err
		}
		length, err := r.readUint16()
		if err != nil {
			return err
		}
		raw, err := r.readBytes(int(length))
		if err != nil {
			return err
		}
		if id, ok := ScanFatigueText(raw); ok {
			values[id] = 1
		}
	}
	return nil
}

func readID(r *byteReader, codec CodecID) (uint16, error) {
	if codec == Codec8E {
		return r.readUint16()
	}
	v, err := r.readUint8()
	return uint16(v), err
}

func signExtend(raw []byte) int64 {
	switch len(raw) {
	case 1:
		return int64(int8(raw[0]))
	case 2:
		v, _ := streamToNumber[int16](raw)
		return int64(v)
	case 4:
		v, _ := streamToNumber[int32](raw)
		return int64(v)
	default:
		v, _ := streamToNumber[int64](raw)
		return v
	}
}
