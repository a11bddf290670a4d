package parser

import (
	"encoding/binary"
	"fmt"
)

// AVLData is the encoder-side view of a record, used by the simulator
// and by tests to build wire frames.
type AVLData struct {
	Timestamp  uint64
	Priority   PacketPriority
	Longitude  float64
	Latitude   float64
	Altitude   int16
	Angle      uint16
	Satellites uint8
	Speed      uint16
	EventID    uint16
	IOElements []*IOElement
}

// IOElement holds one element to encode. Fixed-width integer values
// are routed to the matching group by their encoded size; a []byte
// value becomes a variable-length element (Codec 8 Extended only).
type IOElement struct {
	ID    uint16
	Value any
}

type PacketPriority uint8

const (
	PriorityLow   PacketPriority = 0
	PriorityHigh  PacketPriority = 1
	PriorityPanic PacketPriority = 2
)

// MakePacket wraps encoded records in the AVL envelope: zero preamble,
// data length, codec id, record count, records, trailing count, CRC.
func MakePacket(codec CodecID, points []*AVLData) ([]byte, error) {
	var body []byte
	var err error
	switch codec {
	case Codec8:
		body, err = encodeCodec8AVLData(points)
	case Codec8E:
		body, err = encodeCodec8EAVLData(points)
	default:
		err = fmt.Errorf("%w: 0x%02X", ErrUnsupportedCodec, uint8(codec))
	}
	if err != nil {
		return nil, err
	}
	return wrapEnvelope(codec, uint8(len(points)), body), nil
}

// MakeCommandPacket builds a codec 12/13/15 frame around a payload.
func MakeCommandPacket(codec CodecID, commandType uint8, payload []byte) ([]byte, error) {
	switch codec {
	case Codec12, Codec13, Codec15:
	default:
		return nil, fmt.Errorf("%w: 0x%02X is not a command codec", ErrUnsupportedCodec, uint8(codec))
	}
	body := []byte{commandType}
	body = binary.BigEndian.AppendUint32(body, uint32(len(payload)))
	body = append(body, payload...)
	return wrapEnvelope(codec, 1, body), nil
}

func wrapEnvelope(codec CodecID, count uint8, body []byte) []byte {
	data := make([]byte, 0, len(body)+minFrameBytes+2)
	data = append(data, 0, 0, 0, 0)
	// data length spans codec id through trailing record count
	data = binary.BigEndian.AppendUint32(data, uint32(len(body))+3)
	data = append(data, uint8(codec), count)
	data = append(data, body...)
	data = append(data, count)
	crc := calculateCRC16(data[8:])
	data = binary.BigEndian.AppendUint32(data, uint32(crc))
	return data
}

func encodeCodec8EAVLData(points []*AVLData) ([]byte, error) {
	var data []byte
	for _, point := range points {
		data = appendGPSFields(data, point)
		data = binary.BigEndian.AppendUint16(data, point.EventID)

		fixed, variable, counts, err := groupElements(point.IOElements)
		if err != nil {
			return nil, err
		}
		total := counts[0] + counts[1] + counts[2] + counts[3] + uint16(len(variable))
		data = binary.BigEndian.AppendUint16(data, total)
		for stage := 0; stage < 4; stage++ {
			data = binary.BigEndian.AppendUint16(data, counts[stage])
			for _, el := range fixed[stage] {
				data = binary.BigEndian.AppendUint16(data, el.id)
				data = append(data, el.value...)
			}
		}
		data = binary.BigEndian.AppendUint16(data, uint16(len(variable)))
		for _, el := range variable {
			data = binary.BigEndian.AppendUint16(data, el.id)
			data = binary.BigEndian.AppendUint16(data, uint16(len(el.value)))
			data = append(data, el.value...)
		}
	}
	return data, nil
}

func encodeCodec8AVLData(points []*AVLData) ([]byte, error) {
	var data []byte
	for _, point := range points {
		data = appendGPSFields(data, point)
		data = append(data, uint8(point.EventID))

		fixed, variable, counts, err := groupElements(point.IOElements)
		if err != nil {
			return nil, err
		}
		if len(variable) > 0 {
			return nil, fmt.Errorf("codec 8 cannot carry variable-length elements")
		}
		data = append(data, uint8(counts[0]+counts[1]+counts[2]+counts[3]))
		for stage := 0; stage < 4; stage++ {
			data = append(data, uint8(counts[stage]))
			for _, el := range fixed[stage] {
				if el.id > 0xFF {
					return nil, fmt.Errorf("codec 8 element id %d exceeds one byte", el.id)
				}
				data = append(data, uint8(el.id))
				data = append(data, el.value...)
			}
		}
	}
	return data, nil
}

func appendGPSFields(data []byte, point *AVLData) []byte {
	data = binary.BigEndian.AppendUint64(data, point.Timestamp)
	data = append(data, uint8(point.Priority))
	data = binary.BigEndian.AppendUint32(data, uint32(int32(point.Longitude*precision)))
	data = binary.BigEndian.AppendUint32(data, uint32(int32(point.Latitude*precision)))
	data = binary.BigEndian.AppendUint16(data, uint16(point.Altitude))
	data = binary.BigEndian.AppendUint16(data, point.Angle)
	data = append(data, point.Satellites)
	data = binary.BigEndian.AppendUint16(data, point.Speed)
	return data
}

type encodedElement struct {
	id    uint16
	value []byte
}

// groupElements sorts elements into the four fixed-width stages by
// encoded size, keeping []byte values aside for the variable group.
func groupElements(elements []*IOElement) (fixed [4][]encodedElement, variable []encodedElement, counts [4]uint16, err error) {
	for _, element := range elements {
		if raw, ok := element.Value.([]byte); ok {
			variable = append(variable, encodedElement{id: element.ID, value: raw})
			continue
		}
		raw, convErr := numberToStream(element.Value)
		if convErr != nil {
			return fixed, nil, counts, convErr
		}
		var stage int
		switch len(raw) {
		case 1:
			stage = 0
		case 2:
			stage = 1
		case 4:
			stage = 2
		case 8:
			stage = 3
		default:
			return fixed, nil, counts, fmt.Errorf("unsupported element width %d", len(raw))
		}
		fixed[stage] = append(fixed[stage], encodedElement{id: element.ID, value: raw})
		counts[stage]++
	}
	return fixed, variable, counts, nil
}
