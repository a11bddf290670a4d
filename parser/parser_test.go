package parser

import (
	"errors"
	"math"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func testPoint(speed uint16, elements ...*IOElement) *AVLData {
	return &AVLData{
		Timestamp:  uint64(time.Date(2024, 6, 12, 9, 30, 0, 0, time.UTC).UnixMilli()),
		Priority:   PriorityHigh,
		Longitude:  51.389163,
		Latitude:   35.689197,
		Altitude:   1190,
		Angle:      278,
		Satellites: 14,
		Speed:      speed,
		IOElements: elements,
	}
}

func assertGPSFields(t *testing.T, point *AVLData, record *Record) {
	t.Helper()
	assert.Equal(t, point.Timestamp, record.TimestampMs)
	assert.Equal(t, uint8(point.Priority), record.Priority)
	assert.Assert(t, math.Abs(point.Longitude-record.Longitude) < 1e-6)
	assert.Assert(t, math.Abs(point.Latitude-record.Latitude) < 1e-6)
	assert.Equal(t, point.Altitude, record.Altitude)
	assert.Equal(t, point.Angle, record.Angle)
	assert.Equal(t, point.Satellites, record.Satellites)
	assert.Equal(t, point.Speed, record.Speed)
}

func TestParseFrameCodec8(t *testing.T) {
	point := testPoint(83,
		&IOElement{ID: IOIgnition, Value: uint8(1)},
		&IOElement{ID: IOBatteryVoltage, Value: uint16(12850)},
		&IOElement{ID: IOOdometerTotal, Value: uint32(1482930)},
		&IOElement{ID: IOEngineHours, Value: uint64(670)},
		&IOElement{ID: IOTemperature, Value: int8(-4)},
	)
	raw, err := MakePacket(Codec8, []*AVLData{point})
	assert.NilError(t, err)

	frame, err := ParseFrame(raw)
	assert.NilError(t, err)
	assert.Equal(t, Codec8, frame.CodecID)
	assert.Equal(t, uint8(1), frame.RecordCount)
	assert.Equal(t, 1, len(frame.Records))

	record := frame.Records[0]
	assertGPSFields(t, point, record)
	assert.Equal(t, int64(1), record.IOValues[IOIgnition])
	assert.Equal(t, int64(12850), record.IOValues[IOBatteryVoltage])
	assert.Equal(t, int64(1482930), record.IOValues[IOOdometerTotal])
	assert.Equal(t, int64(670), record.IOValues[IOEngineHours])
	assert.Equal(t, int64(-4), record.IOValues[IOTemperature])
}

func TestParseFrameCodec8Extended(t *testing.T) {
	point := testPoint(121,
		&IOElement{ID: IOIgnition, Value: uint8(1)},
		&IOElement{ID: DSMYawning, Value: uint8(1)},
		&IOElement{ID: 385, Value: int16(-1200)},
		&IOElement{ID: IOOdometerTrip, Value: uint32(5230)},
		&IOElement{ID: 10503, Value: []byte("MDSM-7: Drowsiness detected")},
	)
	raw, err := MakePacket(Codec8E, []*AVLData{point})
	assert.NilError(t, err)

	frame, err := ParseFrame(raw)
	assert.NilError(t, err)
	assert.Equal(t, Codec8E, frame.CodecID)
	assert.Equal(t, 1, len(frame.Records))

	record := frame.Records[0]
	assertGPSFields(t, point, record)
	assert.Equal(t, int64(1), record.IOValues[IOIgnition])
	assert.Equal(t, int64(1), record.IOValues[DSMYawning])
	assert.Equal(t, int64(-1200), record.IOValues[385])
	assert.Equal(t, int64(5230), record.IOValues[IOOdometerTrip])
	// free-text DSM element synthesized into the canonical numeric id
	assert.Equal(t, int64(1), record.IOValues[DSMDrowsiness])
}

func TestParseFrameMultipleRecords(t *testing.T) {
	first := testPoint(40)
	second := testPoint(52)
	second.Timestamp += 5000
	raw, err := MakePacket(Codec8E, []*AVLData{first, second})
	assert.NilError(t, err)

	frame, err := ParseFrame(raw)
	assert.NilError(t, err)
	assert.Equal(t, uint8(2), frame.RecordCount)
	assert.Equal(t, 2, len(frame.Records))
	assert.Equal(t, first.Timestamp, frame.Records[0].TimestampMs)
	assert.Equal(t, second.Timestamp, frame.Records[1].TimestampMs)
}

func TestParseFrameInsaneTimestamp(t *testing.T) {
	good := testPoint(60)
	bad := testPoint(60)
	bad.Timestamp = uint64(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	raw, err := MakePacket(Codec8E, []*AVLData{good, bad})
	assert.NilError(t, err)

	frame, err := ParseFrame(raw)
	assert.Assert(t, errors.Is(err, ErrTimestampOutOfRange))
	// the record before the corrupt one survives
	assert.Equal(t, 1, len(frame.Records))
	assert.Equal(t, good.Timestamp, frame.Records[0].TimestampMs)
}

func TestParseFrameTruncatedRecord(t *testing.T) {
	raw, err := MakePacket(Codec8E, []*AVLData{testPoint(60)})
	assert.NilError(t, err)
	// lie about the record count so the decoder runs off the end
	raw[9] = 2

	frame, err := ParseFrame(raw)
	assert.Assert(t, errors.Is(err, ErrShortRead))
	assert.Equal(t, 1, len(frame.Records))
}

func TestParseFrameTrailingCountMismatch(t *testing.T) {
	raw, err := MakePacket(Codec8, []*AVLData{testPoint(60)})
	assert.NilError(t, err)
	raw[len(raw)-5] = 9

	_, err = ParseFrame(raw)
	assert.Assert(t, errors.Is(err, ErrInvalidNumberOfData))
}

func TestParseFrameUnsupportedCodec(t *testing.T) {
	raw, err := MakePacket(Codec8, []*AVLData{testPoint(60)})
	assert.NilError(t, err)
	raw[8] = 0x07

	frame, err := ParseFrame(raw)
	assert.Assert(t, errors.Is(err, ErrUnsupportedCodec))
	assert.Equal(t, CodecID(0x07), frame.CodecID)
	assert.Equal(t, uint8(1), frame.RecordCount)
}

func TestParseFrameBadPreamble(t *testing.T) {
	raw, err := MakePacket(Codec8, []*AVLData{testPoint(60)})
	assert.NilError(t, err)
	raw[0] = 0xCA

	_, err = ParseFrame(raw)
	assert.Assert(t, errors.Is(err, ErrInvalidPreamble))
}

func TestMakePacketCodec8Rejects(t *testing.T) {
	tests := map[string]*IOElement{
		"variable-length element": {ID: 10503, Value: []byte("text")},
		"two byte id":             {ID: DSMDrowsiness, Value: uint8(1)},
	}
	for name, element := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := MakePacket(Codec8, []*AVLData{testPoint(10, element)})
			assert.Assert(t, err != nil)
		})
	}
}

func TestScanFatigueText(t *testing.T) {
	tests := map[string]struct {
		raw    []byte
		idWant uint16
		found  bool
	}{
		"drowsiness":   {raw: []byte("Driver Drowsiness detected"), idWant: DSMDrowsiness, found: true},
		"phone":        {raw: []byte("Phone Usage warning"), idWant: DSMPhoneUsage, found: true},
		"absence":      {raw: []byte("Driver Absence"), idWant: DSMDriverAbsence, found: true},
		"binary noise": {raw: append([]byte{0x00, 0x01, 0x7F}, []byte("Yawning")...), idWant: DSMYawning, found: true},
		"no keyword":   {raw: []byte("low voltage"), found: false},
		"empty":        {raw: nil, found: false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			id, ok := ScanFatigueText(test.raw)
			assert.Equal(t, test.found, ok)
			if test.found {
				assert.Equal(t, test.idWant, id)
			}
		})
	}
}

func TestFatigueEventName(t *testing.T) {
	name, ok := FatigueEventName(DSMSmoking)
	assert.Assert(t, ok)
	assert.Equal(t, "SMOKING", name)

	// alias range maps onto the canonical events in the same order
	name, ok = FatigueEventName(12925)
	assert.Assert(t, ok)
	assert.Equal(t, "YAWNING", name)

	_, ok = FatigueEventName(IOIgnition)
	assert.Assert(t, !ok)
}
