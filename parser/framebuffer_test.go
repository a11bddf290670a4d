package parser

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
)

const testIMEI = "356307042441013"

func testFrame(t *testing.T, speed uint16) []byte {
	t.Helper()
	raw, err := MakePacket(Codec8E, []*AVLData{testPoint(speed)})
	assert.NilError(t, err)
	return raw
}

func TestFrameBufferHandshake(t *testing.T) {
	login, err := EncodeIMEI(testIMEI)
	assert.NilError(t, err)

	fb := NewFrameBuffer()
	fb.Append(login[:5])
	seg, err := fb.Next()
	assert.NilError(t, err)
	assert.Assert(t, seg == nil)

	fb.Append(login[5:])
	seg, err = fb.Next()
	assert.NilError(t, err)
	assert.Equal(t, SegmentHandshake, seg.Kind)
	assert.Equal(t, testIMEI, seg.IMEI)

	seg, err = fb.Next()
	assert.NilError(t, err)
	assert.Assert(t, seg == nil)
}

func TestFrameBufferBadHandshake(t *testing.T) {
	tests := map[string][]byte{
		"declared length too long": []byte("AB"),
		"non digit imei":           append([]byte{0x00, 0x0F}, []byte("12345678901234X")...),
	}
	for name, chunk := range tests {
		t.Run(name, func(t *testing.T) {
			fb := NewFrameBuffer()
			fb.Append(chunk)
			_, err := fb.Next()
			assert.Assert(t, errors.Is(err, ErrBadHandshake))
		})
	}
}

func TestFrameBufferPartialFrame(t *testing.T) {
	login, err := EncodeIMEI(testIMEI)
	assert.NilError(t, err)
	raw := testFrame(t, 72)

	fb := NewFrameBuffer()
	fb.Append(login)
	seg, err := fb.Next()
	assert.NilError(t, err)
	assert.Equal(t, SegmentHandshake, seg.Kind)

	// one byte at a time: no segment until the frame is complete
	for _, b := range raw[:len(raw)-1] {
		fb.Append([]byte{b})
		seg, err = fb.Next()
		assert.NilError(t, err)
		assert.Assert(t, seg == nil)
	}
	fb.Append(raw[len(raw)-1:])
	seg, err = fb.Next()
	assert.NilError(t, err)
	assert.Equal(t, SegmentFrame, seg.Kind)
	assert.DeepEqual(t, raw, seg.Frame)
	assert.Equal(t, 0, fb.SkippedBytes())
}

func TestFrameBufferBackToBackFrames(t *testing.T) {
	login, err := EncodeIMEI(testIMEI)
	assert.NilError(t, err)
	first := testFrame(t, 30)
	second := testFrame(t, 45)

	fb := NewFrameBuffer()
	fb.Append(login)
	fb.Append(first)
	fb.Append(second)

	seg, err := fb.Next()
	assert.NilError(t, err)
	assert.Equal(t, SegmentHandshake, seg.Kind)

	seg, err = fb.Next()
	assert.NilError(t, err)
	assert.DeepEqual(t, first, seg.Frame)

	seg, err = fb.Next()
	assert.NilError(t, err)
	assert.DeepEqual(t, second, seg.Frame)
}

func TestFrameBufferResyncOverGarbage(t *testing.T) {
	login, err := EncodeIMEI(testIMEI)
	assert.NilError(t, err)
	garbage := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	raw := testFrame(t, 64)

	fb := NewFrameBuffer()
	fb.Append(login)
	fb.Append(garbage)
	fb.Append(raw)

	seg, err := fb.Next()
	assert.NilError(t, err)
	assert.Equal(t, SegmentHandshake, seg.Kind)

	seg, err = fb.Next()
	assert.NilError(t, err)
	assert.Equal(t, SegmentFrame, seg.Kind)
	assert.DeepEqual(t, raw, seg.Frame)
	assert.Equal(t, len(garbage), fb.SkippedBytes())
}

func TestFrameBufferResyncOverBogusLength(t *testing.T) {
	login, err := EncodeIMEI(testIMEI)
	assert.NilError(t, err)
	// valid preamble but an absurd declared data length must not make
	// the buffer wait forever for bytes that will never arrive
	junk := []byte{0x00, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xAA, 0xBB, 0xCC, 0xDD}
	raw := testFrame(t, 64)

	fb := NewFrameBuffer()
	fb.Append(login)
	fb.Append(junk)
	fb.Append(raw)

	seg, err := fb.Next()
	assert.NilError(t, err)
	assert.Equal(t, SegmentHandshake, seg.Kind)

	seg, err = fb.Next()
	assert.NilError(t, err)
	assert.Equal(t, SegmentFrame, seg.Kind)
	assert.DeepEqual(t, raw, seg.Frame)
	assert.Equal(t, len(junk), fb.SkippedBytes())
}

func TestFrameBufferMidStreamRelogin(t *testing.T) {
	firstLogin, err := EncodeIMEI(testIMEI)
	assert.NilError(t, err)
	secondLogin, err := EncodeIMEI("860000000000001")
	assert.NilError(t, err)
	raw := testFrame(t, 55)

	fb := NewFrameBuffer()
	fb.Append(firstLogin)
	fb.Append(secondLogin)
	fb.Append(raw)

	seg, err := fb.Next()
	assert.NilError(t, err)
	assert.Equal(t, SegmentHandshake, seg.Kind)
	assert.Equal(t, testIMEI, seg.IMEI)

	seg, err = fb.Next()
	assert.NilError(t, err)
	assert.Equal(t, SegmentHandshake, seg.Kind)
	assert.Equal(t, "860000000000001", seg.IMEI)

	seg, err = fb.Next()
	assert.NilError(t, err)
	assert.Equal(t, SegmentFrame, seg.Kind)
	assert.Equal(t, 0, fb.SkippedBytes())
}
