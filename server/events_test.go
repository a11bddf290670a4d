package server

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gotest.tools/v3/assert"

	"github.com/vandejack/fleet-avl/parser"
	"github.com/vandejack/fleet-avl/store"
)

func testRecord(speed uint16, ioValues map[uint16]int64) *parser.Record {
	if ioValues == nil {
		ioValues = map[uint16]int64{}
	}
	return &parser.Record{
		TimestampMs: uint64(time.Date(2024, 6, 12, 9, 30, 0, 0, time.UTC).UnixMilli()),
		Longitude:   51.389163,
		Latitude:    35.689197,
		Speed:       speed,
		IOValues:    ioValues,
	}
}

func TestEventDeriverSpeeding(t *testing.T) {
	deriver := &EventDeriver{SpeedLimitKph: 100, Log: zap.NewNop()}
	vehicle := &store.Vehicle{ID: "veh-1", IMEI: testIMEI, DriverID: "drv-9"}

	tests := map[string]struct {
		speed     uint16
		eventWant bool
	}{
		"under limit":    {speed: 60},
		"at limit":       {speed: 100},
		"over limit":     {speed: 101, eventWant: true},
		"well over":      {speed: 180, eventWant: true},
		"standing still": {speed: 0},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			events := deriver.Derive(testRecord(test.speed, nil), vehicle)
			if !test.eventWant {
				assert.Equal(t, 0, len(events))
				return
			}
			assert.Equal(t, 1, len(events))
			assert.Equal(t, store.EventSpeeding, events[0].Type)
			assert.Equal(t, int64(test.speed), events[0].Value)
			assert.Equal(t, "drv-9", events[0].DriverID)
		})
	}
}

func TestEventDeriverFatigue(t *testing.T) {
	deriver := &EventDeriver{SpeedLimitKph: 100, Log: zap.NewNop()}
	vehicle := &store.Vehicle{ID: "veh-1", IMEI: testIMEI, DriverID: "drv-9"}

	tests := map[string]struct {
		ioValues map[uint16]int64
		typeWant store.EventType
	}{
		"drowsiness":        {ioValues: map[uint16]int64{parser.DSMDrowsiness: 1}, typeWant: store.EventDrowsiness},
		"phone usage":       {ioValues: map[uint16]int64{parser.DSMPhoneUsage: 1}, typeWant: store.EventPhoneUsage},
		"alias id range":    {ioValues: map[uint16]int64{12928: 1}, typeWant: store.EventDriverAbsence},
		"armed but not set": {ioValues: map[uint16]int64{parser.DSMSmoking: 0}},
		"unrelated io":      {ioValues: map[uint16]int64{parser.IOIgnition: 1}},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			events := deriver.Derive(testRecord(50, test.ioValues), vehicle)
			if test.typeWant == "" {
				assert.Equal(t, 0, len(events))
				return
			}
			assert.Equal(t, 1, len(events))
			assert.Equal(t, test.typeWant, events[0].Type)
			assert.Equal(t, int64(1), events[0].Value)
		})
	}
}

func TestEventDeriverFatigueWithoutDriver(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	deriver := &EventDeriver{SpeedLimitKph: 100, Log: zap.New(core)}
	vehicle := &store.Vehicle{ID: "veh-1", IMEI: testIMEI}

	events := deriver.Derive(testRecord(50, map[uint16]int64{parser.DSMYawning: 1}), vehicle)
	assert.Equal(t, 0, len(events))
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "fatigue event on vehicle without assigned driver", logs.All()[0].Message)

	// speeding does not need a driver on record
	events = deriver.Derive(testRecord(130, nil), vehicle)
	assert.Equal(t, 1, len(events))
	assert.Equal(t, store.EventSpeeding, events[0].Type)
	assert.Equal(t, "", events[0].DriverID)
}
