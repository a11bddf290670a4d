package server

import (
	"go.uber.org/zap"

	"github.com/vandejack/fleet-avl/parser"
	"github.com/vandejack/fleet-avl/store"
)

// EventDeriver maps decoded telemetry to behavior events. Rules are
// independent; several may fire for one record.
type EventDeriver struct {
	SpeedLimitKph uint16
	Log           *zap.Logger
}

func (d *EventDeriver) Derive(record *parser.Record, vehicle *store.Vehicle) []*store.BehaviorEvent {
	var events []*store.BehaviorEvent

	if record.Speed > d.SpeedLimitKph {
		events = append(events, &store.BehaviorEvent{
			VehicleID: vehicle.ID,
			DriverID:  vehicle.DriverID,
			Type:      store.EventSpeeding,
			Value:     int64(record.Speed),
			Timestamp: record.Timestamp(),
		})
	}

	for id, value := range record.IOValues {
		if value != 1 {
			continue
		}
		name, ok := parser.FatigueEventName(id)
		if !ok {
			continue
		}
		if vehicle.DriverID == "" {
			// A fatigue event with nobody behind the wheel on record
			// cannot be attributed; drop it rather than invent a driver.
			d.Log.Warn("fatigue event on vehicle without assigned driver",
				zap.String("imei", vehicle.IMEI),
				zap.String("event", name),
			)
			continue
		}
		events = append(events, &store.BehaviorEvent{
			VehicleID: vehicle.ID,
			DriverID:  vehicle.DriverID,
			Type:      store.EventType(name),
			Value:     value,
			Timestamp: record.Timestamp(),
		})
	}
	return events
}
