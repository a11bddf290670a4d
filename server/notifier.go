package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/vandejack/fleet-avl/parser"
	"github.com/vandejack/fleet-avl/store"
)

// Notifier is the outbound alerting surface. Implementations must not
// block the protocol loop; failures are for logging, not retrying.
type Notifier interface {
	// SpeedingAlert dispatches one alert; a nil return means it was
	// handed to the transport and the cooldown may be armed.
	SpeedingAlert(vehicle *store.Vehicle, speedKph uint16, ts time.Time) error
	// LastPoint fans out a vehicle's freshest record to live consumers.
	LastPoint(imei string, record *parser.Record)
}

// NatsNotifier publishes alerts and live points as JSON over NATS.
type NatsNotifier struct {
	conn *nats.Conn
	log  *zap.Logger
}

var _ Notifier = &NatsNotifier{}

func NewNatsNotifier(conn *nats.Conn, logger *zap.Logger) *NatsNotifier {
	return &NatsNotifier{conn: conn, log: logger}
}

type speedingAlertMessage struct {
	VehicleID   string    `json:"vehicle_id"`
	VehicleName string    `json:"vehicle_name,omitempty"`
	IMEI        string    `json:"imei"`
	DriverID    string    `json:"driver_id,omitempty"`
	SpeedKph    uint16    `json:"speed_kph"`
	Timestamp   time.Time `json:"timestamp"`
}

func (nn *NatsNotifier) SpeedingAlert(vehicle *store.Vehicle, speedKph uint16, ts time.Time) error {
	subject := fmt.Sprintf("fleet.alerts.speeding.%s", vehicle.IMEI)
	payload, err := json.Marshal(&speedingAlertMessage{
		VehicleID:   vehicle.ID,
		VehicleName: vehicle.Name,
		IMEI:        vehicle.IMEI,
		DriverID:    vehicle.DriverID,
		SpeedKph:    speedKph,
		Timestamp:   ts,
	})
	if err != nil {
		return err
	}
	if e := nn.conn.Publish(subject, payload); e != nil {
		nn.log.Error("publish speeding alert failed", zap.Error(e), zap.String("imei", vehicle.IMEI))
		return e
	}
	return nil
}

type lastPointMessage struct {
	IMEI       string           `json:"imei"`
	Timestamp  uint64           `json:"timestamp"`
	Priority   uint8            `json:"priority"`
	Longitude  float64          `json:"longitude"`
	Latitude   float64          `json:"latitude"`
	Altitude   int16            `json:"altitude"`
	Angle      uint16           `json:"angle"`
	Satellites uint8            `json:"satellites"`
	SpeedKph   uint16           `json:"speed_kph"`
	IOElements map[uint16]int64 `json:"io_elements,omitempty"`
}

func (nn *NatsNotifier) LastPoint(imei string, record *parser.Record) {
	subject := fmt.Sprintf("fleet.lastpoint.%s", imei)
	payload, err := json.Marshal(&lastPointMessage{
		IMEI:       imei,
		Timestamp:  record.TimestampMs,
		Priority:   record.Priority,
		Longitude:  record.Longitude,
		Latitude:   record.Latitude,
		Altitude:   record.Altitude,
		Angle:      record.Angle,
		Satellites: record.Satellites,
		SpeedKph:   record.Speed,
		IOElements: record.IOValues,
	})
	if err != nil {
		nn.log.Error("marshal last point failed", zap.Error(err))
		return
	}
	if e := nn.conn.Publish(subject, payload); e != nil {
		nn.log.Error("publish last point failed", zap.Error(e))
	}
}
