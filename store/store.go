package store

import (
	"context"
	"time"
)

// Vehicle is the registry view of one tracked unit.
type Vehicle struct {
	ID               string    `bson:"id"`
	IMEI             string    `bson:"imei"`
	Name             string    `bson:"name"`
	DriverID         string    `bson:"driverid,omitempty"`
	LastLocationTime time.Time `bson:"lastlocationtime,omitempty"`
}

// Telemetry carries one record's decoded fields to storage.
type Telemetry struct {
	Timestamp  time.Time
	Priority   uint8
	Longitude  float64
	Latitude   float64
	Altitude   int16
	Angle      uint16
	Satellites uint8
	Speed      uint16
	IOValues   map[uint16]int64
}

type EventType string

const (
	EventSpeeding      EventType = "SPEEDING"
	EventDrowsiness    EventType = "DROWSINESS"
	EventDistraction   EventType = "DISTRACTION"
	EventYawning       EventType = "YAWNING"
	EventPhoneUsage    EventType = "PHONE_USAGE"
	EventSmoking       EventType = "SMOKING"
	EventDriverAbsence EventType = "DRIVER_ABSENCE"
)

// BehaviorEvent is an append-only safety event derived from telemetry.
type BehaviorEvent struct {
	VehicleID string
	DriverID  string
	Type      EventType
	Value     int64
	Timestamp time.Time
}

// Gateway is everything the protocol engine needs from persistence.
// FindVehicleByIMEI returns (nil, nil) for unregistered devices.
type Gateway interface {
	FindVehicleByIMEI(ctx context.Context, imei string) (*Vehicle, error)
	// UpsertVehicleTelemetry refreshes a vehicle's live state, ignoring
	// telemetry older than what is already stored.
	UpsertVehicleTelemetry(ctx context.Context, imei string, t *Telemetry) error
	AppendLocationHistory(ctx context.Context, vehicleID, imei string, t *Telemetry) error
	InsertBehaviorEvent(ctx context.Context, event *BehaviorEvent) error
	SaveSnapshot(ctx context.Context, imei string, ts time.Time, kind uint8, data []byte) (string, error)
	SaveRawFrame(ctx context.Context, imei, payload string) error
}

// VehicleRegistry is the operational-store half of the gateway.
type VehicleRegistry interface {
	FindByIMEI(ctx context.Context, imei string) (*Vehicle, error)
	UpdateTelemetry(ctx context.Context, imei string, t *Telemetry) error
}

// HistoryArchive is the append-only analytics half.
type HistoryArchive interface {
	AppendLocation(ctx context.Context, vehicleID, imei string, t *Telemetry) error
	InsertEvent(ctx context.Context, event *BehaviorEvent) error
	SaveRawFrame(ctx context.Context, imei, payload string) error
}

// SnapshotStore persists evidentiary blobs from command frames.
type SnapshotStore interface {
	Save(ctx context.Context, imei string, ts time.Time, kind uint8, data []byte) (string, error)
}

// FleetStore composes the registry, the archive and the snapshot store
// into one gateway.
type FleetStore struct {
	Vehicles  VehicleRegistry
	History   HistoryArchive
	Snapshots SnapshotStore
}

var _ Gateway = &FleetStore{}

func (fs *FleetStore) FindVehicleByIMEI(ctx context.Context, imei string) (*Vehicle, error) {
	return fs.Vehicles.FindByIMEI(ctx, imei)
}

func (fs *FleetStore) UpsertVehicleTelemetry(ctx context.Context, imei string, t *Telemetry) error {
	return fs.Vehicles.UpdateTelemetry(ctx, imei, t)
}

func (fs *FleetStore) AppendLocationHistory(ctx context.Context, vehicleID, imei string, t *Telemetry) error {
	return fs.History.AppendLocation(ctx, vehicleID, imei, t)
}

func (fs *FleetStore) InsertBehaviorEvent(ctx context.Context, event *BehaviorEvent) error {
	return fs.History.InsertEvent(ctx, event)
}

func (fs *FleetStore) SaveSnapshot(ctx context.Context, imei string, ts time.Time, kind uint8, data []byte) (string, error) {
	return fs.Snapshots.Save(ctx, imei, ts, kind, data)
}

func (fs *FleetStore) SaveRawFrame(ctx context.Context, imei, payload string) error {
	return fs.History.SaveRawFrame(ctx, imei, payload)
}
