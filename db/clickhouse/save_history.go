package clickhouse

import (
	"context"
	"time"

	"github.com/vandejack/fleet-avl/store"
)

type locationRowColumns struct {
	VehicleID  string
	IMEI       string
	Timestamp  time.Time
	Priority   uint8
	Longitude  float64
	Latitude   float64
	Altitude   int16
	Angle      uint16
	Satellites uint8
	Speed      uint16
	IOElements map[uint16]int64
}

const insertLocationQuery = `
	INSERT INTO
	    location_history(vehicle_id, imei, timestamp, priority, longitude, latitude, altitude, angle, satellites, speed, io_elements)
	VALUES (?,?,?,?,?,?,?,?,?,?,?);
`

// AppendLocation historizes one decoded record. Rows are append-only;
// out-of-order records land here unconditionally.
func (hdb *HistoryDB) AppendLocation(ctx context.Context, vehicleID, imei string, t *store.Telemetry) error {
	batch, err := hdb.ClickhouseConn.PrepareBatch(ctx, insertLocationQuery)
	if err != nil {
		return err
	}
	err = batch.AppendStruct(&locationRowColumns{
		VehicleID:  vehicleID,
		IMEI:       imei,
		Timestamp:  t.Timestamp,
		Priority:   t.Priority,
		Longitude:  t.Longitude,
		Latitude:   t.Latitude,
		Altitude:   t.Altitude,
		Angle:      t.Angle,
		Satellites: t.Satellites,
		Speed:      t.Speed,
		IOElements: t.IOValues,
	})
	if err != nil {
		return err
	}
	return batch.Send()
}
