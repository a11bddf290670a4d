package clickhouse

import (
	"context"

	"github.com/vandejack/fleet-avl/store"
)

const insertEventQuery = `
	INSERT INTO
	    behavior_events(vehicle_id, driver_id, event_type, value, timestamp)
	VALUES (?,?,?,?,?);
`

// InsertEvent appends one behavior event. Events are never updated or
// deleted.
func (hdb *HistoryDB) InsertEvent(ctx context.Context, event *store.BehaviorEvent) error {
	batch, err := hdb.ClickhouseConn.PrepareBatch(ctx, insertEventQuery)
	if err != nil {
		return err
	}
	if e := batch.Append(event.VehicleID, event.DriverID, string(event.Type), event.Value, event.Timestamp); e != nil {
		return e
	}
	return batch.Send()
}
