package clickhouse

import (
	"context"
)

const insertRawFrameQuery = `
	INSERT INTO raw_frames (timestamp, imei, payload)
	VALUES (now(), ?,?);
`

// SaveRawFrame archives one hex-encoded wire frame.
func (hdb *HistoryDB) SaveRawFrame(ctx context.Context, imei, payload string) error {
	batch, err := hdb.GetConn().PrepareBatch(ctx, insertRawFrameQuery)
	if err != nil {
		return err
	}
	if e := batch.Append(imei, payload); e != nil {
		return e
	}
	return batch.Send()
}
