package clickhouse

import (
	"context"
	"net"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/vandejack/fleet-avl/store"
)

// HistoryDB is the append-only analytics store: location history,
// behavior events and the raw frame archive.
type HistoryDB struct {
	ClickhouseConn driver.Conn
}

var _ store.HistoryArchive = &HistoryDB{}

func (hdb *HistoryDB) GetConn() driver.Conn {
	return hdb.ClickhouseConn
}

func ConnectHistoryDB(databaseURL string) (*HistoryDB, error) {
	opts, err := clickhouse.ParseDSN(databaseURL)
	if err != nil {
		return nil, err
	}
	opts.DialContext = func(ctx context.Context, addr string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}
	opts.Compression = &clickhouse.Compression{
		Method: clickhouse.CompressionLZ4,
	}
	opts.DialTimeout = time.Second * 30
	opts.MaxOpenConns = 5
	opts.MaxIdleConns = 5
	opts.ConnMaxLifetime = time.Duration(10) * time.Minute
	opts.ConnOpenStrategy = clickhouse.ConnOpenInOrder

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}
	if e := conn.Ping(context.Background()); e != nil {
		return nil, e
	}
	return &HistoryDB{
		ClickhouseConn: conn,
	}, nil
}
