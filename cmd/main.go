package main

import (
	"context"
	"log"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/vandejack/fleet-avl/db/clickhouse"
	"github.com/vandejack/fleet-avl/db/mongodb"
	"github.com/vandejack/fleet-avl/envconfig"
	"github.com/vandejack/fleet-avl/server"
	"github.com/vandejack/fleet-avl/simulator"
	"github.com/vandejack/fleet-avl/store"
)

var (
	HostAddress   string
	PortNumber    string
	NatsAddr      string
	ClickHouseURL string
	MongoURI      string
	MongoDatabase string
	SnapshotDir   string
	SpeedLimitKph uint
	AlertCooldown time.Duration

	SimulatorHostAddr string
	TrackerIMEI       string
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("create new logger failed:%v\n", err)
	}
	envCfg, err := envconfig.ReadAvlServiceEnv()
	if err != nil {
		logger.Fatal("read env config failed", zap.Error(err))
	}
	randomIMEI := generateRandomIMEI()
	app := &cli.App{
		Name:  "fleetavl",
		Usage: "teltonika-compatible avl tcp server",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "starts server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "host",
						Usage:       "host address",
						Value:       envCfg.Host,
						Destination: &HostAddress,
						EnvVars:     []string{"HOST"},
					},
					&cli.StringFlag{
						Name:        "port",
						Usage:       "server port number",
						Value:       envCfg.Port,
						Aliases:     []string{"p"},
						Destination: &PortNumber,
						EnvVars:     []string{"PORT"},
					},
					&cli.StringFlag{
						Name:        "nats",
						Usage:       "nats address",
						Value:       envCfg.NatsURL,
						Destination: &NatsAddr,
						EnvVars:     []string{"NATS"},
					},
					&cli.StringFlag{
						Name:        "clickhouse",
						Usage:       "history clickhouse url",
						Value:       envCfg.ClickHouseDB,
						Destination: &ClickHouseURL,
						EnvVars:     []string{"CLICKHOUSE_DATABASE_URL"},
						Required:    envCfg.ClickHouseDB == "",
					},
					&cli.StringFlag{
						Name:        "mongo",
						Usage:       "vehicle registry mongodb uri",
						Value:       envCfg.MongoURI,
						Destination: &MongoURI,
						EnvVars:     []string{"MONGODB_URI"},
						Required:    envCfg.MongoURI == "",
					},
					&cli.StringFlag{
						Name:        "mongo-db",
						Usage:       "vehicle registry database name",
						Value:       envCfg.MongoDatabase,
						Destination: &MongoDatabase,
						EnvVars:     []string{"MONGODB_DATABASE"},
					},
					&cli.StringFlag{
						Name:        "snapshot-dir",
						Usage:       "directory for command snapshot blobs",
						Value:       envCfg.SnapshotDir,
						Destination: &SnapshotDir,
						EnvVars:     []string{"SNAPSHOT_DIR"},
					},
					&cli.UintFlag{
						Name:        "speed-limit",
						Usage:       "speeding threshold in km/h",
						Value:       uint(envCfg.SpeedLimitKph),
						Destination: &SpeedLimitKph,
						EnvVars:     []string{"SPEED_LIMIT_KPH"},
					},
					&cli.DurationFlag{
						Name:        "alert-cooldown",
						Usage:       "per-device cooldown between speeding alerts",
						Value:       envCfg.AlertCooldown,
						Destination: &AlertCooldown,
						EnvVars:     []string{"ALERT_COOLDOWN"},
					},
				},
				Action: func(ctx *cli.Context) error {
					listenAddr := net.JoinHostPort(HostAddress, PortNumber)
					natsConn, err := nats.Connect(NatsAddr)
					if err != nil {
						return err
					}
					historyDB, err := clickhouse.ConnectHistoryDB(ClickHouseURL)
					if err != nil {
						return err
					}
					vehicleDB, err := mongodb.ConnectVehicleDB(context.Background(), MongoURI, MongoDatabase)
					if err != nil {
						return err
					}
					snapshots, err := store.NewDirSnapshotStore(SnapshotDir)
					if err != nil {
						return err
					}
					gateway := &store.FleetStore{
						Vehicles:  vehicleDB,
						History:   historyDB,
						Snapshots: snapshots,
					}
					cfg := server.Config{
						ListenAddr:    listenAddr,
						SpeedLimitKph: uint16(SpeedLimitKph),
						AlertCooldown: AlertCooldown,
					}
					s := server.NewServer(cfg, logger, gateway, server.NewNatsNotifier(natsConn, logger))
					go s.Start()

					sigs := make(chan os.Signal, 1)
					signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
					<-sigs
					s.Stop()
					return nil
				},
			},
			{
				Name:  "simulator",
				Usage: "starts tracker simulator",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "host",
						Usage:       "server address to connect to",
						Destination: &SimulatorHostAddr,
						Required:    true,
					},
					&cli.StringFlag{
						Name:        "imei",
						Usage:       "device imei",
						Value:       randomIMEI,
						DefaultText: randomIMEI,
						Destination: &TrackerIMEI,
						Required:    false,
					},
				},
				Action: func(ctx *cli.Context) error {
					tracker := simulator.NewTrackerDevice(SimulatorHostAddr, TrackerIMEI, log.Default())
					if e := tracker.Connect(); e != nil {
						return e
					}
					go tracker.SendRandomPoints()

					sigs := make(chan os.Signal, 1)
					signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
					<-sigs
					tracker.Stop()
					return nil
				},
			},
		},
	}

	if e := app.Run(os.Args); e != nil {
		logger.Error("failed to run app", zap.Error(e))
	}
}

func generateRandomIMEI() string {
	randomizer := rand.New(rand.NewSource(time.Now().UnixNano()))
	imei := "35"
	for i := 0; i < 13; i++ {
		imei += strconv.Itoa(randomizer.Intn(10))
	}
	return imei
}
