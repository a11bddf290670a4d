package envconfig

import (
	"time"

	"github.com/caarlos0/env/v6"
)

type AvlServiceEnvConfig struct {
	Host          string        `env:"HOST" envDefault:"0.0.0.0"`
	Port          string        `env:"PORT" envDefault:"5027"`
	NatsURL       string        `env:"NATS" envDefault:"127.0.0.1:4222"`
	ClickHouseDB  string        `env:"CLICKHOUSE_DATABASE_URL"`
	MongoURI      string        `env:"MONGODB_URI"`
	MongoDatabase string        `env:"MONGODB_DATABASE" envDefault:"fleet"`
	SnapshotDir   string        `env:"SNAPSHOT_DIR" envDefault:"snapshots"`
	SpeedLimitKph uint16        `env:"SPEED_LIMIT_KPH" envDefault:"100"`
	AlertCooldown time.Duration `env:"ALERT_COOLDOWN" envDefault:"5m"`
}

func ReadAvlServiceEnv() (*AvlServiceEnvConfig, error) {
	cfg := &AvlServiceEnvConfig{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
