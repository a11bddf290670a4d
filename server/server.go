package server

import (
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vandejack/fleet-avl/store"
)

// Config carries the tunables of the protocol engine.
type Config struct {
	ListenAddr    string
	SpeedLimitKph uint16
	AlertCooldown time.Duration
}

const (
	DefaultSpeedLimitKph = 100
	DefaultAlertCooldown = 5 * time.Minute
)

type AvlServer struct {
	cfg      Config
	ln       net.Listener
	quitChan chan struct{}
	wg       sync.WaitGroup
	log      *zap.Logger

	gateway  store.Gateway
	notifier Notifier
	deriver  *EventDeriver
	throttle *NotificationThrottle
}

func NewServer(cfg Config, logger *zap.Logger, gateway store.Gateway, notifier Notifier) *AvlServer {
	if cfg.SpeedLimitKph == 0 {
		cfg.SpeedLimitKph = DefaultSpeedLimitKph
	}
	if cfg.AlertCooldown == 0 {
		cfg.AlertCooldown = DefaultAlertCooldown
	}
	return &AvlServer{
		cfg:      cfg,
		quitChan: make(chan struct{}),
		log:      logger,
		gateway:  gateway,
		notifier: notifier,
		deriver:  &EventDeriver{SpeedLimitKph: cfg.SpeedLimitKph, Log: logger},
		throttle: NewNotificationThrottle(cfg.AlertCooldown),
	}
}

// Start listens and serves until Stop is called.
func (as *AvlServer) Start() {
	ln, err := net.Listen("tcp", as.cfg.ListenAddr)
	if err != nil {
		as.log.Error("failed to listen", zap.Error(err))
		return
	}
	defer ln.Close()
	as.ln = ln

	go as.acceptConnections()
	as.log.Info("server started",
		zap.String("ListenAddress", as.cfg.ListenAddr),
	)
	<-as.quitChan
}

// Addr reports the bound listen address, useful when the configured
// port is 0.
func (as *AvlServer) Addr() net.Addr {
	if as.ln == nil {
		return nil
	}
	return as.ln.Addr()
}

func (as *AvlServer) acceptConnections() {
	for {
		conn, err := as.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			as.log.Error("accept connection error", zap.Error(err))
			continue
		}
		as.log.Info("new connection to the server", zap.String("Address", conn.RemoteAddr().String()))
		as.wg.Add(1)
		go as.HandleConnection(conn)
	}
}

func (as *AvlServer) Stop() {
	if as.ln != nil {
		as.ln.Close()
	}
	as.wg.Wait()
	close(as.quitChan)
	as.log.Info("stop server")
}
