package simulator

import (
	"fmt"
	"log"
	"net"
	"os"
	"sync"
)

// TrackerDevice emulates one GPS tracker speaking the AVL protocol,
// for exercising a running server.
type TrackerDevice struct {
	serverAddr, imei string
	conn             net.Conn
	wg               sync.WaitGroup
	log              *log.Logger
}

func NewTrackerDevice(serverAddr, imei string, logger *log.Logger) *TrackerDevice {
	return &TrackerDevice{
		serverAddr: serverAddr,
		imei:       imei,
		wg:         sync.WaitGroup{},
		log:        logger,
	}
}

func (td *TrackerDevice) Connect() error {
	conn, err := net.Dial("tcp", td.serverAddr)
	if err != nil {
		return fmt.Errorf("failed to dial server: %v", err)
	}
	td.conn = conn
	return nil
}

func (td *TrackerDevice) Stop() {
	td.wg.Wait()
	td.conn.Close()
	td.log.Println("stop tracker simulator...")
	os.Exit(0)
}
