package server

import (
	"fmt"
	"math/rand"
	"net"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"gotest.tools/v3/assert"

	"github.com/vandejack/fleet-avl/parser"
)

func generateRandomHostPort() string {
	port := rand.Intn(65535-1024) + 1024
	return net.JoinHostPort("127.0.0.1", fmt.Sprintf("%d", port))
}

// RunNatsServerOnPort will run a nats server on the given port.
func RunNatsServerOnPort(port int) *natsserver.Server {
	opts := natstest.DefaultTestOptions
	opts.Port = port
	return RunNatsServerWithOptions(&opts)
}

// RunNatsServerWithOptions will run a server with the given options.
func RunNatsServerWithOptions(opts *natsserver.Options) *natsserver.Server {
	return natstest.RunServer(opts)
}

func NewNatsConnection(t *testing.T, url string) *nats.Conn {
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("Failed to create default connection: %v\n", err)
	}
	return nc
}

// DialServer retries until the listener is up, then returns the client
// side of the connection.
func DialServer(t *testing.T, addr string) net.Conn {
	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			return conn
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("failed to dial server at %s: %v", addr, err)
	return nil
}

func ImeiAuthenticate(t *testing.T, clientConn net.Conn, imei string) {
	imeiBytes, err := parser.EncodeIMEI(imei)
	assert.NilError(t, err)
	_, err = clientConn.Write(imeiBytes)
	assert.NilError(t, err)
	buf := make([]byte, 2048)
	n, err := clientConn.Read(buf)
	assert.NilError(t, err)
	assert.DeepEqual(t, buf[:n], []byte{0x01})
}

func SendPoints(t *testing.T, clientConn net.Conn, points []*parser.AVLData) {
	packetBytes, err := parser.MakePacket(parser.Codec8E, points)
	assert.NilError(t, err)
	_, err = clientConn.Write(packetBytes)
	assert.NilError(t, err)
	buf := make([]byte, 2048)
	_, err = clientConn.Read(buf)
	assert.NilError(t, err)
	assert.DeepEqual(t, buf[:4], []byte{0, 0, 0, uint8(len(points))})
}

func SendCommand(t *testing.T, clientConn net.Conn, codec parser.CodecID, payload []byte) {
	packetBytes, err := parser.MakeCommandPacket(codec, parser.CommandTypeRequest, payload)
	assert.NilError(t, err)
	_, err = clientConn.Write(packetBytes)
	assert.NilError(t, err)
	buf := make([]byte, 2048)
	_, err = clientConn.Read(buf)
	assert.NilError(t, err)
	assert.DeepEqual(t, buf[:4], []byte{0, 0, 0, 1})
}
