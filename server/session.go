package server

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vandejack/fleet-avl/parser"
	"github.com/vandejack/fleet-avl/store"
)

const (
	readBufferSize = 2048
	// persistQueueDepth bounds the per-connection job queue. The queue
	// absorbs storage latency spikes without stalling socket reads;
	// sustained overload backpressures to the socket instead of
	// growing memory.
	persistQueueDepth = 256
)

type persistJob struct {
	imei    string
	rawHex  string
	record  *parser.Record
	command *parser.Command
}

// session owns one device connection: its frame buffer, its identity
// and its ordered persistence queue.
type session struct {
	srv  *AvlServer
	conn net.Conn
	log  *zap.Logger

	frames *parser.FrameBuffer
	imei   string
	jobs   chan persistJob
	done   chan struct{}
}

func (as *AvlServer) HandleConnection(conn net.Conn) {
	defer conn.Close()
	defer as.wg.Done()

	s := &session{
		srv:    as,
		conn:   conn,
		log:    as.log.With(zap.String("remote", conn.RemoteAddr().String())),
		frames: parser.NewFrameBuffer(),
		jobs:   make(chan persistJob, persistQueueDepth),
		done:   make(chan struct{}),
	}
	go s.processJobs()
	defer func() {
		close(s.jobs)
		<-s.done
	}()

	s.readLoop()
}

func (s *session) readLoop() {
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			if isDisconnect(err) {
				s.log.Info("connection closed", zap.String("imei", s.imei))
			} else {
				s.log.Error("read failed", zap.Error(err))
			}
			return
		}
		s.frames.Append(buf[:n])
		for {
			segment, err := s.frames.Next()
			if err != nil {
				s.log.Warn("rejecting connection", zap.Error(err))
				return
			}
			if segment == nil {
				break
			}
			switch segment.Kind {
			case parser.SegmentHandshake:
				s.handleHandshake(segment.IMEI)
			case parser.SegmentFrame:
				s.handleFrame(segment.Frame)
			}
		}
	}
}

// isDisconnect treats EOF and peer resets as a normal end of session.
func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

func (s *session) handleHandshake(imei string) {
	if s.imei != "" && s.imei != imei {
		s.log.Warn("device re-identified mid-stream",
			zap.String("previous", s.imei),
			zap.String("imei", imei),
		)
	} else {
		s.log.Info("device identified", zap.String("imei", imei))
	}
	s.imei = imei
	if _, err := s.conn.Write([]byte{0x01}); err != nil {
		s.log.Error("write handshake ack failed", zap.Error(err))
	}
}

func (s *session) handleFrame(raw []byte) {
	frame, err := parser.ParseFrame(raw)
	if frame == nil {
		s.log.Error("unparsable frame", zap.Error(err), zap.String("imei", s.imei))
		return
	}
	if err != nil {
		// Partial decodes keep their good records; the device is ACKed
		// either way so its retransmission logic never stalls.
		s.log.Warn("frame decoded partially",
			zap.Error(err),
			zap.String("imei", s.imei),
			zap.Uint8("codec", uint8(frame.CodecID)),
			zap.Int("decoded", len(frame.Records)),
		)
	}

	s.enqueue(persistJob{imei: s.imei, rawHex: hex.EncodeToString(raw)})

	switch {
	case len(frame.Records) > 0:
		for _, record := range frame.Records {
			s.enqueue(persistJob{imei: s.imei, record: record})
		}
		s.srv.notifier.LastPoint(s.imei, frame.Records[len(frame.Records)-1])
	case frame.Command != nil:
		s.enqueue(persistJob{imei: s.imei, command: frame.Command})
	}

	s.ack(frame.RecordCount)
}

func (s *session) enqueue(job persistJob) {
	s.jobs <- job
}

func (s *session) ack(count uint8) {
	ack := binary.BigEndian.AppendUint32(nil, uint32(count))
	if _, err := s.conn.Write(ack); err != nil {
		s.log.Error("write data ack failed", zap.Error(err))
	}
}

// processJobs drains the queue in arrival order, so records persist in
// the order they appeared on the wire for this connection.
func (s *session) processJobs() {
	defer close(s.done)
	ctx := context.Background()
	for job := range s.jobs {
		switch {
		case job.rawHex != "":
			if err := s.srv.gateway.SaveRawFrame(ctx, job.imei, job.rawHex); err != nil {
				s.log.Error("save raw frame failed", zap.Error(err))
			}
		case job.record != nil:
			s.persistRecord(ctx, job.imei, job.record)
		case job.command != nil:
			s.persistCommand(ctx, job.imei, job.command)
		}
	}
}

func (s *session) persistRecord(ctx context.Context, imei string, record *parser.Record) {
	if record.Latitude == 0 && record.Longitude == 0 {
		return
	}
	vehicle, err := s.srv.gateway.FindVehicleByIMEI(ctx, imei)
	if err != nil {
		s.log.Error("vehicle lookup failed", zap.Error(err), zap.String("imei", imei))
		return
	}
	if vehicle == nil {
		s.log.Warn("record from unregistered device", zap.String("imei", imei))
		return
	}

	telemetry := telemetryFromRecord(record)
	if err := s.srv.gateway.AppendLocationHistory(ctx, vehicle.ID, imei, telemetry); err != nil {
		s.log.Error("append location history failed", zap.Error(err), zap.String("imei", imei))
	}
	if err := s.srv.gateway.UpsertVehicleTelemetry(ctx, imei, telemetry); err != nil {
		s.log.Error("update vehicle telemetry failed", zap.Error(err), zap.String("imei", imei))
	}

	for _, event := range s.srv.deriver.Derive(record, vehicle) {
		if err := s.srv.gateway.InsertBehaviorEvent(ctx, event); err != nil {
			s.log.Error("insert behavior event failed",
				zap.Error(err),
				zap.String("type", string(event.Type)),
			)
		}
		if event.Type == store.EventSpeeding {
			s.notifySpeeding(vehicle, record)
		}
	}
}

func (s *session) notifySpeeding(vehicle *store.Vehicle, record *parser.Record) {
	if !s.srv.throttle.ShouldNotify(vehicle.IMEI) {
		return
	}
	if err := s.srv.notifier.SpeedingAlert(vehicle, record.Speed, record.Timestamp()); err != nil {
		s.log.Error("speeding alert failed", zap.Error(err), zap.String("imei", vehicle.IMEI))
		return
	}
	s.srv.throttle.MarkSent(vehicle.IMEI)
}

// persistCommand handles codec 12/13/15 report payloads: free-text
// fatigue events become behavior events stamped with receive time
// (command frames carry no GPS timestamp); anything else is kept as an
// evidentiary snapshot.
func (s *session) persistCommand(ctx context.Context, imei string, command *parser.Command) {
	if !command.IsReport() {
		s.log.Info("ignoring non-report command message",
			zap.Uint8("type", command.Type),
			zap.String("imei", imei),
		)
		return
	}
	now := time.Now().UTC()
	if id, ok := parser.ScanFatigueText(command.Payload); ok {
		vehicle, err := s.srv.gateway.FindVehicleByIMEI(ctx, imei)
		if err != nil || vehicle == nil {
			s.log.Warn("fatigue report for unknown vehicle", zap.Error(err), zap.String("imei", imei))
			return
		}
		name, _ := parser.FatigueEventName(id)
		event := &store.BehaviorEvent{
			VehicleID: vehicle.ID,
			DriverID:  vehicle.DriverID,
			Type:      store.EventType(name),
			Value:     1,
			Timestamp: now,
		}
		if err := s.srv.gateway.InsertBehaviorEvent(ctx, event); err != nil {
			s.log.Error("insert behavior event failed", zap.Error(err))
		}
		return
	}
	url, err := s.srv.gateway.SaveSnapshot(ctx, imei, now, command.Type, command.Payload)
	if err != nil {
		s.log.Error("save snapshot failed", zap.Error(err), zap.String("imei", imei))
		return
	}
	s.log.Info("snapshot stored",
		zap.String("imei", imei),
		zap.String("url", url),
		zap.Int("bytes", len(command.Payload)),
	)
}

func telemetryFromRecord(record *parser.Record) *store.Telemetry {
	return &store.Telemetry{
		Timestamp:  record.Timestamp(),
		Priority:   record.Priority,
		Longitude:  record.Longitude,
		Latitude:   record.Latitude,
		Altitude:   record.Altitude,
		Angle:      record.Angle,
		Satellites: record.Satellites,
		Speed:      record.Speed,
		IOValues:   record.IOValues,
	}
}
