// Package sender owns one outbound TCP connection and pushes framed mesh
// messages over it.
package sender

import (
	"bufio"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/meshstream/internal/mesh"
	"github.com/danmuck/meshstream/internal/observability"
	"github.com/danmuck/meshstream/internal/protocol"
)

// Config controls connection setup and framing limits.
// Zero timeouts mean "no timeout"; zero SendBufferSize keeps the OS default.
type Config struct {
	Format         protocol.WireFormat
	MaxMessageSize uint32
	NoDelay        bool
	SendBufferSize int
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Format:         protocol.FormatBinary,
		MaxMessageSize: protocol.DefaultMaxMessageSize,
		NoDelay:        true,
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   30 * time.Second,
	}
}

// Stats is a point-in-time snapshot of the send counters.
type Stats struct {
	FramesSent uint64
	BytesSent  uint64
}

// Sender frames and writes MeshFrame, heartbeat and end-of-stream messages
// on a single TCP connection. All methods run on the caller's thread and may
// block on socket I/O up to the configured timeouts. Counters are atomic so
// Stats is safe to call from another goroutine.
type Sender struct {
	conn     net.Conn
	w        *bufio.Writer
	codec    protocol.Codec
	cfg      Config
	streamID string

	framesSent atomic.Uint64
	bytesSent  atomic.Uint64
}

// Connect resolves addr, opens the TCP stream and applies the socket options
// from cfg. A resolution, connect or socket-option failure is fatal to the
// attempt; the caller may retry with a fresh Connect.
func Connect(addr string, cfg Config) (*Sender, error) {
	codec, err := protocol.NewCodec(cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = protocol.DefaultMaxMessageSize
	}

	var conn net.Conn
	if cfg.ConnectTimeout > 0 {
		conn, err = net.DialTimeout("tcp", addr, cfg.ConnectTimeout)
	} else {
		conn, err = net.Dial("tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("sender: connect %s: %w", addr, err)
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(cfg.NoDelay); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("sender: set nodelay: %w", err)
		}
		if cfg.SendBufferSize > 0 {
			if err := tcp.SetWriteBuffer(cfg.SendBufferSize); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("sender: set send buffer: %w", err)
			}
		}
	}

	s := &Sender{
		conn:     conn,
		w:        bufio.NewWriter(conn),
		codec:    codec,
		cfg:      cfg,
		streamID: uuid.NewString(),
	}
	log.Info().
		Str("stream_id", s.streamID).
		Str("remote", conn.RemoteAddr().String()).
		Str("format", cfg.Format.String()).
		Msg("sender connected")
	return s, nil
}

// StreamID identifies this connection in logs.
func (s *Sender) StreamID() string { return s.streamID }

// LocalAddr returns the local end of the connection.
func (s *Sender) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// SendMesh validates frame, frames it and writes it fully to the socket.
// An invalid frame fails before any bytes are written. A partial write is a
// hard error: the connection must be considered broken.
func (s *Sender) SendMesh(frame *mesh.MeshFrame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	payload, err := s.codec.EncodeFrame(frame)
	if err != nil {
		return err
	}
	msg := &protocol.Message{
		Version: protocol.ProtocolVersion,
		Type:    protocol.TypeMeshFrame,
		Payload: payload,
	}
	if err := s.writeMessage(msg); err != nil {
		return err
	}
	s.framesSent.Add(1)
	s.bytesSent.Add(uint64(msg.Size()))
	observability.RecordFrameSent(msg.Size())
	log.Trace().
		Str("stream_id", s.streamID).
		Uint32("frame", frame.FrameNumber).
		Int("bytes", msg.Size()).
		Msg("mesh frame sent")
	return nil
}

// SendHeartbeat writes a zero-payload keepalive message.
func (s *Sender) SendHeartbeat() error {
	return s.sendControl(protocol.Heartbeat())
}

// SendEndOfStream writes the zero-payload end-of-stream marker.
func (s *Sender) SendEndOfStream() error {
	return s.sendControl(protocol.EndOfStream())
}

func (s *Sender) sendControl(msg *protocol.Message) error {
	if err := s.writeMessage(msg); err != nil {
		return err
	}
	s.bytesSent.Add(uint64(msg.Size()))
	observability.RecordBytesSent(msg.Size())
	return nil
}

func (s *Sender) writeMessage(msg *protocol.Message) error {
	if s.cfg.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	if err := protocol.WriteMessage(s.w, msg, s.cfg.MaxMessageSize); err != nil {
		return err
	}
	return s.w.Flush()
}

// Flush flushes buffered bytes to the OS. Writes are already flushed per
// message, so this is a no-op unless a write was interrupted.
func (s *Sender) Flush() error {
	return s.w.Flush()
}

// Shutdown is the clean-termination path: it sends the end-of-stream marker
// best effort, flushes, and shuts the socket down in both directions. The
// sender is unusable afterwards.
func (s *Sender) Shutdown() error {
	if err := s.SendEndOfStream(); err != nil {
		log.Debug().
			Str("stream_id", s.streamID).
			Err(err).
			Msg("end-of-stream send failed during shutdown")
	}
	_ = s.w.Flush()
	if tcp, ok := s.conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
	err := s.conn.Close()
	log.Info().
		Str("stream_id", s.streamID).
		Uint64("frames_sent", s.framesSent.Load()).
		Uint64("bytes_sent", s.bytesSent.Load()).
		Msg("sender shut down")
	return err
}

// Stats returns a snapshot of the running counters. Safe at any time.
func (s *Sender) Stats() Stats {
	return Stats{
		FramesSent: s.framesSent.Load(),
		BytesSent:  s.bytesSent.Load(),
	}
}
