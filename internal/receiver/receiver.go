// Package receiver accepts inbound mesh stream connections and decodes
// frames, one connection at a time in its default mode.
package receiver

import (
	"bufio"
	"errors"
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

// ErrAcceptTimeout reports that no connection arrived within AcceptTimeout.
// It is transient: Run retries it and callers of ReceiveOne may too.
var ErrAcceptTimeout = errors.New("receiver: accept timeout")

// Config controls listening, decoding and the async hand-off.
// A zero AcceptTimeout blocks accept indefinitely; a zero ReadTimeout
// blocks each read indefinitely.
type Config struct {
	Format         protocol.WireFormat
	MaxMessageSize uint32
	NoDelay        bool
	ReadTimeout    time.Duration
	AcceptTimeout  time.Duration
	AsyncBuffer    int
}

func DefaultConfig() Config {
	return Config{
		Format:         protocol.FormatBinary,
		MaxMessageSize: protocol.DefaultMaxMessageSize,
		NoDelay:        true,
		ReadTimeout:    30 * time.Second,
		AsyncBuffer:    64,
	}
}

// Stats is a point-in-time snapshot of the receive counters.
type Stats struct {
	FramesReceived uint64
	BytesReceived  uint64
	FramesDropped  uint64
}

// Receiver owns one listening socket. Message reads and decodes run on the
// caller's thread; only RunAsync spawns a goroutine. Counters are atomic so
// Stats is safe to call from another goroutine.
type Receiver struct {
	ln    *net.TCPListener
	codec protocol.Codec
	cfg   Config

	framesReceived atomic.Uint64
	bytesReceived  atomic.Uint64
	framesDropped  atomic.Uint64
	closed         atomic.Bool
}

// Bind opens the listening socket. A bind failure is fatal at startup.
func Bind(addr string, cfg Config) (*Receiver, error) {
	codec, err := protocol.NewCodec(cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = protocol.DefaultMaxMessageSize
	}
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = 64
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("receiver: bind %s: %w", addr, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return nil, fmt.Errorf("receiver: bind %s: not a tcp listener", addr)
	}

	log.Info().
		Str("addr", tcpLn.Addr().String()).
		Str("format", cfg.Format.String()).
		Msg("receiver listening")
	return &Receiver{ln: tcpLn, codec: codec, cfg: cfg}, nil
}

// LocalAddr returns the bound address, including the assigned port when the
// receiver was bound to port 0.
func (r *Receiver) LocalAddr() net.Addr {
	return r.ln.Addr()
}

// Close shuts the listening socket. Blocked accepts return immediately.
func (r *Receiver) Close() error {
	r.closed.Store(true)
	return r.ln.Close()
}

// Stats returns a snapshot of the cumulative counters.
func (r *Receiver) Stats() Stats {
	return Stats{
		FramesReceived: r.framesReceived.Load(),
		BytesReceived:  r.bytesReceived.Load(),
		FramesDropped:  r.framesDropped.Load(),
	}
}

// ReceiveOne accepts one connection and reads messages on it until a mesh
// frame is decoded or the stream ends. Heartbeats are consumed silently;
// an end-of-stream message surfaces as protocol.ErrEndOfStream so callers
// can tell a graceful goodbye from a broken connection.
func (r *Receiver) ReceiveOne() (*mesh.ReceivedMesh, error) {
	conn, err := r.accept()
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return r.readConnection(conn)
}

func (r *Receiver) accept() (*net.TCPConn, error) {
	if r.cfg.AcceptTimeout > 0 {
		if err := r.ln.SetDeadline(time.Now().Add(r.cfg.AcceptTimeout)); err != nil {
			return nil, err
		}
		defer r.ln.SetDeadline(time.Time{})
	}
	conn, err := r.ln.AcceptTCP()
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return nil, ErrAcceptTimeout
		}
		return nil, err
	}
	if err := conn.SetNoDelay(r.cfg.NoDelay); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("receiver: set nodelay: %w", err)
	}
	return conn, nil
}

// readConnection loop-reads framed messages on an accepted connection until
// a mesh frame decodes or the stream ends. The read timeout applies per
// read, not per connection lifetime.
func (r *Receiver) readConnection(conn *net.TCPConn) (*mesh.ReceivedMesh, error) {
	connID := uuid.NewString()
	br := bufio.NewReader(conn)
	for {
		if r.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
		}
		msg, err := protocol.ReadMessage(br, r.cfg.MaxMessageSize)
		if err != nil {
			return nil, err
		}

		switch msg.Type {
		case protocol.TypeHeartbeat:
			r.bytesReceived.Add(uint64(msg.Size()))
			observability.RecordBytesReceived(msg.Size())
			log.Trace().Str("conn_id", connID).Msg("heartbeat")

		case protocol.TypeEndOfStream:
			r.bytesReceived.Add(uint64(msg.Size()))
			observability.RecordBytesReceived(msg.Size())
			return nil, protocol.ErrEndOfStream

		case protocol.TypeMeshFrame:
			frame, err := r.codec.DecodeFrame(msg.Payload)
			if err != nil {
				return nil, err
			}
			r.framesReceived.Add(1)
			r.bytesReceived.Add(uint64(msg.Size()))
			observability.RecordFrameReceived(msg.Size())
			log.Debug().
				Str("conn_id", connID).
				Str("simulation", frame.SimulationID).
				Uint32("frame", frame.FrameNumber).
				Int("vertices", frame.VertexCount()).
				Msg("mesh frame received")
			return &mesh.ReceivedMesh{
				Frame:      *frame,
				SourceAddr: conn.RemoteAddr(),
				ReceivedAt: time.Now(),
			}, nil

		default:
			// Known control types we do not handle yet; skip so newer
			// senders keep working against this receiver.
			r.bytesReceived.Add(uint64(msg.Size()))
			observability.RecordBytesReceived(msg.Size())
			log.Warn().
				Str("conn_id", connID).
				Str("type", msg.Type.String()).
				Msg("skipping unhandled message type")
		}
	}
}
