package receiver

import (
	"errors"
	"net"
	"time"

	"github.com/danmuck/meshstream/internal/mesh"
)

// TryReceive never blocks on accept: it returns (nil, nil) immediately when
// no connection is pending. When a connection is waiting it is accepted and
// read like ReceiveOne — those reads can still block up to ReadTimeout, so
// callers polling from a real-time loop must budget for read-bounded stalls.
func (r *Receiver) TryReceive() (*mesh.ReceivedMesh, error) {
	if err := r.ln.SetDeadline(time.Now()); err != nil {
		return nil, err
	}
	conn, err := r.ln.AcceptTCP()
	_ = r.ln.SetDeadline(time.Time{})
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	defer conn.Close()

	// The listener deadline does not carry over to the accepted conn; it
	// reads in blocking mode with the per-read timeout from Config.
	if err := conn.SetNoDelay(r.cfg.NoDelay); err != nil {
		return nil, err
	}
	return r.readConnection(conn)
}
