package receiver

import (
	"context"
	"errors"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/meshstream/internal/mesh"
	"github.com/danmuck/meshstream/internal/observability"
	"github.com/danmuck/meshstream/internal/protocol"
)

// Run loops ReceiveOne forever, invoking callback for each decoded frame.
// A false return from the callback stops the loop.
//
// Error policy, explicit: accept timeouts are transient and retried;
// end-of-stream is normal connection turnover; every other per-connection
// error (protocol, decode, I/O, read timeout) is logged and the loop moves
// on to the next accept. No error class terminates the loop — only the
// callback or closing the receiver does.
func (r *Receiver) Run(callback func(*mesh.ReceivedMesh) bool) error {
	for {
		rm, err := r.ReceiveOne()
		if err != nil {
			if r.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			switch {
			case errors.Is(err, ErrAcceptTimeout):
				continue
			case errors.Is(err, protocol.ErrEndOfStream):
				log.Debug().Msg("peer ended stream")
			default:
				log.Warn().Err(err).Msg("connection failed")
			}
			continue
		}
		if !callback(rm) {
			return nil
		}
	}
}

// RunAsync moves the receive loop onto a dedicated goroutine and forwards
// decoded frames over a bounded channel. When the channel is full the oldest
// queued frame is dropped and counted, so a stalled consumer costs bounded
// memory, not unbounded growth. The goroutine owns the receiver until ctx is
// done or the frames channel is closed; cancelling ctx closes the listener.
//
// The error channel receives at most one terminal error and is closed with
// the frames channel.
func (r *Receiver) RunAsync(ctx context.Context) (<-chan *mesh.ReceivedMesh, <-chan error) {
	frames := make(chan *mesh.ReceivedMesh, r.cfg.AsyncBuffer)
	errs := make(chan error, 1)

	go func() {
		<-ctx.Done()
		_ = r.Close()
	}()

	go func() {
		defer close(frames)
		defer close(errs)
		err := r.Run(func(rm *mesh.ReceivedMesh) bool {
			r.deliver(frames, rm)
			return ctx.Err() == nil
		})
		if err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()

	return frames, errs
}

// deliver enqueues rm, dropping the oldest queued frame if the consumer has
// fallen behind.
func (r *Receiver) deliver(frames chan *mesh.ReceivedMesh, rm *mesh.ReceivedMesh) {
	select {
	case frames <- rm:
		return
	default:
	}
	select {
	case <-frames:
		r.framesDropped.Add(1)
		observability.RecordFrameDropped()
		log.Warn().
			Uint64("dropped_total", r.framesDropped.Load()).
			Msg("slow consumer, dropped oldest frame")
	default:
	}
	select {
	case frames <- rm:
	default:
	}
}
