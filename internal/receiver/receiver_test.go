package receiver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/meshstream/internal/mesh"
	"github.com/danmuck/meshstream/internal/protocol"
	"github.com/danmuck/meshstream/internal/sender"
	"github.com/danmuck/meshstream/internal/testutil/testlog"
)

func testFrame() *mesh.MeshFrame {
	return &mesh.MeshFrame{
		SimulationID: "test-sim",
		FrameNumber:  42,
		Timestamp:    123456,
		Bounds:       mesh.DefaultBounds(),
		Vertices:     []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
	}
}

func bindTest(t *testing.T, mutate func(*Config)) *Receiver {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ReadTimeout = 5 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := Bind("127.0.0.1:0", cfg)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func sendFrames(t *testing.T, addr string, frames ...*mesh.MeshFrame) {
	t.Helper()
	s, err := sender.Connect(addr, sender.DefaultConfig())
	if err != nil {
		t.Errorf("connect: %v", err)
		return
	}
	for _, f := range frames {
		if err := s.SendMesh(f); err != nil {
			t.Errorf("send: %v", err)
		}
	}
	_ = s.Shutdown()
}

func TestEndToEndLoopback(t *testing.T) {
	testlog.Start(t)
	r := bindTest(t, nil)

	sent := testFrame()
	go sendFrames(t, r.LocalAddr().String(), sent)

	rm, err := r.ReceiveOne()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !rm.Frame.Equal(sent) {
		t.Fatalf("frame mismatch: %+v != %+v", rm.Frame, sent)
	}
	tcpAddr, ok := rm.SourceAddr.(*net.TCPAddr)
	if !ok || !tcpAddr.IP.IsLoopback() {
		t.Fatalf("source not loopback: %v", rm.SourceAddr)
	}
	if rm.ReceivedAt.IsZero() {
		t.Fatalf("missing receive timestamp")
	}
	stats := r.Stats()
	if stats.FramesReceived != 1 {
		t.Fatalf("frames_received = %d, want 1", stats.FramesReceived)
	}
	if stats.BytesReceived == 0 {
		t.Fatalf("bytes_received not counted")
	}
}

func TestHeartbeatsAreTransparent(t *testing.T) {
	testlog.Start(t)
	r := bindTest(t, nil)

	sent := testFrame()
	go func() {
		s, err := sender.Connect(r.LocalAddr().String(), sender.DefaultConfig())
		if err != nil {
			t.Errorf("connect: %v", err)
			return
		}
		if err := s.SendHeartbeat(); err != nil {
			t.Errorf("heartbeat: %v", err)
		}
		if err := s.SendMesh(sent); err != nil {
			t.Errorf("send: %v", err)
		}
		_ = s.Shutdown()
	}()

	rm, err := r.ReceiveOne()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !rm.Frame.Equal(sent) {
		t.Fatalf("frame mismatch after heartbeat")
	}
	if got := r.Stats().FramesReceived; got != 1 {
		t.Fatalf("frames_received = %d, want exactly 1", got)
	}
}

func TestEndOfStreamIsDistinctFromFailure(t *testing.T) {
	testlog.Start(t)
	r := bindTest(t, nil)

	go func() {
		s, err := sender.Connect(r.LocalAddr().String(), sender.DefaultConfig())
		if err != nil {
			t.Errorf("connect: %v", err)
			return
		}
		_ = s.Shutdown() // sends end-of-stream, no frames
	}()

	_, err := r.ReceiveOne()
	if !errors.Is(err, protocol.ErrEndOfStream) {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
	if got := r.Stats().FramesReceived; got != 0 {
		t.Fatalf("frames_received = %d, want 0", got)
	}
}

func TestAcceptTimeout(t *testing.T) {
	testlog.Start(t)
	r := bindTest(t, func(cfg *Config) {
		cfg.AcceptTimeout = 100 * time.Millisecond
	})

	start := time.Now()
	_, err := r.ReceiveOne()
	elapsed := time.Since(start)

	if !errors.Is(err, ErrAcceptTimeout) {
		t.Fatalf("expected ErrAcceptTimeout, got %v", err)
	}
	if elapsed < 100*time.Millisecond {
		t.Fatalf("returned before the timeout: %v", elapsed)
	}
	if elapsed >= time.Second {
		t.Fatalf("took too long: %v", elapsed)
	}
}

func TestTryReceiveReturnsNilWithoutPendingConnection(t *testing.T) {
	testlog.Start(t)
	r := bindTest(t, nil)

	rm, err := r.TryReceive()
	if err != nil {
		t.Fatalf("try receive: %v", err)
	}
	if rm != nil {
		t.Fatalf("mesh from nowhere: %+v", rm)
	}
}

func TestTryReceiveDeliversPendingFrame(t *testing.T) {
	testlog.Start(t)
	r := bindTest(t, nil)

	sent := testFrame()
	done := make(chan struct{})
	go func() {
		defer close(done)
		sendFrames(t, r.LocalAddr().String(), sent)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		rm, err := r.TryReceive()
		if err != nil {
			t.Fatalf("try receive: %v", err)
		}
		if rm != nil {
			if !rm.Frame.Equal(sent) {
				t.Fatalf("frame mismatch")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no frame within deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
	<-done
}

func TestRunStopsWhenCallbackReturnsFalse(t *testing.T) {
	testlog.Start(t)
	r := bindTest(t, nil)

	go sendFrames(t, r.LocalAddr().String(), testFrame())

	var got int
	err := r.Run(func(rm *mesh.ReceivedMesh) bool {
		got++
		return false
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != 1 {
		t.Fatalf("callback invoked %d times, want 1", got)
	}
}

func TestRunRetriesAcceptTimeout(t *testing.T) {
	testlog.Start(t)
	r := bindTest(t, func(cfg *Config) {
		cfg.AcceptTimeout = 50 * time.Millisecond
	})

	// Let the loop chew through a few accept timeouts before the frame
	// arrives; none of them may stop it.
	go func() {
		time.Sleep(150 * time.Millisecond)
		sendFrames(t, r.LocalAddr().String(), testFrame())
	}()

	var got int
	err := r.Run(func(rm *mesh.ReceivedMesh) bool {
		got++
		return false
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != 1 {
		t.Fatalf("callback invoked %d times, want 1", got)
	}
}

func TestRunAsyncDeliversAndClosesOnCancel(t *testing.T) {
	testlog.Start(t)
	r := bindTest(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	frames, errs := r.RunAsync(ctx)

	// One connection per frame, the transport's reference usage pattern.
	go sendFrames(t, r.LocalAddr().String(), testFrame())
	go func() {
		f := testFrame()
		f.FrameNumber = 43
		sendFrames(t, r.LocalAddr().String(), f)
	}()

	seen := make(map[uint32]bool)
	for len(seen) < 2 {
		select {
		case rm, ok := <-frames:
			if !ok {
				t.Fatalf("channel closed early")
			}
			seen[rm.Frame.FrameNumber] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out with %d frames", len(seen))
		}
	}
	if !seen[42] || !seen[43] {
		t.Fatalf("unexpected frames: %v", seen)
	}

	cancel()
	for range frames {
	}
	if err := <-errs; err != nil {
		t.Fatalf("terminal error: %v", err)
	}
}

func TestDeliverDropsOldestWhenFull(t *testing.T) {
	testlog.Start(t)
	r := bindTest(t, func(cfg *Config) {
		cfg.AsyncBuffer = 1
	})

	ch := make(chan *mesh.ReceivedMesh, 1)
	first := &mesh.ReceivedMesh{Frame: *testFrame()}
	second := &mesh.ReceivedMesh{Frame: *testFrame()}
	second.Frame.FrameNumber = 43

	r.deliver(ch, first)
	r.deliver(ch, second)

	if got := r.Stats().FramesDropped; got != 1 {
		t.Fatalf("frames_dropped = %d, want 1", got)
	}
	select {
	case rm := <-ch:
		if rm.Frame.FrameNumber != 43 {
			t.Fatalf("kept the wrong frame: %d", rm.Frame.FrameNumber)
		}
	default:
		t.Fatalf("channel empty after deliver")
	}
}
