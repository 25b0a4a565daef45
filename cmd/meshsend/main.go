// Command meshsend streams synthetic test frames to a receiver. It wraps
// the transport without adding protocol semantics; real producers hand their
// own MeshFrame values to the sender package directly.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danmuck/meshstream/internal/config"
	"github.com/danmuck/meshstream/internal/mesh"
	"github.com/danmuck/meshstream/internal/observability"
	"github.com/danmuck/meshstream/internal/sender"
)

func main() {
	observability.InitLogger("meshsend")

	var (
		cfgPath      string
		addr         string
		simulationID string
		count        int
		interval     time.Duration
		maxAttempts  int
	)

	root := &cobra.Command{
		Use:   "meshsend",
		Short: "Stream synthetic mesh frames to a meshstream receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.SendConfig{
				Name:             "meshsend",
				Addr:             addr,
				Format:           "binary",
				NoDelay:          true,
				ConnectTimeoutMS: 10_000,
				WriteTimeoutMS:   30_000,
			}
			if cfgPath != "" {
				loaded, err := config.LoadSendConfig(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
				if addr != "" {
					cfg.Addr = addr
				}
			}
			if cfg.Addr == "" {
				return fmt.Errorf("no receiver address: pass --addr or a config file")
			}
			return run(cfg, simulationID, count, interval, maxAttempts)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "TOML config file")
	root.Flags().StringVar(&addr, "addr", "", "receiver address (host:port)")
	root.Flags().StringVar(&simulationID, "simulation-id", "meshsend-test", "simulation id stamped on frames")
	root.Flags().IntVar(&count, "count", 10, "number of frames to send")
	root.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "delay between frames")
	root.Flags().IntVar(&maxAttempts, "max-attempts", 5, "connect attempts before giving up")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("meshsend failed")
		os.Exit(1)
	}
}

func run(cfg config.SendConfig, simulationID string, count int, interval time.Duration, maxAttempts int) error {
	senderCfg, err := cfg.SenderConfig()
	if err != nil {
		return err
	}

	s, err := connectWithBackoff(cfg.Addr, senderCfg, maxAttempts)
	if err != nil {
		return err
	}

	start := time.Now()
	for i := 0; i < count; i++ {
		frame := cubeFrame(simulationID, uint32(i), uint64(time.Since(start).Nanoseconds()))
		if err := s.SendMesh(frame); err != nil {
			_ = s.Shutdown()
			return fmt.Errorf("send frame %d: %w", i, err)
		}
		if i%10 == 9 {
			if err := s.SendHeartbeat(); err != nil {
				_ = s.Shutdown()
				return fmt.Errorf("heartbeat after frame %d: %w", i, err)
			}
		}
		time.Sleep(interval)
	}

	stats := s.Stats()
	log.Info().
		Uint64("frames", stats.FramesSent).
		Uint64("bytes", stats.BytesSent).
		Msg("stream complete")
	return s.Shutdown()
}

func connectWithBackoff(addr string, cfg sender.Config, maxAttempts int) (*sender.Sender, error) {
	backoff := sender.DefaultBackoff()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		s, err := sender.Connect(addr, cfg)
		if err == nil {
			return s, nil
		}
		lastErr = err
		delay := sender.NextBackoffDelay(backoff, attempt, rng)
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("connect failed")
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("connect %s: %w", addr, lastErr)
}

// cubeFrame builds a unit cube as a triangle soup: 12 triangles, 36
// vertices, no index array, so each frame exercises the common
// one-shot-soup path.
func cubeFrame(simulationID string, frameNumber uint32, timestamp uint64) *mesh.MeshFrame {
	quads := [6][4][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}, // back
		{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}}, // front
		{{0, 0, 0}, {0, 1, 0}, {0, 1, 1}, {0, 0, 1}}, // left
		{{1, 0, 0}, {1, 0, 1}, {1, 1, 1}, {1, 1, 0}}, // right
		{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {1, 0, 0}}, // bottom
		{{0, 1, 0}, {1, 1, 0}, {1, 1, 1}, {0, 1, 1}}, // top
	}
	vertices := make([]float32, 0, 6*2*3*3)
	push := func(v [3]float32) {
		vertices = append(vertices, v[0], v[1], v[2])
	}
	for _, q := range quads {
		push(q[0])
		push(q[1])
		push(q[2])
		push(q[0])
		push(q[2])
		push(q[3])
	}
	return &mesh.MeshFrame{
		SimulationID: simulationID,
		FrameNumber:  frameNumber,
		Timestamp:    timestamp,
		Bounds:       mesh.DefaultBounds(),
		Vertices:     vertices,
	}
}
