// Command meshrecvd runs a mesh stream receiver with a gin admin surface
// for health checks and prometheus metrics.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danmuck/meshstream/internal/config"
	"github.com/danmuck/meshstream/internal/observability"
	"github.com/danmuck/meshstream/internal/receiver"
)

func main() {
	observability.InitLogger("meshrecvd")

	var cfgPath string

	root := &cobra.Command{
		Use:   "meshrecvd",
		Short: "Receive mesh frame streams and expose admin endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.RecvConfig{
				Name:          "meshrecvd",
				ListenAddr:    ":7445",
				AdminAddr:     ":9100",
				Format:        "binary",
				NoDelay:       true,
				ReadTimeoutMS: 30_000,
				AsyncBuffer:   64,
			}
			if cfgPath != "" {
				loaded, err := config.LoadRecvConfig(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return run(cfg)
		},
	}
	root.Flags().StringVar(&cfgPath, "config", "", "TOML config file")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("meshrecvd failed")
		os.Exit(1)
	}
}

func run(cfg config.RecvConfig) error {
	recvCfg, err := cfg.ReceiverConfig()
	if err != nil {
		return err
	}

	recv, err := receiver.Bind(cfg.ListenAddr, recvCfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startAdmin(cfg, recv)

	frames, errs := recv.RunAsync(ctx)
	for rm := range frames {
		log.Info().
			Str("simulation", rm.Frame.SimulationID).
			Uint32("frame", rm.Frame.FrameNumber).
			Int("vertices", rm.Frame.VertexCount()).
			Int("triangles", rm.Frame.TriangleCount()).
			Str("source", rm.SourceAddr.String()).
			Msg("frame")
	}
	if err := <-errs; err != nil {
		return err
	}

	stats := recv.Stats()
	log.Info().
		Uint64("frames", stats.FramesReceived).
		Uint64("bytes", stats.BytesReceived).
		Uint64("dropped", stats.FramesDropped).
		Msg("receiver stopped")
	return nil
}

func startAdmin(cfg config.RecvConfig, recv *receiver.Receiver) {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	startedAt := time.Now()
	r.GET("/health", func(c *gin.Context) {
		stats := recv.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"uptime":          time.Since(startedAt).String(),
			"listen":          recv.LocalAddr().String(),
			"frames_received": stats.FramesReceived,
			"bytes_received":  stats.BytesReceived,
			"frames_dropped":  stats.FramesDropped,
		})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ready": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	go func() {
		if err := r.Run(cfg.AdminAddr); err != nil {
			log.Error().Err(err).Msg("admin server failed")
		}
	}()
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
