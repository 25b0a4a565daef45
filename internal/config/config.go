// Package config loads the TOML configuration for the meshstream daemons.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/meshstream/internal/protocol"
	"github.com/danmuck/meshstream/internal/receiver"
	"github.com/danmuck/meshstream/internal/sender"
)

// SendConfig configures the test-frame sender CLI.
type SendConfig struct {
	Name             string `toml:"name"`
	Addr             string `toml:"addr"`
	Format           string `toml:"format"`
	MaxMessageSize   uint32 `toml:"max_message_size"`
	NoDelay          bool   `toml:"tcp_nodelay"`
	SendBufferSize   int    `toml:"send_buffer_size"`
	ConnectTimeoutMS int64  `toml:"connect_timeout_ms"`
	WriteTimeoutMS   int64  `toml:"write_timeout_ms"`
}

// RecvConfig configures the receiver daemon.
type RecvConfig struct {
	Name            string   `toml:"name"`
	ListenAddr      string   `toml:"listen_addr"`
	AdminAddr       string   `toml:"admin_addr"`
	Format          string   `toml:"format"`
	MaxMessageSize  uint32   `toml:"max_message_size"`
	NoDelay         bool     `toml:"tcp_nodelay"`
	ReadTimeoutMS   int64    `toml:"read_timeout_ms"`
	AcceptTimeoutMS int64    `toml:"accept_timeout_ms"`
	AsyncBuffer     int      `toml:"async_buffer"`
	CorsOrigins     []string `toml:"cors_origins"`
}

func LoadSendConfig(path string) (SendConfig, error) {
	cfg := SendConfig{
		Name:             "meshsend",
		Format:           "binary",
		NoDelay:          true,
		ConnectTimeoutMS: 10_000,
		WriteTimeoutMS:   30_000,
	}
	if err := loadToml(path, &cfg); err != nil {
		return SendConfig{}, err
	}
	if err := ValidateSendConfig(cfg); err != nil {
		return SendConfig{}, err
	}
	return cfg, nil
}

func LoadRecvConfig(path string) (RecvConfig, error) {
	cfg := RecvConfig{
		Name:          "meshrecvd",
		ListenAddr:    ":7445",
		AdminAddr:     ":9100",
		Format:        "binary",
		NoDelay:       true,
		ReadTimeoutMS: 30_000,
		AsyncBuffer:   64,
	}
	if err := loadToml(path, &cfg); err != nil {
		return RecvConfig{}, err
	}
	if err := ValidateRecvConfig(cfg); err != nil {
		return RecvConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateSendConfig(cfg SendConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("send config missing addr")
	}
	if _, err := protocol.ParseWireFormat(cfg.Format); err != nil {
		return fmt.Errorf("send config invalid: %w", err)
	}
	return nil
}

func ValidateRecvConfig(cfg RecvConfig) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("recv config missing listen_addr")
	}
	if _, err := protocol.ParseWireFormat(cfg.Format); err != nil {
		return fmt.Errorf("recv config invalid: %w", err)
	}
	return nil
}

// SenderConfig maps the file values onto the transport config.
func (c SendConfig) SenderConfig() (sender.Config, error) {
	format, err := protocol.ParseWireFormat(c.Format)
	if err != nil {
		return sender.Config{}, err
	}
	cfg := sender.DefaultConfig()
	cfg.Format = format
	if c.MaxMessageSize > 0 {
		cfg.MaxMessageSize = c.MaxMessageSize
	}
	cfg.NoDelay = c.NoDelay
	cfg.SendBufferSize = c.SendBufferSize
	cfg.ConnectTimeout = time.Duration(c.ConnectTimeoutMS) * time.Millisecond
	cfg.WriteTimeout = time.Duration(c.WriteTimeoutMS) * time.Millisecond
	return cfg, nil
}

// ReceiverConfig maps the file values onto the transport config.
func (c RecvConfig) ReceiverConfig() (receiver.Config, error) {
	format, err := protocol.ParseWireFormat(c.Format)
	if err != nil {
		return receiver.Config{}, err
	}
	cfg := receiver.DefaultConfig()
	cfg.Format = format
	if c.MaxMessageSize > 0 {
		cfg.MaxMessageSize = c.MaxMessageSize
	}
	cfg.NoDelay = c.NoDelay
	cfg.ReadTimeout = time.Duration(c.ReadTimeoutMS) * time.Millisecond
	cfg.AcceptTimeout = time.Duration(c.AcceptTimeoutMS) * time.Millisecond
	if c.AsyncBuffer > 0 {
		cfg.AsyncBuffer = c.AsyncBuffer
	}
	return cfg, nil
}
