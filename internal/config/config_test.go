package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/meshstream/internal/protocol"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSendConfig(t *testing.T) {
	path := writeConfig(t, `
name = "bench-sender"
addr = "10.0.0.5:7445"
format = "json"
max_message_size = 1048576
connect_timeout_ms = 2000
`)
	cfg, err := LoadSendConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "bench-sender" || cfg.Addr != "10.0.0.5:7445" {
		t.Fatalf("fields: %+v", cfg)
	}

	senderCfg, err := cfg.SenderConfig()
	if err != nil {
		t.Fatalf("sender config: %v", err)
	}
	if senderCfg.Format != protocol.FormatJSON {
		t.Fatalf("format: %v", senderCfg.Format)
	}
	if senderCfg.MaxMessageSize != 1048576 {
		t.Fatalf("max size: %d", senderCfg.MaxMessageSize)
	}
	if senderCfg.ConnectTimeout != 2*time.Second {
		t.Fatalf("connect timeout: %v", senderCfg.ConnectTimeout)
	}
	// Defaults survive fields the file does not set.
	if senderCfg.WriteTimeout != 30*time.Second {
		t.Fatalf("write timeout default: %v", senderCfg.WriteTimeout)
	}
}

func TestLoadSendConfigMissingAddr(t *testing.T) {
	path := writeConfig(t, `name = "no-addr"`)
	if _, err := LoadSendConfig(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadRecvConfig(t *testing.T) {
	path := writeConfig(t, `
listen_addr = ":7500"
admin_addr = ":9200"
accept_timeout_ms = 250
async_buffer = 16
cors_origins = ["http://viewer.local"]
`)
	cfg, err := LoadRecvConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	recvCfg, err := cfg.ReceiverConfig()
	if err != nil {
		t.Fatalf("receiver config: %v", err)
	}
	if recvCfg.AcceptTimeout != 250*time.Millisecond {
		t.Fatalf("accept timeout: %v", recvCfg.AcceptTimeout)
	}
	if recvCfg.AsyncBuffer != 16 {
		t.Fatalf("async buffer: %d", recvCfg.AsyncBuffer)
	}
	if len(cfg.CorsOrigins) != 1 {
		t.Fatalf("cors origins: %v", cfg.CorsOrigins)
	}
}

func TestLoadRecvConfigUnknownFormat(t *testing.T) {
	path := writeConfig(t, `
listen_addr = ":7500"
format = "capnproto"
`)
	if _, err := LoadRecvConfig(path); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadRecvConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected load error")
	}
}
