package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringP("interface", "i", "eth0", "")
	fs.IntP("update-interval", "u", 1000, "")
	fs.StringP("filter", "f", "", "")
	fs.BoolP("list-interfaces", "l", false, "")
	fs.String("history-database", "", "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "eth0", cfg.Monitor.Interface)
	assert.Equal(t, 1000, cfg.Monitor.UpdateIntervalMs)
	assert.Equal(t, time.Second, cfg.Monitor.UpdateInterval())
	assert.Empty(t, cfg.Monitor.Filter)
	assert.False(t, cfg.Monitor.ListInterfaces)

	assert.Equal(t, EnginePcap, cfg.Capture.Engine)
	assert.True(t, cfg.Capture.Promiscuous)
	assert.True(t, cfg.Capture.ImmediateMode)
	assert.Equal(t, 100*time.Millisecond, cfg.Capture.Timeout())
	assert.Equal(t, 65535, cfg.Capture.SnapLen)

	assert.True(t, cfg.Outputs.Console.Enabled)
	assert.False(t, cfg.Outputs.Kafka.Enabled)
	assert.Equal(t, "100ms", cfg.Outputs.Kafka.BatchTimeout)
	assert.False(t, cfg.Outputs.History.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
monitor:
  interface: "ens3"
  update_interval_ms: 500
  filter: "tcp port 443"
capture:
  engine: "afpacket"
  timeout_ms: 50
  buffer_size_mb: 16
outputs:
  kafka:
    enabled: true
    brokers:
      - "localhost:9092"
    topic: "traffic"
    compression: "lz4"
metrics:
  enabled: true
  listen: "127.0.0.1:9100"
log:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "ens3", cfg.Monitor.Interface)
	assert.Equal(t, 500*time.Millisecond, cfg.Monitor.UpdateInterval())
	assert.Equal(t, "tcp port 443", cfg.Monitor.Filter)
	assert.Equal(t, EngineAFPacket, cfg.Capture.Engine)
	assert.Equal(t, 50*time.Millisecond, cfg.Capture.Timeout())
	assert.Equal(t, 16, cfg.Capture.BufferSizeMB)
	assert.True(t, cfg.Outputs.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Outputs.Kafka.Brokers)
	assert.Equal(t, "traffic", cfg.Outputs.Kafka.Topic)
	assert.Equal(t, "lz4", cfg.Outputs.Kafka.Compression)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"), nil)
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"log level", "log:\n  level: \"verbose\"\n"},
		{"log format", "log:\n  format: \"xml\"\n"},
		{"zero interval", "monitor:\n  update_interval_ms: 0\n"},
		{"negative timeout", "capture:\n  timeout_ms: -1\n"},
		{"unknown engine", "capture:\n  engine: \"xdp\"\n"},
		{"file engine without path", "capture:\n  engine: \"file\"\n"},
		{"kafka without brokers", "outputs:\n  kafka:\n    enabled: true\n"},
		{"kafka bad batch timeout", "outputs:\n  kafka:\n    enabled: true\n    brokers: [\"b:9092\"]\n    batch_timeout: \"soon\"\n"},
		{"history without path", "outputs:\n  history:\n    enabled: true\n    path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "expected ErrInvalid, got %v", err)
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	configPath := writeConfig(t, `
monitor:
  interface: "ens3"
`)
	t.Setenv("IFMON_MONITOR_INTERFACE", "wlan0")
	t.Setenv("IFMON_LOG_LEVEL", "debug")

	cfg, err := Load(configPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "wlan0", cfg.Monitor.Interface)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	configPath := writeConfig(t, `
monitor:
  interface: "ens3"
  update_interval_ms: 2000
`)
	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"-i", "lo", "-f", "udp", "--history-database", "/tmp/h.db"}))

	cfg, err := Load(configPath, fs)
	require.NoError(t, err)
	assert.Equal(t, "lo", cfg.Monitor.Interface)
	assert.Equal(t, "udp", cfg.Monitor.Filter)
	assert.Equal(t, 2000, cfg.Monitor.UpdateIntervalMs, "unchanged flag must not override the file")
	assert.True(t, cfg.Outputs.History.Enabled)
	assert.Equal(t, "/tmp/h.db", cfg.Outputs.History.Path)
}

func TestLoadListInterfacesFlag(t *testing.T) {
	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--list-interfaces"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.True(t, cfg.Monitor.ListInterfaces)
}

func TestYAML(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	out, err := cfg.YAML()
	require.NoError(t, err)
	text := string(out)
	assert.True(t, strings.Contains(text, "interface: eth0"), text)
	assert.True(t, strings.Contains(text, "update_interval_ms: 1000"), text)
	assert.True(t, strings.Contains(text, "engine: pcap"), text)
}
