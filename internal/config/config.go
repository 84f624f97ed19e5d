// Package config handles configuration loading using viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Capture engines.
const (
	EnginePcap     = "pcap"
	EngineAFPacket = "afpacket"
	EngineFile     = "file"
)

// Config represents the complete ifmon configuration.
type Config struct {
	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Outputs OutputsConfig `mapstructure:"outputs" yaml:"outputs"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ─── Monitor ───

// MonitorConfig selects what to watch and how often to report.
type MonitorConfig struct {
	Interface        string `mapstructure:"interface" yaml:"interface"`
	UpdateIntervalMs int    `mapstructure:"update_interval_ms" yaml:"update_interval_ms"`
	Filter           string `mapstructure:"filter" yaml:"filter"`
	ListInterfaces   bool   `mapstructure:"list_interfaces" yaml:"list_interfaces"`
}

// UpdateInterval returns the reporting period.
func (m MonitorConfig) UpdateInterval() time.Duration {
	return time.Duration(m.UpdateIntervalMs) * time.Millisecond
}

// ─── Capture ───

// CaptureConfig configures the capture handle.
type CaptureConfig struct {
	Engine        string `mapstructure:"engine" yaml:"engine"` // pcap | afpacket | file
	SnapLen       int    `mapstructure:"snap_len" yaml:"snap_len"`
	Promiscuous   bool   `mapstructure:"promiscuous" yaml:"promiscuous"`
	ImmediateMode bool   `mapstructure:"immediate_mode" yaml:"immediate_mode"`
	TimeoutMs     int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	BufferSizeMB  int    `mapstructure:"buffer_size_mb" yaml:"buffer_size_mb"`
	FilePath      string `mapstructure:"file_path" yaml:"file_path"` // engine=file only
}

// Timeout returns the capture read timeout.
func (c CaptureConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ─── Outputs ───

// OutputsConfig lists the sinks that receive window records.
type OutputsConfig struct {
	Console ConsoleOutputConfig `mapstructure:"console" yaml:"console"`
	Kafka   KafkaOutputConfig   `mapstructure:"kafka" yaml:"kafka"`
	History HistoryOutputConfig `mapstructure:"history" yaml:"history"`
}

// ConsoleOutputConfig configures the stdout table.
type ConsoleOutputConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// KafkaOutputConfig configures publishing of window records to Kafka.
type KafkaOutputConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Brokers      []string `mapstructure:"brokers" yaml:"brokers"`
	Topic        string   `mapstructure:"topic" yaml:"topic"`
	Compression  string   `mapstructure:"compression" yaml:"compression"` // none | gzip | snappy | lz4
	BatchTimeout string   `mapstructure:"batch_timeout" yaml:"batch_timeout"`
}

// HistoryOutputConfig configures the SQLite session history.
type HistoryOutputConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ValidateAndApplyDefaults validates configuration and normalises values.
func (cfg *Config) ValidateAndApplyDefaults() error {
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %q (must be debug/info/warn/error)", ErrInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: log format %q (must be json/text)", ErrInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", ErrInvalid)
	}

	if cfg.Monitor.UpdateIntervalMs <= 0 {
		return fmt.Errorf("%w: update interval must be positive, got %d", ErrInvalid, cfg.Monitor.UpdateIntervalMs)
	}
	if !cfg.Monitor.ListInterfaces && cfg.Monitor.Interface == "" && cfg.Capture.Engine != EngineFile {
		return fmt.Errorf("%w: interface is required", ErrInvalid)
	}

	cfg.Capture.Engine = strings.ToLower(cfg.Capture.Engine)
	switch cfg.Capture.Engine {
	case EnginePcap, EngineAFPacket:
	case EngineFile:
		if cfg.Capture.FilePath == "" {
			return fmt.Errorf("%w: capture.file_path is required for engine %q", ErrInvalid, EngineFile)
		}
	default:
		return fmt.Errorf("%w: unsupported capture engine %q (must be pcap/afpacket/file)", ErrInvalid, cfg.Capture.Engine)
	}
	if cfg.Capture.TimeoutMs <= 0 {
		return fmt.Errorf("%w: capture timeout must be positive, got %d", ErrInvalid, cfg.Capture.TimeoutMs)
	}
	if cfg.Capture.SnapLen <= 0 {
		return fmt.Errorf("%w: snap_len must be positive, got %d", ErrInvalid, cfg.Capture.SnapLen)
	}

	if k := cfg.Outputs.Kafka; k.Enabled {
		if len(k.Brokers) == 0 {
			return fmt.Errorf("%w: outputs.kafka.brokers is required when kafka output is enabled", ErrInvalid)
		}
		if k.Topic == "" {
			return fmt.Errorf("%w: outputs.kafka.topic is required when kafka output is enabled", ErrInvalid)
		}
		if k.BatchTimeout != "" {
			if _, err := time.ParseDuration(k.BatchTimeout); err != nil {
				return fmt.Errorf("%w: outputs.kafka.batch_timeout: %v", ErrInvalid, err)
			}
		}
	}
	if h := cfg.Outputs.History; h.Enabled && h.Path == "" {
		return fmt.Errorf("%w: outputs.history.path is required when history output is enabled", ErrInvalid)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics are enabled", ErrInvalid)
	}

	return nil
}

// YAML renders the effective configuration.
func (cfg *Config) YAML() ([]byte, error) {
	return yaml.Marshal(cfg)
}
