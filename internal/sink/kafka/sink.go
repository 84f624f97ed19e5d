// Package kafka publishes window records and the session summary to Kafka
// as JSON messages keyed by interface.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"firestige.xyz/ifmon/internal/config"
	"firestige.xyz/ifmon/internal/sink"
)

// Name is the sink name.
const Name = "kafka"

const (
	defaultBatchTimeout = 100 * time.Millisecond
	defaultMaxAttempts  = 3
)

// Message kinds.
const (
	KindWindow  = "window"
	KindSummary = "summary"
)

// messageWriter is the subset of *kafka.Writer used by the sink.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is the JSON payload.
type Message struct {
	Kind        string    `json:"kind"`
	Host        string    `json:"host"`
	Interface   string    `json:"interface"`
	Timestamp   time.Time `json:"timestamp"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	Packets     uint64    `json:"packets"`
	Bytes       uint64    `json:"bytes"`
	PacketsRate *float64  `json:"packets_per_second"`
	BytesRate   *float64  `json:"bytes_per_second"`
	Error       string    `json:"error,omitempty"`
}

// Sink writes to a Kafka topic.
type Sink struct {
	writer messageWriter
	topic  string
	host   string

	published atomic.Uint64
	failed    atomic.Uint64
}

// NewSink builds a Kafka writer from configuration.
func NewSink(cfg config.KafkaOutputConfig) (*Sink, error) {
	batchTimeout := defaultBatchTimeout
	if cfg.BatchTimeout != "" {
		d, err := time.ParseDuration(cfg.BatchTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid batch_timeout: %w", err)
		}
		batchTimeout = d
	}

	writerConfig := kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		MaxAttempts:  defaultMaxAttempts,
		Async:        false,
	}

	switch cfg.Compression {
	case "none", "":
		writerConfig.CompressionCodec = nil
	case "gzip":
		writerConfig.CompressionCodec = compress.Gzip.Codec()
	case "snappy":
		writerConfig.CompressionCodec = compress.Snappy.Codec()
	case "lz4":
		writerConfig.CompressionCodec = compress.Lz4.Codec()
	default:
		return nil, fmt.Errorf("invalid compression type: %s", cfg.Compression)
	}

	return newSink(kafka.NewWriter(writerConfig), cfg.Topic), nil
}

func newSink(w messageWriter, topic string) *Sink {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Sink{writer: w, topic: topic, host: host}
}

// Name implements sink.Sink.
func (s *Sink) Name() string {
	return Name
}

// Open implements sink.Sink.
func (s *Sink) Open(ctx context.Context, sess sink.Session) error {
	slog.Info("kafka sink started", "topic", s.topic, "interface", sess.Interface)
	return nil
}

// Emit publishes one window.
func (s *Sink) Emit(ctx context.Context, rec sink.Record) error {
	w := rec.Window
	return s.publish(ctx, rec.Interface, Message{
		Kind:        KindWindow,
		Interface:   rec.Interface,
		Timestamp:   w.At,
		ElapsedMs:   w.Elapsed.Milliseconds(),
		Packets:     w.Packets,
		Bytes:       w.Bytes,
		PacketsRate: finite(w.PacketsPerSecond),
		BytesRate:   finite(w.BytesPerSecond),
	})
}

// Close publishes the summary and closes the writer.
func (s *Sink) Close(ctx context.Context, fin sink.Final) error {
	sum := fin.Summary
	msg := Message{
		Kind:        KindSummary,
		Interface:   fin.Interface,
		Timestamp:   time.Now(),
		ElapsedMs:   sum.Elapsed.Milliseconds(),
		Packets:     sum.Packets,
		Bytes:       sum.Bytes,
		PacketsRate: finite(sum.AvgPackets),
		BytesRate:   finite(sum.AvgBytes),
	}
	if fin.Err != nil {
		msg.Error = fin.Err.Error()
	}
	pubErr := s.publish(ctx, fin.Interface, msg)

	if err := s.writer.Close(); err != nil {
		slog.Error("error closing kafka writer", "error", err)
		return err
	}
	slog.Info("kafka sink stopped",
		"total_published", s.published.Load(),
		"total_errors", s.failed.Load())
	return pubErr
}

func (s *Sink) publish(ctx context.Context, key string, msg Message) error {
	msg.Host = s.host
	value, err := json.Marshal(msg)
	if err != nil {
		s.failed.Add(1)
		return fmt.Errorf("serialize %s failed: %w", msg.Kind, err)
	}

	if err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  msg.Timestamp,
	}); err != nil {
		s.failed.Add(1)
		return fmt.Errorf("kafka write failed: %w", err)
	}
	s.published.Add(1)
	return nil
}

// finite maps NaN and Inf to a JSON null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
