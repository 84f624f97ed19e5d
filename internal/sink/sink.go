// Package sink defines the output boundary for window records and the
// session summary.
package sink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"firestige.xyz/ifmon/internal/stats"
)

// Session describes the monitoring session a sink is attached to.
type Session struct {
	Interface string
	Filter    string
	Engine    string
	Started   time.Time
}

// Record is one reporting window.
type Record struct {
	Interface string
	Window    stats.Window
}

// Final is emitted once after both loops have stopped.
type Final struct {
	Interface string
	Summary   stats.Summary
	// Err is the capture error that ended the session, nil on interrupt.
	Err error
}

// Sink receives the report stream.
type Sink interface {
	Name() string
	Open(ctx context.Context, s Session) error
	Emit(ctx context.Context, rec Record) error
	Close(ctx context.Context, fin Final) error
}

// Multi fans records out to several sinks. A failing sink is logged and
// skipped; it never stops the others or the session.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out over sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Add appends a sink.
func (m *Multi) Add(s Sink) *Multi {
	m.sinks = append(m.sinks, s)
	return m
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Name implements Sink.
func (m *Multi) Name() string {
	return "multi"
}

// Open implements Sink. Sinks that fail to open are dropped from the fan-out
// and the joined error is returned.
func (m *Multi) Open(ctx context.Context, s Session) error {
	var errs []error
	opened := m.sinks[:0]
	for _, snk := range m.sinks {
		if err := snk.Open(ctx, s); err != nil {
			slog.Error("sink open failed", "sink", snk.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		opened = append(opened, snk)
	}
	m.sinks = opened
	return errors.Join(errs...)
}

// Emit implements Sink.
func (m *Multi) Emit(ctx context.Context, rec Record) error {
	var errs []error
	for _, snk := range m.sinks {
		if err := snk.Emit(ctx, rec); err != nil {
			slog.Warn("sink emit failed", "sink", snk.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Sink.
func (m *Multi) Close(ctx context.Context, fin Final) error {
	var errs []error
	for _, snk := range m.sinks {
		if err := snk.Close(ctx, fin); err != nil {
			slog.Error("sink close failed", "sink", snk.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
