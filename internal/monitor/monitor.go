// Package monitor runs a monitoring session: a capture loop feeding the
// stats store, a reporting loop draining it on a fixed period, and the
// coordinator that joins both and computes the final summary.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"firestige.xyz/ifmon/internal/metrics"
	"firestige.xyz/ifmon/internal/sink"
	"firestige.xyz/ifmon/internal/source"
	"firestige.xyz/ifmon/internal/stats"
)

const (
	// DefaultInterval is the reporting period used when none is configured.
	DefaultInterval = time.Second

	closeTimeout = 5 * time.Second
)

// Config configures a monitoring session.
type Config struct {
	Interface string
	Filter    string
	Engine    string
	Interval  time.Duration

	// Now overrides the clock used by the stats store.
	Now func() time.Time
}

// Result is the outcome of a finished session.
type Result struct {
	Interface string
	Summary   stats.Summary
	// Err is the fatal capture error that ended the session, nil when the
	// session was stopped by an interrupt or context cancellation.
	Err error
}

// Monitor owns one monitoring session.
type Monitor struct {
	cfg  Config
	src  source.Source
	out  sink.Sink
	stop *StopFlag

	mu      sync.Mutex
	store   *stats.Store
	lastErr error
}

// New creates a monitor reading from src and reporting to out. The monitor
// takes ownership of src and closes it when Run returns.
func New(cfg Config, src source.Source, out sink.Sink) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if out == nil {
		out = sink.NewMulti()
	}
	return &Monitor{
		cfg:  cfg,
		src:  src,
		out:  out,
		stop: NewStopFlag(),
	}
}

// Stop requests shutdown. It is safe to call from any goroutine, any number
// of times.
func (m *Monitor) Stop() {
	if m.stop.Stop() {
		slog.Debug("stop requested", "interface", m.cfg.Interface)
	}
}

// Stopped reports whether shutdown has been requested.
func (m *Monitor) Stopped() bool {
	return m.stop.Stopped()
}

// Store returns the session's stats store, nil before Run.
func (m *Monitor) Store() *stats.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}

// LastErr returns the fatal capture error recorded so far.
func (m *Monitor) LastErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Run starts both loops and blocks until shutdown is requested by Stop, by
// ctx cancellation or by a fatal capture error. Both loops are joined before
// the source is closed; the open window is then drained and emitted so the
// summary covers every recorded frame.
func (m *Monitor) Run(ctx context.Context) Result {
	store := stats.NewStoreWithClock(m.cfg.Now)
	m.mu.Lock()
	m.store = store
	m.mu.Unlock()

	sess := sink.Session{
		Interface: m.cfg.Interface,
		Filter:    m.cfg.Filter,
		Engine:    m.cfg.Engine,
		Started:   store.SessionStart(),
	}
	if err := m.out.Open(ctx, sess); err != nil {
		slog.Warn("some sinks failed to open", "error", err)
	}

	slog.Info("monitoring started",
		"interface", m.cfg.Interface,
		"engine", m.cfg.Engine,
		"filter", m.cfg.Filter,
		"interval", m.cfg.Interval)

	// Cancelled on stop so that a blocked Emit cannot hold the report loop.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.captureLoop(store)
	}()
	go func() {
		defer wg.Done()
		m.reportLoop(runCtx, store)
	}()

	select {
	case <-ctx.Done():
		m.Stop()
	case <-m.stop.Done():
	}
	cancelRun()
	wg.Wait()

	m.logSourceStats()
	m.src.Close()

	// Frames recorded after the last tick form one more window.
	if last := store.SnapshotAndReset(); !last.Empty() {
		m.emit(context.Background(), sink.Record{Interface: m.cfg.Interface, Window: last})
	}

	res := Result{
		Interface: m.cfg.Interface,
		Summary:   store.Summary(),
		Err:       m.LastErr(),
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	fin := sink.Final{Interface: res.Interface, Summary: res.Summary, Err: res.Err}
	if err := m.out.Close(closeCtx, fin); err != nil {
		slog.Warn("some sinks failed to close", "error", err)
	}

	slog.Info("monitoring stopped",
		"interface", res.Interface,
		"packets", res.Summary.Packets,
		"bytes", res.Summary.Bytes,
		"elapsed", res.Summary.Elapsed)
	return res
}

// captureLoop reads frames until the stop flag is set or the source fails.
func (m *Monitor) captureLoop(store *stats.Store) {
	for !m.stop.Stopped() {
		_, ci, err := m.src.ReadPacketData()
		if err != nil {
			if errors.Is(err, source.ErrTimeout) {
				continue
			}
			slog.Error("capture failed", "interface", m.cfg.Interface, "error", err)
			metrics.CaptureErrorsTotal.WithLabelValues(m.cfg.Interface).Inc()
			m.setLastErr(err)
			m.Stop()
			return
		}
		store.Record(ci.CaptureLength)
	}
}

// reportLoop drains the store every interval until the stop flag is set.
func (m *Monitor) reportLoop(ctx context.Context, store *stats.Store) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop.Done():
			return
		case <-ticker.C:
			if m.stop.Stopped() {
				return
			}
			rec := sink.Record{Interface: m.cfg.Interface, Window: store.SnapshotAndReset()}
			m.emit(ctx, rec)
		}
	}
}

// emit hands rec to the sinks, bounded by one reporting period.
func (m *Monitor) emit(ctx context.Context, rec sink.Record) {
	emitCtx, cancel := context.WithTimeout(ctx, m.cfg.Interval)
	defer cancel()
	if err := m.out.Emit(emitCtx, rec); err != nil {
		slog.Debug("window emit incomplete", "error", err)
	}
}

func (m *Monitor) setLastErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastErr == nil {
		m.lastErr = err
	}
}

func (m *Monitor) logSourceStats() {
	st, err := m.src.Stats()
	if err != nil {
		slog.Debug("capture stats unavailable", "interface", m.cfg.Interface, "error", err)
		return
	}
	metrics.CaptureDrops.WithLabelValues(m.cfg.Interface, "kernel").Set(float64(st.PacketsDropped))
	metrics.CaptureDrops.WithLabelValues(m.cfg.Interface, "interface").Set(float64(st.PacketsIfDropped))
	slog.Info("capture stats",
		"interface", m.cfg.Interface,
		"received", st.PacketsReceived,
		"dropped", st.PacketsDropped,
		"if_dropped", st.PacketsIfDropped)
}
