// Package stats implements the traffic counter store shared by the capture
// and reporting loops.
package stats

import (
	"math"
	"sync"
	"time"
)

// Window is the result of draining the running counters.
type Window struct {
	PacketsPerSecond float64
	BytesPerSecond   float64
	Packets          uint64
	Bytes            uint64
	Elapsed          time.Duration
	At               time.Time
}

// Empty reports whether the window carried no elapsed time.
func (w Window) Empty() bool {
	return w.Elapsed == 0
}

// Summary describes a whole monitoring session.
type Summary struct {
	Packets    uint64
	Bytes      uint64
	Elapsed    time.Duration
	AvgPackets float64
	AvgBytes   float64
}

// Degenerate is true when no time elapsed and the averages are undefined.
func (s Summary) Degenerate() bool {
	return s.Elapsed <= 0 || math.IsNaN(s.AvgPackets) || math.IsNaN(s.AvgBytes)
}

// Store aggregates packet and byte counters for one session. All state is
// guarded by a single mutex so that a reset observes the four counters and
// the window start as one unit.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	runningPackets    uint64
	runningBytes      uint64
	cumulativePackets uint64
	cumulativeBytes   uint64

	sessionStart    time.Time
	lastWindowStart time.Time
}

// NewStore creates a store whose session starts now.
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates a store that reads time from now.
func NewStoreWithClock(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	start := now()
	return &Store{
		now:             now,
		sessionStart:    start,
		lastWindowStart: start,
	}
}

// Record counts one captured frame of length bytes.
func (s *Store) Record(length int) {
	if length < 0 {
		length = 0
	}
	s.mu.Lock()
	s.runningPackets++
	s.runningBytes += uint64(length)
	s.mu.Unlock()
}

// SnapshotAndReset drains the running counters into the cumulative totals
// and returns the rates for the window that just closed.
//
// When no time has passed since the previous reset the counters are left
// untouched and a zero window is returned; those frames are reported with
// the next window instead.
func (s *Store) SnapshotAndReset() Window {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	elapsed := now.Sub(s.lastWindowStart)
	if elapsed <= 0 {
		return Window{At: now}
	}

	secs := elapsed.Seconds()
	w := Window{
		PacketsPerSecond: float64(s.runningPackets) / secs,
		BytesPerSecond:   float64(s.runningBytes) / secs,
		Packets:          s.runningPackets,
		Bytes:            s.runningBytes,
		Elapsed:          elapsed,
		At:               now,
	}

	s.cumulativePackets += s.runningPackets
	s.cumulativeBytes += s.runningBytes
	s.runningPackets = 0
	s.runningBytes = 0
	s.lastWindowStart = now

	return w
}

// Totals returns the cumulative packet and byte counts. Frames recorded
// since the last reset are not included.
func (s *Store) Totals() (packets, bytes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cumulativePackets, s.cumulativeBytes
}

// Pending returns the running counters of the open window.
func (s *Store) Pending() (packets, bytes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningPackets, s.runningBytes
}

// ElapsedSinceStart returns the session duration so far.
func (s *Store) ElapsedSinceStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.sessionStart)
}

// SessionStart returns the time the store was created.
func (s *Store) SessionStart() time.Time {
	return s.sessionStart
}

// Summary computes session averages from the cumulative totals.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	packets, bytes := s.cumulativePackets, s.cumulativeBytes
	elapsed := s.now().Sub(s.sessionStart)
	s.mu.Unlock()

	return Summarize(packets, bytes, elapsed)
}

// Summarize builds a Summary; averages are NaN when elapsed is not positive.
func Summarize(packets, bytes uint64, elapsed time.Duration) Summary {
	sum := Summary{
		Packets:    packets,
		Bytes:      bytes,
		Elapsed:    elapsed,
		AvgPackets: math.NaN(),
		AvgBytes:   math.NaN(),
	}
	if elapsed > 0 {
		secs := elapsed.Seconds()
		sum.AvgPackets = float64(packets) / secs
		sum.AvgBytes = float64(bytes) / secs
	}
	return sum
}
