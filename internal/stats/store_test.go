package stats

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestNewStoreStartsEmpty(t *testing.T) {
	clock := newFakeClock()
	s := NewStoreWithClock(clock.Now)

	packets, bytes := s.Totals()
	assert.Zero(t, packets)
	assert.Zero(t, bytes)
	assert.Equal(t, clock.Now(), s.SessionStart())
	assert.Equal(t, time.Duration(0), s.ElapsedSinceStart())
}

func TestRecordThenSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		lengths []int
		packets uint64
		bytes   uint64
	}{
		{"none", nil, 0, 0},
		{"single", []int{1500}, 1, 1500},
		{"mixed", []int{64, 128, 1500, 0}, 4, 1692},
		{"negative length counts as zero", []int{-5, 10}, 2, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			s := NewStoreWithClock(clock.Now)
			for _, l := range tt.lengths {
				s.Record(l)
			}
			clock.Advance(time.Second)

			w := s.SnapshotAndReset()
			assert.Equal(t, tt.packets, w.Packets)
			assert.Equal(t, tt.bytes, w.Bytes)
			assert.Equal(t, time.Second, w.Elapsed)

			packets, bytes := s.Totals()
			assert.Equal(t, tt.packets, packets)
			assert.Equal(t, tt.bytes, bytes)
		})
	}
}

func TestSnapshotRates(t *testing.T) {
	clock := newFakeClock()
	s := NewStoreWithClock(clock.Now)
	for i := 0; i < 2000; i++ {
		s.Record(75)
	}
	clock.Advance(time.Second)

	w := s.SnapshotAndReset()
	assert.InDelta(t, 2000.0, w.PacketsPerSecond, 1e-9)
	assert.InDelta(t, 150000.0, w.BytesPerSecond, 1e-9)
	assert.Equal(t, "2.00Kpps", FormatPacketRate(w.PacketsPerSecond))
	assert.Equal(t, "150.00KB/s", FormatByteRate(w.BytesPerSecond))
}

func TestSnapshotRatesScaleWithElapsed(t *testing.T) {
	clock := newFakeClock()
	s := NewStoreWithClock(clock.Now)
	for i := 0; i < 10; i++ {
		s.Record(100)
	}
	clock.Advance(500 * time.Millisecond)

	w := s.SnapshotAndReset()
	assert.InDelta(t, 20.0, w.PacketsPerSecond, 1e-9)
	assert.InDelta(t, 2000.0, w.BytesPerSecond, 1e-9)
}

func TestSnapshotWithoutElapsedKeepsCounters(t *testing.T) {
	clock := newFakeClock()
	s := NewStoreWithClock(clock.Now)
	s.Record(64)
	s.Record(64)

	w := s.SnapshotAndReset()
	assert.True(t, w.Empty())
	assert.Zero(t, w.Packets)
	assert.Zero(t, w.Bytes)
	assert.Zero(t, w.PacketsPerSecond)
	assert.Zero(t, w.BytesPerSecond)

	packets, bytes := s.Pending()
	assert.Equal(t, uint64(2), packets)
	assert.Equal(t, uint64(128), bytes)

	clock.Advance(time.Second)
	w = s.SnapshotAndReset()
	assert.Equal(t, uint64(2), w.Packets)
	assert.Equal(t, uint64(128), w.Bytes)
}

func TestDoubleSnapshotInSameInstant(t *testing.T) {
	clock := newFakeClock()
	s := NewStoreWithClock(clock.Now)
	s.Record(100)
	clock.Advance(time.Second)

	first := s.SnapshotAndReset()
	require.Equal(t, uint64(1), first.Packets)

	second := s.SnapshotAndReset()
	assert.Zero(t, second.Packets)
	assert.Zero(t, second.Bytes)
	assert.Zero(t, second.PacketsPerSecond)
	assert.Zero(t, second.BytesPerSecond)

	packets, bytes := s.Totals()
	assert.Equal(t, uint64(1), packets)
	assert.Equal(t, uint64(100), bytes)
}

func TestReadsAreIdempotent(t *testing.T) {
	clock := newFakeClock()
	s := NewStoreWithClock(clock.Now)
	s.Record(10)
	clock.Advance(2 * time.Second)
	s.SnapshotAndReset()

	p1, b1 := s.Totals()
	p2, b2 := s.Totals()
	assert.Equal(t, p1, p2)
	assert.Equal(t, b1, b2)
	assert.Equal(t, s.ElapsedSinceStart(), s.ElapsedSinceStart())
}

func TestEndToEndWindows(t *testing.T) {
	clock := newFakeClock()
	s := NewStoreWithClock(clock.Now)

	for i := 0; i < 3; i++ {
		s.Record(64)
	}
	clock.Advance(time.Second)

	w := s.SnapshotAndReset()
	assert.Equal(t, uint64(3), w.Packets)
	assert.Equal(t, uint64(192), w.Bytes)

	packets, bytes := s.Totals()
	assert.Equal(t, uint64(3), packets)
	assert.Equal(t, uint64(192), bytes)

	s.Record(64)
	packets, bytes = s.Totals()
	assert.Equal(t, uint64(3), packets)
	assert.Equal(t, uint64(192), bytes)

	clock.Advance(time.Second)
	s.SnapshotAndReset()
	packets, bytes = s.Totals()
	assert.Equal(t, uint64(4), packets)
	assert.Equal(t, uint64(256), bytes)
	assert.Equal(t, 2*time.Second, s.ElapsedSinceStart())
}

func TestConservationUnderConcurrency(t *testing.T) {
	s := NewStore()

	const records = 200000
	done := make(chan struct{})
	var windowPackets, windowBytes uint64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				w := s.SnapshotAndReset()
				windowPackets += w.Packets
				windowBytes += w.Bytes
			}
		}
	}()

	for i := 0; i < records; i++ {
		s.Record(3)
	}
	close(done)
	wg.Wait()

	cumPackets, cumBytes := s.Totals()
	pendPackets, pendBytes := s.Pending()
	assert.Equal(t, uint64(records), cumPackets+pendPackets)
	assert.Equal(t, uint64(records*3), cumBytes+pendBytes)
	assert.Equal(t, cumPackets, windowPackets)
	assert.Equal(t, cumBytes, windowBytes)
}

func TestSummary(t *testing.T) {
	clock := newFakeClock()
	s := NewStoreWithClock(clock.Now)
	for i := 0; i < 40; i++ {
		s.Record(1000)
	}
	clock.Advance(4 * time.Second)
	s.SnapshotAndReset()

	sum := s.Summary()
	assert.Equal(t, uint64(40), sum.Packets)
	assert.Equal(t, uint64(40000), sum.Bytes)
	assert.Equal(t, 4*time.Second, sum.Elapsed)
	assert.InDelta(t, 10.0, sum.AvgPackets, 1e-9)
	assert.InDelta(t, 10000.0, sum.AvgBytes, 1e-9)
	assert.False(t, sum.Degenerate())
}

func TestSummaryWithoutElapsed(t *testing.T) {
	clock := newFakeClock()
	s := NewStoreWithClock(clock.Now)

	sum := s.Summary()
	assert.True(t, sum.Degenerate())
	assert.True(t, math.IsNaN(sum.AvgPackets))
	assert.True(t, math.IsNaN(sum.AvgBytes))
	assert.Equal(t, "n/a", FormatAverage(sum.AvgPackets))
}
