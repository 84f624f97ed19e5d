// Package console prints the traffic table and the final summary.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"firestige.xyz/ifmon/internal/sink"
	"firestige.xyz/ifmon/internal/stats"
)

// Name is the sink name.
const Name = "console"

// TimeLayout renders the local wall clock as HH:MM:SS.
const TimeLayout = "15:04:05"

const (
	ruleWidth = 63
	rowFormat = "%-12s %-12s %-12s %-12s %-12s\n"
)

// Sink writes fixed-width rows to a writer, stdout by default.
type Sink struct {
	out io.Writer
}

// NewSink creates a console sink on stdout.
func NewSink() *Sink {
	return NewSinkWriter(os.Stdout)
}

// NewSinkWriter creates a console sink on w.
func NewSinkWriter(w io.Writer) *Sink {
	return &Sink{out: w}
}

// Name implements sink.Sink.
func (s *Sink) Name() string {
	return Name
}

// Open prints the session banner and table header.
func (s *Sink) Open(ctx context.Context, sess sink.Session) error {
	if sess.Filter != "" {
		fmt.Fprintf(s.out, "Filter: %s\n", sess.Filter)
	}
	fmt.Fprintf(s.out, "Monitoring interface: %s\n", sess.Interface)

	rule := strings.Repeat("-", ruleWidth)
	fmt.Fprintln(s.out, rule)
	fmt.Fprintf(s.out, rowFormat, "Time", "Packets/s", "Bytes/s", "Total Pkts", "Total Bytes")
	_, err := fmt.Fprintln(s.out, rule)
	return err
}

// Emit prints one window row.
func (s *Sink) Emit(ctx context.Context, rec sink.Record) error {
	_, err := fmt.Fprint(s.out, FormatRecord(rec))
	return err
}

// Close prints the final statistics block.
func (s *Sink) Close(ctx context.Context, fin sink.Final) error {
	_, err := fmt.Fprint(s.out, FormatFinal(fin))
	return err
}

// FormatRecord renders a window row: local time, scaled rates and the raw
// window counts.
func FormatRecord(rec sink.Record) string {
	w := rec.Window
	return fmt.Sprintf(rowFormat,
		w.At.Local().Format(TimeLayout),
		stats.FormatPacketRate(w.PacketsPerSecond),
		stats.FormatByteRate(w.BytesPerSecond),
		fmt.Sprint(w.Packets),
		fmt.Sprint(w.Bytes),
	)
}

// FormatFinal renders the session summary.
func FormatFinal(fin sink.Final) string {
	sum := fin.Summary
	var b strings.Builder
	b.WriteString("\n\nFinal Statistics:\n")
	fmt.Fprintf(&b, "Interface: %s\n", fin.Interface)
	fmt.Fprintf(&b, "Monitoring duration: %.2f seconds\n", sum.Elapsed.Seconds())
	fmt.Fprintf(&b, "Total packets: %d\n", sum.Packets)
	fmt.Fprintf(&b, "Total bytes: %d\n", sum.Bytes)
	fmt.Fprintf(&b, "Average packets/s: %s\n", stats.FormatAverage(sum.AvgPackets))
	fmt.Fprintf(&b, "Average bytes/s: %s\n", stats.FormatAverage(sum.AvgBytes))
	if fin.Err != nil {
		fmt.Fprintf(&b, "Stopped after capture error: %v\n", fin.Err)
	}
	return b.String()
}
